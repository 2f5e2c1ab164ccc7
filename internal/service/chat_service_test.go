package service

import (
	"context"
	"testing"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// ChatServiceTestSuite 聊天服务测试套件
type ChatServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	services  *Services
	host      *models.User
	player    *models.User
	game      *models.Game
	character *models.Character
}

func (suite *ChatServiceTestSuite) SetupTest() {
	suite.db, suite.services = setupTestServices(suite.T())
	suite.host = seedUser(suite.T(), suite.db, "chathost", "user")
	suite.player = seedUser(suite.T(), suite.db, "chatplayer", "user")
	suite.game = seedGameWithRooms(suite.T(), suite.services, suite.host.ID, "chat")
	suite.character = seedCharacter(suite.T(), suite.db, suite.player.ID, "夏洛克")

	ctx := context.Background()
	assert.NoError(suite.T(), suite.services.Game.JoinGame(ctx, suite.player.ID, suite.game.ID, suite.character.ID))
}

func (suite *ChatServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// viewer 构造访问者
func (suite *ChatServiceTestSuite) viewer(userID uint) *Viewer {
	v, err := suite.services.User.BuildViewer(context.Background(), userID)
	assert.NoError(suite.T(), err)
	return v
}

// roomOfType 查找本局指定类型的房间
func (suite *ChatServiceTestSuite) roomOfType(t models.RoomType) *models.ChatRoom {
	full, err := suite.services.Game.GetGame(context.Background(), suite.game.ID)
	assert.NoError(suite.T(), err)
	for i := range full.ChatRooms {
		if full.ChatRooms[i].Type == t {
			return &full.ChatRooms[i]
		}
	}
	suite.T().Fatalf("room of type %s not found", t)
	return nil
}

// startGame 推进到进行中
func (suite *ChatServiceTestSuite) startGame() {
	_, err := suite.services.Game.StartGame(context.Background(), suite.host.ID, suite.game.ID)
	assert.NoError(suite.T(), err)
}

// TestEnterRoom_HostSeesAll 主持人进入任意房间
func (suite *ChatServiceTestSuite) TestEnterRoom_HostSeesAll() {
	ctx := context.Background()
	room := suite.roomOfType(models.RoomTypePostGame)

	access, err := suite.services.Chat.EnterRoom(ctx, suite.viewer(suite.host.ID), suite.game.ID, room.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), ViewerHost, access.Kind)
	assert.Len(suite.T(), access.Permitted, 3)
}

// TestEnterRoom_MissingGame 游戏不存在跳转游戏列表
func (suite *ChatServiceTestSuite) TestEnterRoom_MissingGame() {
	ctx := context.Background()

	access, err := suite.services.Chat.EnterRoom(ctx, suite.viewer(0), 99999, 1)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), access.Denied())
	assert.Equal(suite.T(), "/games", access.Redirect)
}

// TestEnterRoom_MissingRoom 房间不存在跳转游戏主页
func (suite *ChatServiceTestSuite) TestEnterRoom_MissingRoom() {
	ctx := context.Background()

	access, err := suite.services.Chat.EnterRoom(ctx, suite.viewer(suite.host.ID), suite.game.ID, 99999)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), access.Denied())
}

// TestSendMessage_ParticipantIdentity 参与者以角色身份发言
func (suite *ChatServiceTestSuite) TestSendMessage_ParticipantIdentity() {
	ctx := context.Background()
	suite.startGame()
	room := suite.roomOfType(models.RoomTypeMeetingRoom)

	message, err := suite.services.Chat.SendMessage(ctx, suite.viewer(suite.player.ID), suite.game.ID, room.ID, "真相只有一个")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SenderKindCharacter, message.SenderKind)
	assert.Equal(suite.T(), suite.character.ID, message.SenderID)
	assert.Equal(suite.T(), "夏洛克", message.SenderName)

	// 往返：消息出现在列表里
	messages, access, err := suite.services.Chat.GetMessages(ctx, suite.viewer(suite.player.ID), suite.game.ID, room.ID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), access.Denied())
	assert.Len(suite.T(), messages, 1)
	assert.Equal(suite.T(), "真相只有一个", messages[0].Content)
}

// TestSendMessage_HostIdentity 主持人以用户身份发言
func (suite *ChatServiceTestSuite) TestSendMessage_HostIdentity() {
	ctx := context.Background()
	suite.startGame()
	room := suite.roomOfType(models.RoomTypeMeetingRoom)

	message, err := suite.services.Chat.SendMessage(ctx, suite.viewer(suite.host.ID), suite.game.ID, room.ID, "游戏开始")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SenderKindUser, message.SenderKind)
	assert.Equal(suite.T(), suite.host.ID, message.SenderID)
	assert.Equal(suite.T(), "chathost", message.SenderName)
}

// TestSendMessage_SpectatorWindows 旁观者只能在赛前/赛后窗口发言
func (suite *ChatServiceTestSuite) TestSendMessage_SpectatorWindows() {
	ctx := context.Background()
	spectator := seedUser(suite.T(), suite.db, "spectator", "user")

	// 报名中：赛前大厅可以
	preGame := suite.roomOfType(models.RoomTypePreGame)
	_, err := suite.services.Chat.SendMessage(ctx, suite.viewer(spectator.ID), suite.game.ID, preGame.ID, "求带")
	assert.NoError(suite.T(), err)

	// 报名中：会议室不行
	meeting := suite.roomOfType(models.RoomTypeMeetingRoom)
	_, err = suite.services.Chat.SendMessage(ctx, suite.viewer(spectator.ID), suite.game.ID, meeting.ID, "我也说一句")
	assert.ErrorIs(suite.T(), err, ErrSendNotPermitted)

	// 结束后：赛后大厅可以
	suite.startGame()
	_, err = suite.services.Game.CompleteGame(ctx, suite.host.ID, suite.game.ID, "村民阵营")
	assert.NoError(suite.T(), err)

	postGame := suite.roomOfType(models.RoomTypePostGame)
	_, err = suite.services.Chat.SendMessage(ctx, suite.viewer(spectator.ID), suite.game.ID, postGame.ID, "打得不错")
	assert.NoError(suite.T(), err)
}

// TestSendMessage_Validation 消息校验
func (suite *ChatServiceTestSuite) TestSendMessage_Validation() {
	ctx := context.Background()
	suite.startGame()
	room := suite.roomOfType(models.RoomTypeMeetingRoom)

	_, err := suite.services.Chat.SendMessage(ctx, suite.viewer(suite.host.ID), suite.game.ID, room.ID, "   ")
	assert.ErrorIs(suite.T(), err, ErrEmptyMessage)

	long := make([]rune, 2001)
	for i := range long {
		long[i] = '字'
	}
	_, err = suite.services.Chat.SendMessage(ctx, suite.viewer(suite.host.ID), suite.game.ID, room.ID, string(long))
	assert.ErrorIs(suite.T(), err, ErrMessageTooLong)
}

// TestDeleteMessage_HostOnly 仅主持人可删除消息
func (suite *ChatServiceTestSuite) TestDeleteMessage_HostOnly() {
	ctx := context.Background()
	suite.startGame()
	room := suite.roomOfType(models.RoomTypeMeetingRoom)

	message, err := suite.services.Chat.SendMessage(ctx, suite.viewer(suite.player.ID), suite.game.ID, room.ID, "口误了")
	assert.NoError(suite.T(), err)

	err = suite.services.Chat.DeleteMessage(ctx, suite.player.ID, suite.game.ID, room.ID, message.ID)
	assert.ErrorIs(suite.T(), err, ErrNotHost)

	err = suite.services.Chat.DeleteMessage(ctx, suite.host.ID, suite.game.ID, room.ID, message.ID)
	assert.NoError(suite.T(), err)

	// 删除后所有访问者都看不到
	messages, _, err := suite.services.Chat.GetMessages(ctx, suite.viewer(suite.host.ID), suite.game.ID, room.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), messages, 0)
}

// TestPrivateRoom_AllowList 私密房间白名单
func (suite *ChatServiceTestSuite) TestPrivateRoom_AllowList() {
	ctx := context.Background()
	suite.startGame()

	room, err := suite.services.Chat.CreateRoom(ctx, suite.host.ID, suite.game.ID, &RoomRequest{
		Type:      models.RoomTypePrivate,
		Name:      "狼人频道",
		AllowList: []uint{suite.character.ID},
	})
	assert.NoError(suite.T(), err)

	// 白名单内的参与者可以进入和发言
	access, err := suite.services.Chat.EnterRoom(ctx, suite.viewer(suite.player.ID), suite.game.ID, room.ID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), access.Denied())
	assert.Equal(suite.T(), ViewerParticipant, access.Kind)

	_, err = suite.services.Chat.SendMessage(ctx, suite.viewer(suite.player.ID), suite.game.ID, room.ID, "今晚刀谁")
	assert.NoError(suite.T(), err)

	// 白名单外的访问者被跳转
	outsider := seedUser(suite.T(), suite.db, "outsider", "user")
	access, err = suite.services.Chat.EnterRoom(ctx, suite.viewer(outsider.ID), suite.game.ID, room.ID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), access.Denied())
}

// TestRoomManagement 房间创建/删除约束
func (suite *ChatServiceTestSuite) TestRoomManagement() {
	ctx := context.Background()

	// 系统类型不能手动创建
	_, err := suite.services.Chat.CreateRoom(ctx, suite.host.ID, suite.game.ID, &RoomRequest{
		Type: models.RoomTypePreGame,
		Name: "假大厅",
	})
	assert.ErrorIs(suite.T(), err, ErrRoomNotCreatable)

	// 系统房间不能删除
	preGame := suite.roomOfType(models.RoomTypePreGame)
	err = suite.services.Chat.DeleteRoom(ctx, suite.host.ID, suite.game.ID, preGame.ID)
	assert.ErrorIs(suite.T(), err, ErrRoomNotDeletable)

	// 演绎室可以创建和删除
	room, err := suite.services.Chat.CreateRoom(ctx, suite.host.ID, suite.game.ID, &RoomRequest{
		Type: models.RoomTypeRoleplay,
		Name: "酒馆",
	})
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.services.Chat.DeleteRoom(ctx, suite.host.ID, suite.game.ID, room.ID))
}

// TestGetMessages_Stable 无写入时重复拉取结果一致
func (suite *ChatServiceTestSuite) TestGetMessages_Stable() {
	ctx := context.Background()
	suite.startGame()
	room := suite.roomOfType(models.RoomTypeMeetingRoom)

	for _, content := range []string{"一", "二", "三"} {
		_, err := suite.services.Chat.SendMessage(ctx, suite.viewer(suite.host.ID), suite.game.ID, room.ID, content)
		assert.NoError(suite.T(), err)
	}

	first, _, err := suite.services.Chat.GetMessages(ctx, suite.viewer(suite.host.ID), suite.game.ID, room.ID)
	assert.NoError(suite.T(), err)
	second, _, err := suite.services.Chat.GetMessages(ctx, suite.viewer(suite.host.ID), suite.game.ID, room.ID)
	assert.NoError(suite.T(), err)

	assert.Len(suite.T(), first, 3)
	assert.Equal(suite.T(), len(first), len(second))
	for i := range first {
		assert.Equal(suite.T(), first[i].ID, second[i].ID)
		assert.Equal(suite.T(), first[i].Content, second[i].Content)
	}
}

func TestChatServiceSuite(t *testing.T) {
	suite.Run(t, new(ChatServiceTestSuite))
}
