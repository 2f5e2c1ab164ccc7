package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// ChatRepositoryTestSuite 聊天仓储测试套件
type ChatRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	roomRepo ChatRoomRepository
	msgRepo  ChatMessageRepository
	game     *models.Game
}

func (suite *ChatRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.roomRepo = NewChatRoomRepository(suite.db)
	suite.msgRepo = NewChatMessageRepository(suite.db)

	host := CreateTestUser(suite.T(), suite.db, "chathost")
	suite.game = CreateTestGame(suite.T(), suite.db, host.ID, "chatgame")
}

func (suite *ChatRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestChatRoomRepository_CreateAndFind 测试创建和查找聊天室
func (suite *ChatRepositoryTestSuite) TestChatRoomRepository_CreateAndFind() {
	ctx := context.Background()

	room := &models.ChatRoom{
		GameID: suite.game.ID,
		Type:   models.RoomTypeMeetingRoom,
		Name:   "会议室",
	}
	err := suite.roomRepo.Create(ctx, room)
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), room.ID)

	found, err := suite.roomRepo.FindByID(ctx, room.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RoomTypeMeetingRoom, found.Type)

	_, err = suite.roomRepo.FindByID(ctx, room.ID+999)
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "聊天室不存在")
}

// TestChatRoomRepository_FindByGameAndType 测试按类型查找
func (suite *ChatRepositoryTestSuite) TestChatRoomRepository_FindByGameAndType() {
	ctx := context.Background()

	CreateTestRoom(suite.T(), suite.db, suite.game.ID, models.RoomTypePreGame, "赛前大厅")
	CreateTestRoom(suite.T(), suite.db, suite.game.ID, models.RoomTypeRoleplay, "酒馆")
	CreateTestRoom(suite.T(), suite.db, suite.game.ID, models.RoomTypeRoleplay, "教堂")

	rooms, err := suite.roomRepo.FindByGame(ctx, suite.game.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), rooms, 3)

	roleplay, err := suite.roomRepo.FindByGameAndType(ctx, suite.game.ID, models.RoomTypeRoleplay)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), roleplay, 2)
}

// TestChatRoomRepository_Delete 测试删除聊天室
func (suite *ChatRepositoryTestSuite) TestChatRoomRepository_Delete() {
	ctx := context.Background()

	room := CreateTestRoom(suite.T(), suite.db, suite.game.ID, models.RoomTypeRoleplay, "临时房间")

	err := suite.roomRepo.Delete(ctx, room.ID)
	assert.NoError(suite.T(), err)

	_, err = suite.roomRepo.FindByID(ctx, room.ID)
	assert.Error(suite.T(), err)
}

// TestChatMessageRepository_CreateAndList 测试发送和拉取消息
func (suite *ChatRepositoryTestSuite) TestChatMessageRepository_CreateAndList() {
	ctx := context.Background()

	room := CreateTestRoom(suite.T(), suite.db, suite.game.ID, models.RoomTypeMeetingRoom, "会议室")

	for i := 0; i < 5; i++ {
		msg := &models.ChatMessage{
			RoomID:     room.ID,
			SenderKind: models.SenderKindCharacter,
			SenderID:   1,
			SenderName: "夏洛克",
			Content:    fmt.Sprintf("消息%d", i),
		}
		assert.NoError(suite.T(), suite.msgRepo.Create(ctx, msg))
		assert.False(suite.T(), msg.PostedAt.IsZero())
	}

	// limit小于总数时返回最近的，按时间正序
	messages, err := suite.msgRepo.FindByRoom(ctx, room.ID, 3)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), messages, 3)
	assert.Equal(suite.T(), "消息2", messages[0].Content)
	assert.Equal(suite.T(), "消息4", messages[2].Content)
}

// TestChatMessageRepository_Fingerprint 测试房间内容指纹
func (suite *ChatRepositoryTestSuite) TestChatMessageRepository_Fingerprint() {
	ctx := context.Background()

	room := CreateTestRoom(suite.T(), suite.db, suite.game.ID, models.RoomTypeMeetingRoom, "会议室")

	empty, err := suite.msgRepo.Fingerprint(ctx, room.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), empty.MessageCount)
	assert.Equal(suite.T(), uint(0), empty.MaxID)

	msg := &models.ChatMessage{
		RoomID:     room.ID,
		SenderKind: models.SenderKindUser,
		SenderID:   1,
		SenderName: "主持人",
		Content:    "大家好",
	}
	assert.NoError(suite.T(), suite.msgRepo.Create(ctx, msg))

	after, err := suite.msgRepo.Fingerprint(ctx, room.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), after.MessageCount)
	assert.Equal(suite.T(), msg.ID, after.MaxID)
	assert.NotEqual(suite.T(), *empty, *after)

	// 删除消息后指纹仍然变化（计数下降，MaxID保留）
	assert.NoError(suite.T(), suite.msgRepo.Delete(ctx, msg.ID))

	deleted, err := suite.msgRepo.Fingerprint(ctx, room.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), deleted.MessageCount)
	assert.Equal(suite.T(), msg.ID, deleted.MaxID)
	assert.NotEqual(suite.T(), *after, *deleted)
}

// TestChatMessageRepository_Delete 测试删除消息
func (suite *ChatRepositoryTestSuite) TestChatMessageRepository_Delete() {
	ctx := context.Background()

	room := CreateTestRoom(suite.T(), suite.db, suite.game.ID, models.RoomTypeMeetingRoom, "会议室")

	msg := &models.ChatMessage{
		RoomID:     room.ID,
		SenderKind: models.SenderKindCharacter,
		SenderID:   2,
		SenderName: "华生",
		Content:    "待删除",
	}
	assert.NoError(suite.T(), suite.msgRepo.Create(ctx, msg))

	err := suite.msgRepo.Delete(ctx, msg.ID)
	assert.NoError(suite.T(), err)

	_, err = suite.msgRepo.FindByID(ctx, msg.ID)
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "消息不存在")

	messages, err := suite.msgRepo.FindByRoom(ctx, room.ID, 0)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), messages, 0)
}

func TestChatRepositorySuite(t *testing.T) {
	suite.Run(t, new(ChatRepositoryTestSuite))
}
