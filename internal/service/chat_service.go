package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrRoomNotFound     = errors.New("聊天室不存在")
	ErrRoomNotCreatable = errors.New("该类型的聊天室不能手动创建")
	ErrRoomNotDeletable = errors.New("系统保留的聊天室不能删除")
	ErrSendNotPermitted = errors.New("无权在该聊天室发言")
	ErrMessageTooLong   = errors.New("消息过长")
	ErrEmptyMessage     = errors.New("消息不能为空")
)

// chatService 聊天服务实现
// 所有读写都先经过访问分类器，拒绝表现为跳转而不是403
type chatService struct {
	config        *Config
	gameRepo      repository.GameRepository
	roomRepo      repository.ChatRoomRepository
	messageRepo   repository.ChatMessageRepository
	characterRepo repository.CharacterRepository
	log           *zap.Logger
}

// NewChatService 创建聊天服务
func NewChatService(
	config *Config,
	gameRepo repository.GameRepository,
	roomRepo repository.ChatRoomRepository,
	messageRepo repository.ChatMessageRepository,
	characterRepo repository.CharacterRepository,
	log *zap.Logger,
) ChatService {
	return &chatService{
		config:        config,
		gameRepo:      gameRepo,
		roomRepo:      roomRepo,
		messageRepo:   messageRepo,
		characterRepo: characterRepo,
		log:           log,
	}
}

// ListRooms 列出访问者可见的聊天室
func (s *chatService) ListRooms(ctx context.Context, viewer *Viewer, gameID uint) (*Access, error) {
	game, rooms, err := s.loadGame(ctx, gameID)
	if err != nil {
		return redirectGames(), nil
	}
	return Classify(viewer, game, rooms, nil), nil
}

// EnterRoom 进入聊天室：分类+许可房间列表+（参与者）角色身份
// 无权访问或房间不存在时返回跳转信号
func (s *chatService) EnterRoom(ctx context.Context, viewer *Viewer, gameID, roomID uint) (*Access, error) {
	game, rooms, err := s.loadGame(ctx, gameID)
	if err != nil {
		return redirectGames(), nil
	}
	return ClassifyRoom(viewer, game, rooms, roomID), nil
}

// CreateRoom 创建聊天室（主持人，仅演绎室和私密房间）
func (s *chatService) CreateRoom(ctx context.Context, actorID, gameID uint, req *RoomRequest) (*models.ChatRoom, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, ErrGameNotFound
	}
	if !game.HostedBy(actorID) {
		return nil, ErrNotHost
	}
	if !req.Type.Valid() || !req.Type.UserCreatable() {
		return nil, ErrRoomNotCreatable
	}

	room := &models.ChatRoom{
		GameID:    gameID,
		Type:      req.Type,
		Name:      req.Name,
		AllowList: models.UintList(req.AllowList),
	}
	if room.Type != models.RoomTypePrivate {
		room.AllowList = nil
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("创建聊天室失败: %w", err)
	}

	s.log.Info("Chat room created",
		zap.Uint("game_id", gameID),
		zap.Uint("room_id", room.ID),
		zap.String("type", string(room.Type)))
	return room, nil
}

// DeleteRoom 删除聊天室（主持人，系统保留房间不可删）
func (s *chatService) DeleteRoom(ctx context.Context, actorID, gameID, roomID uint) error {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return ErrGameNotFound
	}
	if !game.HostedBy(actorID) {
		return ErrNotHost
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil || room.GameID != gameID {
		return ErrRoomNotFound
	}
	if room.Type.System() {
		return ErrRoomNotDeletable
	}

	if err := s.roomRepo.Delete(ctx, roomID); err != nil {
		return fmt.Errorf("删除聊天室失败: %w", err)
	}
	return nil
}

// GetMessages 拉取消息列表（按分类过滤，顺序稳定）
func (s *chatService) GetMessages(ctx context.Context, viewer *Viewer, gameID, roomID uint) ([]*models.ChatMessage, *Access, error) {
	game, rooms, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, redirectGames(), nil
	}
	access := ClassifyRoom(viewer, game, rooms, roomID)
	if access.Denied() {
		return nil, access, nil
	}

	messages, err := s.messageRepo.FindByRoom(ctx, roomID, s.config.ChatHistoryLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("查询消息失败: %w", err)
	}
	return messages, access, nil
}

// SendMessage 发言
// 发送者身份由分类决定：主持人/旁观者以用户身份，参与者以角色身份
func (s *chatService) SendMessage(ctx context.Context, viewer *Viewer, gameID, roomID uint, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if s.config.MaxMessageLen > 0 && len([]rune(content)) > s.config.MaxMessageLen {
		return nil, ErrMessageTooLong
	}

	game, rooms, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, ErrGameNotFound
	}

	var target *models.ChatRoom
	for _, r := range rooms {
		if r.ID == roomID {
			target = r
			break
		}
	}
	if target == nil {
		return nil, ErrRoomNotFound
	}

	access := Classify(viewer, game, rooms, target)
	if access.Denied() || !access.CanSend(viewer, game, target) {
		return nil, ErrSendNotPermitted
	}

	message := &models.ChatMessage{RoomID: roomID, Content: content}
	if access.Kind == ViewerParticipant {
		message.SenderKind = models.SenderKindCharacter
		message.SenderID = access.Character.ID
		message.SenderName = access.Character.DisplayName
	} else {
		user, err := s.senderUser(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
		message.SenderKind = models.SenderKindUser
		message.SenderID = user.ID
		message.SenderName = user.Username
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("发送消息失败: %w", err)
	}

	// 变更检测靠下一轮指纹轮询，这里不主动推送
	s.log.Debug("Message sent",
		zap.Uint("room_id", roomID),
		zap.String("sender", message.SenderName))
	return message, nil
}

// DeleteMessage 删除消息（仅主持人，软删除）
func (s *chatService) DeleteMessage(ctx context.Context, actorID, gameID, roomID, messageID uint) error {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return ErrGameNotFound
	}
	if !game.HostedBy(actorID) {
		return ErrNotHost
	}

	message, err := s.messageRepo.FindByID(ctx, messageID)
	if err != nil || message.RoomID != roomID {
		return errors.New("消息不存在")
	}
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil || room.GameID != gameID {
		return ErrRoomNotFound
	}

	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		return fmt.Errorf("删除消息失败: %w", err)
	}

	s.log.Info("Message deleted",
		zap.Uint("room_id", roomID),
		zap.Uint("message_id", messageID),
		zap.Uint("actor_id", actorID))
	return nil
}

// RoomFingerprint 计算房间内容指纹（供变更通知器轮询）
func (s *chatService) RoomFingerprint(ctx context.Context, roomID uint) (*repository.RoomFingerprint, error) {
	return s.messageRepo.Fingerprint(ctx, roomID)
}

// loadGame 加载游戏及其全部聊天室
func (s *chatService) loadGame(ctx context.Context, gameID uint) (*models.Game, []*models.ChatRoom, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, nil, ErrGameNotFound
	}
	rooms, err := s.roomRepo.FindByGame(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询聊天室失败: %w", err)
	}
	return game, rooms, nil
}

// senderUser 查询发言用户
func (s *chatService) senderUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.gameRepo.GetDB().WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	return &user, nil
}
