package repository

import (
	"context"
	"errors"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"gorm.io/gorm"
)

// ChatRoomRepository 聊天室仓储接口
type ChatRoomRepository interface {
	BaseRepository
	Create(ctx context.Context, room *models.ChatRoom) error
	Update(ctx context.Context, room *models.ChatRoom) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.ChatRoom, error)
	FindByGame(ctx context.Context, gameID uint) ([]*models.ChatRoom, error)
	FindByGameAndType(ctx context.Context, gameID uint, roomType models.RoomType) ([]*models.ChatRoom, error)
}

// chatRoomRepo 聊天室仓储实现
type chatRoomRepo struct {
	*BaseRepo
}

// NewChatRoomRepository 创建聊天室仓储
func NewChatRoomRepository(db *gorm.DB) ChatRoomRepository {
	return &chatRoomRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建聊天室
func (r *chatRoomRepo) Create(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// Update 更新聊天室
func (r *chatRoomRepo) Update(ctx context.Context, room *models.ChatRoom) error {
	return r.db.WithContext(ctx).Save(room).Error
}

// Delete 删除聊天室（软删除）
func (r *chatRoomRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ChatRoom{}, id).Error
}

// FindByID 根据ID查找聊天室
func (r *chatRoomRepo) FindByID(ctx context.Context, id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("聊天室不存在")
		}
		return nil, err
	}
	return &room, nil
}

// FindByGame 查找本局所有聊天室
func (r *chatRoomRepo) FindByGame(ctx context.Context, gameID uint) ([]*models.ChatRoom, error) {
	var rooms []*models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id ASC").
		Find(&rooms).Error
	return rooms, err
}

// FindByGameAndType 按类型查找本局聊天室
func (r *chatRoomRepo) FindByGameAndType(ctx context.Context, gameID uint, roomType models.RoomType) ([]*models.ChatRoom, error) {
	var rooms []*models.ChatRoom
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND type = ?", gameID, roomType).
		Order("id ASC").
		Find(&rooms).Error
	return rooms, err
}

// WithTx 使用事务
func (r *chatRoomRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &chatRoomRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// RoomFingerprint 房间内容指纹，用于轮询比较
// 统计含软删除的行，删除消息也会触发变更
type RoomFingerprint struct {
	MessageCount int64     `json:"message_count"`
	MaxID        uint      `json:"max_id"`
	LastChange   time.Time `json:"last_change"`
}

// ChatMessageRepository 聊天消息仓储接口
type ChatMessageRepository interface {
	BaseRepository
	Create(ctx context.Context, message *models.ChatMessage) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.ChatMessage, error)
	FindByRoom(ctx context.Context, roomID uint, limit int) ([]*models.ChatMessage, error)
	Fingerprint(ctx context.Context, roomID uint) (*RoomFingerprint, error)
}

// chatMessageRepo 聊天消息仓储实现
type chatMessageRepo struct {
	*BaseRepo
}

// NewChatMessageRepository 创建聊天消息仓储
func NewChatMessageRepository(db *gorm.DB) ChatMessageRepository {
	return &chatMessageRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建消息
func (r *chatMessageRepo) Create(ctx context.Context, message *models.ChatMessage) error {
	if message.PostedAt.IsZero() {
		message.PostedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(message).Error
}

// Delete 删除消息（软删除）
func (r *chatMessageRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.ChatMessage{}, id).Error
}

// FindByID 根据ID查找消息
func (r *chatMessageRepo) FindByID(ctx context.Context, id uint) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.WithContext(ctx).First(&message, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("消息不存在")
		}
		return nil, err
	}
	return &message, nil
}

// FindByRoom 查找房间最近的消息，按发送时间正序返回
func (r *chatMessageRepo) FindByRoom(ctx context.Context, roomID uint, limit int) ([]*models.ChatMessage, error) {
	var messages []*models.ChatMessage
	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	// 倒序查询后翻转为时间正序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Fingerprint 计算房间内容指纹
// Unscoped统计使删除的消息也反映在指纹里
func (r *chatMessageRepo) Fingerprint(ctx context.Context, roomID uint) (*RoomFingerprint, error) {
	fp := &RoomFingerprint{}

	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("room_id = ?", roomID).
		Count(&fp.MessageCount).Error
	if err != nil {
		return nil, err
	}

	type row struct {
		MaxID      *uint
		LastChange *time.Time
	}
	var res row
	err = r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Unscoped().
		Select("MAX(id) AS max_id, MAX(updated_at) AS last_change").
		Where("room_id = ?", roomID).
		Scan(&res).Error
	if err != nil {
		return nil, err
	}
	if res.MaxID != nil {
		fp.MaxID = *res.MaxID
	}
	if res.LastChange != nil {
		fp.LastChange = *res.LastChange
	}
	return fp, nil
}

// WithTx 使用事务
func (r *chatMessageRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &chatMessageRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
