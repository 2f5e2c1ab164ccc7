package repository

import (
	"context"
	"errors"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"gorm.io/gorm"
)

// GameRepository 游戏仓储接口
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	Update(ctx context.Context, game *models.Game) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Game, error)
	FindByIDFull(ctx context.Context, id uint) (*models.Game, error)
	FindBySlug(ctx context.Context, slug string) (*models.Game, error)
	GetAll(ctx context.Context, status models.GameStatus, pagination *Pagination) ([]*models.Game, error)
	UpdateStatus(ctx context.Context, gameID uint, status models.GameStatus) error
	SetCurrentPhase(ctx context.Context, gameID uint, phaseID uint) error

	// 主持人管理
	AddHost(ctx context.Context, host *models.GameHost) error
	RemoveHost(ctx context.Context, gameID, userID uint) error
	IsHost(ctx context.Context, gameID, userID uint) (bool, error)

	// 参与者管理
	AddParticipant(ctx context.Context, participant *models.GameParticipant) error
	RemoveParticipant(ctx context.Context, gameID, characterID uint) error
	FindParticipants(ctx context.Context, gameID uint) ([]*models.GameParticipant, error)
	UpdateParticipantRole(ctx context.Context, participantID uint, roleName string) error
	CountParticipants(ctx context.Context, gameID uint) (int64, error)
}

// gameRepo 游戏仓储实现
type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建游戏仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建游戏
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

// Update 更新游戏
func (r *gameRepo) Update(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Save(game).Error
}

// Delete 删除游戏（软删除）
func (r *gameRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Game{}, id).Error
}

// FindByID 根据ID查找游戏（带主持人和参与者）
func (r *gameRepo) FindByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Preload("Hosts").
		Preload("Participants").
		First(&game, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("游戏不存在")
		}
		return nil, err
	}
	return &game, nil
}

// FindByIDFull 根据ID查找游戏（带全部关联）
func (r *gameRepo) FindByIDFull(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Preload("Hosts.User").
		Preload("Participants.Character").
		Preload("Phases", func(db *gorm.DB) *gorm.DB {
			return db.Order("game_phases.id ASC")
		}).
		Preload("ChatRooms").
		First(&game, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("游戏不存在")
		}
		return nil, err
	}
	return &game, nil
}

// FindBySlug 根据slug查找游戏
func (r *gameRepo) FindBySlug(ctx context.Context, slug string) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Preload("Hosts").
		Preload("Participants").
		Where("slug = ?", slug).
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("游戏不存在")
		}
		return nil, err
	}
	return &game, nil
}

// GetAll 获取游戏列表（可按状态过滤，分页）
func (r *gameRepo) GetAll(ctx context.Context, status models.GameStatus, pagination *Pagination) ([]*models.Game, error) {
	var games []*models.Game
	query := r.db.WithContext(ctx).Model(&models.Game{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&games).Error

	return games, err
}

// UpdateStatus 更新游戏状态
func (r *gameRepo) UpdateStatus(ctx context.Context, gameID uint, status models.GameStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ?", gameID).
		Update("status", status).Error
}

// SetCurrentPhase 设置当前阶段
func (r *gameRepo) SetCurrentPhase(ctx context.Context, gameID uint, phaseID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ?", gameID).
		Update("current_phase_id", phaseID).Error
}

// AddHost 添加主持人
func (r *gameRepo) AddHost(ctx context.Context, host *models.GameHost) error {
	return r.db.WithContext(ctx).Create(host).Error
}

// RemoveHost 移除主持人
func (r *gameRepo) RemoveHost(ctx context.Context, gameID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Delete(&models.GameHost{}).Error
}

// IsHost 检查用户是否为主持人
func (r *gameRepo) IsHost(ctx context.Context, gameID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameHost{}).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddParticipant 添加参与者
func (r *gameRepo) AddParticipant(ctx context.Context, participant *models.GameParticipant) error {
	if participant.JoinedAt.IsZero() {
		participant.JoinedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(participant).Error
}

// RemoveParticipant 移除参与者
func (r *gameRepo) RemoveParticipant(ctx context.Context, gameID, characterID uint) error {
	return r.db.WithContext(ctx).
		Where("game_id = ? AND character_id = ?", gameID, characterID).
		Delete(&models.GameParticipant{}).Error
}

// FindParticipants 查找本局所有参与者（带角色卡）
func (r *gameRepo) FindParticipants(ctx context.Context, gameID uint) ([]*models.GameParticipant, error) {
	var participants []*models.GameParticipant
	err := r.db.WithContext(ctx).
		Preload("Character").
		Where("game_id = ?", gameID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

// UpdateParticipantRole 更新参与者的身份
func (r *gameRepo) UpdateParticipantRole(ctx context.Context, participantID uint, roleName string) error {
	return r.db.WithContext(ctx).
		Model(&models.GameParticipant{}).
		Where("id = ?", participantID).
		Update("role_name", roleName).Error
}

// CountParticipants 统计参与者数量
func (r *gameRepo) CountParticipants(ctx context.Context, gameID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameParticipant{}).
		Where("game_id = ?", gameID).
		Count(&count).Error
	return count, err
}

// WithTx 使用事务
func (r *gameRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
