package repository

import (
	"context"
	"errors"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"gorm.io/gorm"
)

// PhaseRepository 游戏阶段仓储接口
type PhaseRepository interface {
	BaseRepository
	Create(ctx context.Context, phase *models.GamePhase) error
	Update(ctx context.Context, phase *models.GamePhase) error
	FindByID(ctx context.Context, id uint) (*models.GamePhase, error)
	FindByGame(ctx context.Context, gameID uint) ([]*models.GamePhase, error)
	FindLatest(ctx context.Context, gameID uint) (*models.GamePhase, error)
	UpdateCharacterStatus(ctx context.Context, phaseID uint, status models.JSONMap) error
}

// phaseRepo 游戏阶段仓储实现
type phaseRepo struct {
	*BaseRepo
}

// NewPhaseRepository 创建游戏阶段仓储
func NewPhaseRepository(db *gorm.DB) PhaseRepository {
	return &phaseRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建阶段
func (r *phaseRepo) Create(ctx context.Context, phase *models.GamePhase) error {
	if phase.StartedAt.IsZero() {
		phase.StartedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(phase).Error
}

// Update 更新阶段
func (r *phaseRepo) Update(ctx context.Context, phase *models.GamePhase) error {
	return r.db.WithContext(ctx).Save(phase).Error
}

// FindByID 根据ID查找阶段（带事件）
func (r *phaseRepo) FindByID(ctx context.Context, id uint) (*models.GamePhase, error) {
	var phase models.GamePhase
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("phase_events.id ASC")
		}).
		First(&phase, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("阶段不存在")
		}
		return nil, err
	}
	return &phase, nil
}

// FindByGame 查找本局所有阶段（按时间顺序）
func (r *phaseRepo) FindByGame(ctx context.Context, gameID uint) ([]*models.GamePhase, error) {
	var phases []*models.GamePhase
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("phase_events.id ASC")
		}).
		Where("game_id = ?", gameID).
		Order("id ASC").
		Find(&phases).Error
	return phases, err
}

// FindLatest 查找本局最新阶段
func (r *phaseRepo) FindLatest(ctx context.Context, gameID uint) (*models.GamePhase, error) {
	var phase models.GamePhase
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id DESC").
		First(&phase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("阶段不存在")
		}
		return nil, err
	}
	return &phase, nil
}

// UpdateCharacterStatus 更新阶段的角色状态快照
func (r *phaseRepo) UpdateCharacterStatus(ctx context.Context, phaseID uint, status models.JSONMap) error {
	return r.db.WithContext(ctx).
		Model(&models.GamePhase{}).
		Where("id = ?", phaseID).
		Update("character_status", status).Error
}

// WithTx 使用事务
func (r *phaseRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &phaseRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// EventRepository 阶段事件仓储接口
type EventRepository interface {
	BaseRepository
	Create(ctx context.Context, event *models.PhaseEvent) error
	Update(ctx context.Context, event *models.PhaseEvent) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.PhaseEvent, error)
	FindByPhase(ctx context.Context, phaseID uint, includeDrafts bool) ([]*models.PhaseEvent, error)
	PublishByPhase(ctx context.Context, phaseID uint) (int64, error)
}

// eventRepo 阶段事件仓储实现
type eventRepo struct {
	*BaseRepo
}

// NewEventRepository 创建阶段事件仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建事件
func (r *eventRepo) Create(ctx context.Context, event *models.PhaseEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// Update 更新事件
func (r *eventRepo) Update(ctx context.Context, event *models.PhaseEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// Delete 删除事件（软删除）
func (r *eventRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PhaseEvent{}, id).Error
}

// FindByID 根据ID查找事件
func (r *eventRepo) FindByID(ctx context.Context, id uint) (*models.PhaseEvent, error) {
	var event models.PhaseEvent
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Preload("Target").
		First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("事件不存在")
		}
		return nil, err
	}
	return &event, nil
}

// FindByPhase 查找阶段的事件，includeDrafts=false 时只返回已发布事件
func (r *eventRepo) FindByPhase(ctx context.Context, phaseID uint, includeDrafts bool) ([]*models.PhaseEvent, error) {
	var events []*models.PhaseEvent
	query := r.db.WithContext(ctx).
		Preload("Actor").
		Preload("Target").
		Where("phase_id = ?", phaseID)
	if !includeDrafts {
		query = query.Where("draft = ?", false)
	}
	err := query.Order("id ASC").Find(&events).Error
	return events, err
}

// PublishByPhase 发布阶段的全部草稿事件，返回发布数量
// 已发布的事件不受影响，重复调用是幂等的
func (r *eventRepo) PublishByPhase(ctx context.Context, phaseID uint) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.PhaseEvent{}).
		Where("phase_id = ? AND draft = ?", phaseID, true).
		Updates(map[string]interface{}{
			"draft":        false,
			"published_at": now,
		})
	return result.RowsAffected, result.Error
}

// WithTx 使用事务
func (r *eventRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &eventRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
