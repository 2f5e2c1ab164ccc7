package repository

import (
	"context"
	"errors"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"gorm.io/gorm"
)

// CharacterRepository 角色卡仓储接口
type CharacterRepository interface {
	BaseRepository
	Create(ctx context.Context, character *models.Character) error
	Update(ctx context.Context, character *models.Character) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Character, error)
	FindByOwner(ctx context.Context, ownerID uint) ([]*models.Character, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*models.Character, error)
	GetAll(ctx context.Context, pagination *Pagination) ([]*models.Character, error)
}

// characterRepo 角色卡仓储实现
type characterRepo struct {
	*BaseRepo
}

// NewCharacterRepository 创建角色卡仓储
func NewCharacterRepository(db *gorm.DB) CharacterRepository {
	return &characterRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建角色
func (r *characterRepo) Create(ctx context.Context, character *models.Character) error {
	return r.db.WithContext(ctx).Create(character).Error
}

// Update 更新角色
func (r *characterRepo) Update(ctx context.Context, character *models.Character) error {
	return r.db.WithContext(ctx).Save(character).Error
}

// Delete 删除角色（软删除）
func (r *characterRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Character{}, id).Error
}

// FindByID 根据ID查找角色
func (r *characterRepo) FindByID(ctx context.Context, id uint) (*models.Character, error) {
	var character models.Character
	err := r.db.WithContext(ctx).First(&character, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("角色不存在")
		}
		return nil, err
	}
	return &character, nil
}

// FindByOwner 查找用户拥有的所有角色
func (r *characterRepo) FindByOwner(ctx context.Context, ownerID uint) ([]*models.Character, error) {
	var characters []*models.Character
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&characters).Error
	return characters, err
}

// FindByIDs 批量查找角色
func (r *characterRepo) FindByIDs(ctx context.Context, ids []uint) ([]*models.Character, error) {
	var characters []*models.Character
	if len(ids) == 0 {
		return characters, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&characters).Error
	return characters, err
}

// GetAll 获取所有角色（分页）
func (r *characterRepo) GetAll(ctx context.Context, pagination *Pagination) ([]*models.Character, error) {
	var characters []*models.Character
	query := r.db.WithContext(ctx).Model(&models.Character{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&characters).Error

	return characters, err
}

// WithTx 使用事务
func (r *characterRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &characterRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
