package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrCharacterNotFound = errors.New("角色不存在")
	ErrNotCharacterOwner = errors.New("只能操作自己的角色")
)

// characterService 角色卡服务实现
type characterService struct {
	characterRepo repository.CharacterRepository
	media         MediaService
	log           *zap.Logger
}

// NewCharacterService 创建角色卡服务
func NewCharacterService(
	characterRepo repository.CharacterRepository,
	media MediaService,
	log *zap.Logger,
) CharacterService {
	return &characterService{
		characterRepo: characterRepo,
		media:         media,
		log:           log,
	}
}

// CreateCharacter 创建角色
func (s *characterService) CreateCharacter(ctx context.Context, ownerID uint, req *CharacterRequest) (*models.Character, error) {
	character := &models.Character{
		OwnerID:     ownerID,
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Pronouns:    req.Pronouns,
		Description: req.Description,
		Status:      "active",
	}
	if character.DisplayName == "" {
		character.DisplayName = req.Name
	}

	if err := s.characterRepo.Create(ctx, character); err != nil {
		return nil, fmt.Errorf("创建角色失败: %w", err)
	}

	s.log.Info("Character created",
		zap.Uint("character_id", character.ID),
		zap.Uint("owner_id", ownerID),
		zap.String("name", character.Name))
	return character, nil
}

// UpdateCharacter 更新角色
func (s *characterService) UpdateCharacter(ctx context.Context, ownerID, characterID uint, req *CharacterRequest) (*models.Character, error) {
	character, err := s.ownedCharacter(ctx, ownerID, characterID)
	if err != nil {
		return nil, err
	}

	character.Name = req.Name
	character.DisplayName = req.DisplayName
	character.Pronouns = req.Pronouns
	character.Description = req.Description
	if character.DisplayName == "" {
		character.DisplayName = req.Name
	}

	if err := s.characterRepo.Update(ctx, character); err != nil {
		return nil, fmt.Errorf("更新角色失败: %w", err)
	}
	return character, nil
}

// DeleteCharacter 删除角色
func (s *characterService) DeleteCharacter(ctx context.Context, ownerID, characterID uint) error {
	if _, err := s.ownedCharacter(ctx, ownerID, characterID); err != nil {
		return err
	}
	if err := s.characterRepo.Delete(ctx, characterID); err != nil {
		return fmt.Errorf("删除角色失败: %w", err)
	}
	return nil
}

// GetCharacter 获取角色信息
func (s *characterService) GetCharacter(ctx context.Context, characterID uint) (*models.Character, error) {
	character, err := s.characterRepo.FindByID(ctx, characterID)
	if err != nil {
		return nil, ErrCharacterNotFound
	}
	return character, nil
}

// ListCharacters 列出用户的角色
func (s *characterService) ListCharacters(ctx context.Context, ownerID uint) ([]*models.Character, error) {
	return s.characterRepo.FindByOwner(ctx, ownerID)
}

// UpdateAvatar 上传并设置角色头像
func (s *characterService) UpdateAvatar(ctx context.Context, ownerID, characterID uint, upload *Upload) (*models.Character, error) {
	character, err := s.ownedCharacter(ctx, ownerID, characterID)
	if err != nil {
		return nil, err
	}

	url, err := s.media.SaveImage(ctx, upload)
	if err != nil {
		return nil, err
	}

	character.Avatar = url
	if err := s.characterRepo.Update(ctx, character); err != nil {
		return nil, fmt.Errorf("更新角色头像失败: %w", err)
	}
	return character, nil
}

// ownedCharacter 查找角色并校验归属
func (s *characterService) ownedCharacter(ctx context.Context, ownerID, characterID uint) (*models.Character, error) {
	character, err := s.characterRepo.FindByID(ctx, characterID)
	if err != nil {
		return nil, ErrCharacterNotFound
	}
	if character.OwnerID != ownerID {
		return nil, ErrNotCharacterOwner
	}
	return character, nil
}
