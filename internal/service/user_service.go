package service

import (
	"context"
	"fmt"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"github.com/JayPixl/ocmafia-old-sub000/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// userService 用户服务实现
type userService struct {
	db            *gorm.DB
	userRepo      repository.UserRepository
	authRepo      repository.UserAuthRepository
	characterRepo repository.CharacterRepository
	log           *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	authRepo repository.UserAuthRepository,
	characterRepo repository.CharacterRepository,
	log *zap.Logger,
) UserService {
	return &userService{
		db:            db,
		userRepo:      userRepo,
		authRepo:      authRepo,
		characterRepo: characterRepo,
		log:           log,
	}
}

// GetUserByID 获取用户信息
func (s *userService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile 更新用户资料
func (s *userService) UpdateProfile(ctx context.Context, userID uint, req *ProfileRequest) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if req.Nickname != "" {
		user.Nickname = req.Nickname
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	user.Bio = req.Bio

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户资料失败: %w", err)
	}
	return user, nil
}

// UpdatePassword 修改密码
func (s *userService) UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	auth, err := s.authRepo.FindByUserID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	ok, err := utils.VerifyPassword(oldPassword, auth.Password)
	if err != nil || !ok {
		return fmt.Errorf("原密码错误")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}

	if err := s.authRepo.UpdatePassword(ctx, userID, hashed); err != nil {
		return fmt.Errorf("更新密码失败: %w", err)
	}

	s.log.Info("Password updated", zap.Uint("user_id", userID))
	return nil
}

// BuildViewer 构造访问分类器的输入
// 匿名访问者传userID=0
func (s *userService) BuildViewer(ctx context.Context, userID uint) (*Viewer, error) {
	if userID == 0 {
		return &Viewer{}, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		// 令牌有效但用户已删除，按匿名处理
		return &Viewer{}, nil
	}

	characters, err := s.characterRepo.FindByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("查询用户角色失败: %w", err)
	}

	return &Viewer{
		UserID:     user.ID,
		IsAdmin:    user.IsAdmin(),
		Characters: characters,
	}, nil
}
