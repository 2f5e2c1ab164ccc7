package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"github.com/JayPixl/ocmafia-old-sub000/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserExists         = errors.New("用户已存在")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserBanned         = errors.New("用户已被封禁")
	ErrInvalidToken       = errors.New("无效的令牌")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// authService 认证服务实现
type authService struct {
	db          *gorm.DB
	userRepo    repository.UserRepository
	authRepo    repository.UserAuthRepository
	sessionRepo repository.UserSessionRepository
	jwtManager  *utils.JWTManager
	log         *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	authRepo repository.UserAuthRepository,
	sessionRepo repository.UserSessionRepository,
	jwtManager *utils.JWTManager,
	log *zap.Logger,
) AuthService {
	return &authService{
		db:          db,
		userRepo:    userRepo,
		authRepo:    authRepo,
		sessionRepo: sessionRepo,
		jwtManager:  jwtManager,
		log:         log,
	}
}

// Register 用户注册
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if !usernamePattern.MatchString(req.Username) {
		return nil, fmt.Errorf("用户名只能包含字母、数字、下划线和连字符，长度3-20")
	}
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("两次输入的密码不一致")
	}

	// 检查用户是否已存在
	if user, _ := s.userRepo.FindByUsername(ctx, req.Username); user != nil {
		return nil, fmt.Errorf("%w: 用户名已被占用", ErrUserExists)
	}
	if user, _ := s.userRepo.FindByEmail(ctx, req.Email); user != nil {
		return nil, fmt.Errorf("%w: 邮箱已被使用", ErrUserExists)
	}

	// 开始事务
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Nickname: req.Nickname,
		Role:     "user",
		Status:   "active",
	}
	if user.Nickname == "" {
		user.Nickname = req.Username
	}

	if err := s.userRepo.WithTx(tx).(repository.UserRepository).Create(ctx, user); err != nil {
		tx.Rollback()
		s.log.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	auth := &models.UserAuth{
		UserID:   user.ID,
		Password: hashedPassword,
	}
	if err := s.authRepo.WithTx(tx).(repository.UserAuthRepository).Create(ctx, auth); err != nil {
		tx.Rollback()
		s.log.Error("Failed to create auth", zap.Error(err))
		return nil, fmt.Errorf("创建认证信息失败: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("提交事务失败: %w", err)
	}

	s.log.Info("User registered",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))

	return s.issueTokens(ctx, user, req.IP, "")
}

// Login 用户登录（用户名或邮箱）
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	var user *models.User
	var err error
	if strings.Contains(req.Account, "@") {
		user, err = s.userRepo.FindByEmail(ctx, req.Account)
	} else {
		user, err = s.userRepo.FindByUsername(ctx, req.Account)
	}
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	if !user.CanLogin() {
		return nil, ErrUserBanned
	}

	auth, err := s.authRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// 账户锁定检查
	if auth.LockedUntil != nil && auth.LockedUntil.After(time.Now()) {
		return nil, fmt.Errorf("账户已锁定，请稍后再试")
	}

	ok, err := utils.VerifyPassword(req.Password, auth.Password)
	if err != nil || !ok {
		attempts := auth.LoginAttempts + 1
		_ = s.authRepo.UpdateLoginAttempts(ctx, user.ID, attempts)
		if attempts >= 5 {
			_ = s.authRepo.LockAccount(ctx, user.ID, time.Now().Add(15*time.Minute))
		}
		return nil, ErrInvalidCredentials
	}

	_ = s.authRepo.ResetLoginAttempts(ctx, user.ID)
	_ = s.userRepo.UpdateLastLogin(ctx, user.ID)

	s.log.Info("User logged in",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("ip", req.IP))

	return s.issueTokens(ctx, user, req.IP, req.Device)
}

// Logout 用户登出，清除该用户的所有会话
func (s *authService) Logout(ctx context.Context, userID uint, token string) error {
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		s.log.Warn("Failed to delete sessions", zap.Uint("user_id", userID), zap.Error(err))
	}
	s.log.Info("User logged out", zap.Uint("user_id", userID))
	return nil
}

// RefreshToken 刷新访问令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "refresh" {
		return nil, ErrInvalidToken
	}

	// 会话必须仍然有效（登出会删除会话）
	session, err := s.sessionRepo.FindByToken(ctx, refreshToken)
	if err != nil || session == nil || session.ExpireAt.Before(time.Now()) {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.CanLogin() {
		return nil, ErrUserBanned
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Email, user.Role, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ValidateToken 验证访问令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "access" {
		return nil, ErrInvalidToken
	}
	return &TokenClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// issueTokens 签发令牌并记录会话
func (s *authService) issueTokens(ctx context.Context, user *models.User, ip, device string) (*AuthResponse, error) {
	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		return nil, fmt.Errorf("生成会话ID失败: %w", err)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username, user.Email, user.Role, sessionID)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("生成刷新令牌失败: %w", err)
	}

	session := &models.UserSession{
		UserID:       user.ID,
		SessionID:    sessionID,
		Token:        refreshToken,
		IP:           ip,
		UserAgent:    device,
		LastActiveAt: time.Now(),
		ExpireAt:     time.Now().Add(s.jwtManager.GetTokenExpiry("refresh")),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.log.Warn("Failed to persist session", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:    "Bearer",
	}, nil
}
