package service

import (
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"github.com/JayPixl/ocmafia-old-sub000/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Config 服务配置
type Config struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	ChatHistoryLimit   int
	MaxMessageLen      int
	UploadDir          string
	MediaBaseURL       string
	MaxUploadSize      int64
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:          "your-secret-key-change-in-production",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		ChatHistoryLimit:   100,
		MaxMessageLen:      2000,
		UploadDir:          "./data/uploads",
		MediaBaseURL:       "/static",
		MaxUploadSize:      5 << 20,
	}
}

// Services 服务集合
type Services struct {
	Auth      AuthService
	User      UserService
	Character CharacterService
	Game      GameService
	Report    ReportService
	Chat      ChatService
	Media     MediaService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, config *Config, log *zap.Logger) *Services {
	// 初始化仓储
	userRepo := repository.NewUserRepository(db)
	authRepo := repository.NewUserAuthRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)
	characterRepo := repository.NewCharacterRepository(db)
	gameRepo := repository.NewGameRepository(db)
	phaseRepo := repository.NewPhaseRepository(db)
	eventRepo := repository.NewEventRepository(db)
	roomRepo := repository.NewChatRoomRepository(db)
	messageRepo := repository.NewChatMessageRepository(db)

	// 初始化JWT管理器
	jwtManager := utils.NewJWTManager(
		config.JWTSecret,
		config.AccessTokenExpiry,
		config.RefreshTokenExpiry,
	)

	mediaService := NewMediaService(config, log)

	authService := NewAuthService(db, userRepo, authRepo, sessionRepo, jwtManager, log)
	userService := NewUserService(db, userRepo, authRepo, characterRepo, log)
	characterService := NewCharacterService(characterRepo, mediaService, log)
	gameService := NewGameService(db, gameRepo, phaseRepo, characterRepo, roomRepo, log)
	reportService := NewReportService(gameRepo, phaseRepo, eventRepo, characterRepo, log)
	chatService := NewChatService(config, gameRepo, roomRepo, messageRepo, characterRepo, log)

	return &Services{
		Auth:      authService,
		User:      userService,
		Character: characterService,
		Game:      gameService,
		Report:    reportService,
		Chat:      chatService,
		Media:     mediaService,
	}
}
