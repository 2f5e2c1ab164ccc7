package service

import (
	"context"
	"io"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
)

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, userID uint, token string) error
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

// UserService 用户服务接口
type UserService interface {
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, req *ProfileRequest) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	BuildViewer(ctx context.Context, userID uint) (*Viewer, error)
}

// CharacterService 角色卡服务接口
type CharacterService interface {
	CreateCharacter(ctx context.Context, ownerID uint, req *CharacterRequest) (*models.Character, error)
	UpdateCharacter(ctx context.Context, ownerID, characterID uint, req *CharacterRequest) (*models.Character, error)
	DeleteCharacter(ctx context.Context, ownerID, characterID uint) error
	GetCharacter(ctx context.Context, characterID uint) (*models.Character, error)
	ListCharacters(ctx context.Context, ownerID uint) ([]*models.Character, error)
	UpdateAvatar(ctx context.Context, ownerID, characterID uint, upload *Upload) (*models.Character, error)
}

// GameService 游戏服务接口
type GameService interface {
	CreateGame(ctx context.Context, creatorID uint, req *CreateGameRequest) (*models.Game, error)
	GetGame(ctx context.Context, gameID uint) (*models.Game, error)
	GetGameBySlug(ctx context.Context, slug string) (*models.Game, error)
	ListGames(ctx context.Context, status models.GameStatus, page, pageSize int) ([]*models.Game, int64, error)

	AddHost(ctx context.Context, actorID, gameID, userID uint) error
	RemoveHost(ctx context.Context, actorID, gameID, userID uint) error

	JoinGame(ctx context.Context, userID, gameID, characterID uint) error
	LeaveGame(ctx context.Context, userID, gameID, characterID uint) error

	StartGame(ctx context.Context, actorID, gameID uint) (*models.Game, error)
	AdvancePhase(ctx context.Context, actorID, gameID uint) (*models.GamePhase, error)
	UpdateCharacterStatus(ctx context.Context, actorID, gameID, phaseID uint, status map[string]interface{}) error
	CompleteGame(ctx context.Context, actorID, gameID uint, winnerFaction string) (*models.Game, error)
}

// ReportService 战报服务接口
type ReportService interface {
	CreateEvent(ctx context.Context, actorID, gameID, phaseID uint, req *EventRequest) (*models.PhaseEvent, error)
	UpdateEvent(ctx context.Context, actorID, gameID, eventID uint, req *EventRequest) (*models.PhaseEvent, error)
	DeleteEvent(ctx context.Context, actorID, gameID, eventID uint) error
	PublishEvent(ctx context.Context, actorID, gameID, eventID uint) (*models.PhaseEvent, error)
	PublishPhase(ctx context.Context, actorID, gameID, phaseID uint) (int64, error)
	GetPhaseReport(ctx context.Context, viewer *Viewer, gameID, phaseID uint) (*PhaseReport, error)
}

// ChatService 聊天服务接口
type ChatService interface {
	ListRooms(ctx context.Context, viewer *Viewer, gameID uint) (*Access, error)
	EnterRoom(ctx context.Context, viewer *Viewer, gameID, roomID uint) (*Access, error)
	CreateRoom(ctx context.Context, actorID, gameID uint, req *RoomRequest) (*models.ChatRoom, error)
	DeleteRoom(ctx context.Context, actorID, gameID, roomID uint) error
	GetMessages(ctx context.Context, viewer *Viewer, gameID, roomID uint) ([]*models.ChatMessage, *Access, error)
	SendMessage(ctx context.Context, viewer *Viewer, gameID, roomID uint, content string) (*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, actorID, gameID, roomID, messageID uint) error
	RoomFingerprint(ctx context.Context, roomID uint) (*repository.RoomFingerprint, error)
}

// MediaService 媒体上传服务接口
type MediaService interface {
	SaveImage(ctx context.Context, upload *Upload) (string, error)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=20"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Nickname        string `json:"nickname"`
	IP              string `json:"-"` // 客户端IP，由handler设置
}

// LoginRequest 登录请求
type LoginRequest struct {
	Account  string `json:"account" binding:"required"` // 用户名或邮箱
	Password string `json:"password" binding:"required"`
	Device   string `json:"device"`
	IP       string `json:"-"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
}

// TokenClaims JWT Claims
type TokenClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ProfileRequest 资料更新请求
type ProfileRequest struct {
	Nickname string `json:"nickname" binding:"max=50"`
	Avatar   string `json:"avatar" binding:"max=255"`
	Bio      string `json:"bio" binding:"max=2000"`
}

// CharacterRequest 角色卡创建/更新请求
type CharacterRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=50"`
	DisplayName string `json:"display_name" binding:"max=100"`
	Pronouns    string `json:"pronouns" binding:"max=50"`
	Description string `json:"description" binding:"max=2000"`
}

// CreateGameRequest 创建游戏请求
type CreateGameRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Description string   `json:"description" binding:"max=2000"`
	MaxPlayers  int      `json:"max_players" binding:"omitempty,min=1,max=50"`
	RoleList    []string `json:"role_list"`
}

// EventRequest 战报事件创建/更新请求
type EventRequest struct {
	Template string   `json:"template" binding:"required,max=1000"`
	ActorID  *uint    `json:"actor_id"`
	TargetID *uint    `json:"target_id"`
	Clues    []string `json:"clues"`
}

// PhaseReport 阶段战报（按访问者分类过滤）
type PhaseReport struct {
	Phase  *models.GamePhase    `json:"phase"`
	Events []*models.PhaseEvent `json:"events"`
	Viewer ViewerKind           `json:"viewer"`
}

// RoomRequest 创建聊天室请求
type RoomRequest struct {
	Type      models.RoomType `json:"type" binding:"required"`
	Name      string          `json:"name" binding:"required,min=1,max=100"`
	AllowList []uint          `json:"allow_list"` // 仅PRIVATE房间有效
}

// Upload 上传的文件流
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}
