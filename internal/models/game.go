package models

import (
	"time"
)

// GameStatus 游戏状态
type GameStatus string

const (
	GameStatusEnlisting GameStatus = "ENLISTING" // 报名中
	GameStatusOngoing   GameStatus = "ONGOING"   // 进行中
	GameStatusCompleted GameStatus = "COMPLETED" // 已结束
)

// Game 游戏对局表
type Game struct {
	BaseModel
	Slug           string     `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	Name           string     `gorm:"size:100;not null" json:"name"`
	Description    string     `gorm:"size:2000" json:"description"`
	Banner         string     `gorm:"size:255" json:"banner"`
	Status         GameStatus `gorm:"size:20;default:'ENLISTING';index" json:"status"`
	CurrentPhaseID *uint      `json:"current_phase_id,omitempty"` // 必须指向本局的阶段，或为空
	MaxPlayers     int        `gorm:"default:12" json:"max_players"`
	RoleList       StringList `gorm:"type:json" json:"role_list"` // 开局时按此列表分配身份
	WinnerFaction  string     `gorm:"size:50" json:"winner_faction"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	// 关联
	Hosts        []GameHost        `gorm:"foreignKey:GameID" json:"hosts,omitempty"`
	Participants []GameParticipant `gorm:"foreignKey:GameID" json:"participants,omitempty"`
	Phases       []GamePhase       `gorm:"foreignKey:GameID" json:"phases,omitempty"`
	ChatRooms    []ChatRoom        `gorm:"foreignKey:GameID" json:"chat_rooms,omitempty"`
}

// GameHost 游戏主持人表
type GameHost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GameID    uint      `gorm:"not null;index:idx_game_host,unique" json:"game_id"`
	UserID    uint      `gorm:"not null;index:idx_game_host,unique" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// 关联
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// GameParticipant 游戏参与者表（已报名的角色）
type GameParticipant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	GameID      uint      `gorm:"not null;index:idx_game_participant,unique" json:"game_id"`
	CharacterID uint      `gorm:"not null;index:idx_game_participant,unique" json:"character_id"`
	RoleName    string    `gorm:"size:50" json:"role_name"` // 开局时分配
	JoinedAt    time.Time `json:"joined_at"`
	CreatedAt   time.Time `json:"created_at"`

	// 关联
	Character Character `gorm:"foreignKey:CharacterID" json:"character,omitempty"`
}

// TableName 指定表名
func (Game) TableName() string {
	return "games"
}

// TableName 指定表名
func (GameHost) TableName() string {
	return "game_hosts"
}

// TableName 指定表名
func (GameParticipant) TableName() string {
	return "game_participants"
}

// IsEnlisting 是否处于报名阶段
func (g *Game) IsEnlisting() bool {
	return g.Status == GameStatusEnlisting
}

// IsOngoing 是否进行中
func (g *Game) IsOngoing() bool {
	return g.Status == GameStatusOngoing
}

// IsCompleted 是否已结束
func (g *Game) IsCompleted() bool {
	return g.Status == GameStatusCompleted
}

// HostedBy 检查用户是否为本局主持人
func (g *Game) HostedBy(userID uint) bool {
	for _, h := range g.Hosts {
		if h.UserID == userID {
			return true
		}
	}
	return false
}

// HasParticipant 检查角色是否已报名本局
func (g *Game) HasParticipant(characterID uint) bool {
	return g.FindParticipant(characterID) != nil
}

// FindParticipant 查找角色的报名记录
func (g *Game) FindParticipant(characterID uint) *GameParticipant {
	for i := range g.Participants {
		if g.Participants[i].CharacterID == characterID {
			return &g.Participants[i]
		}
	}
	return nil
}
