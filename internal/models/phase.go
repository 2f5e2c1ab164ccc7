package models

import (
	"fmt"
	"time"
)

// PhaseTime 阶段时间（昼/夜）
type PhaseTime string

const (
	PhaseTimeDay   PhaseTime = "DAY"
	PhaseTimeNight PhaseTime = "NIGHT"
)

// GamePhase 游戏阶段表
// 被新阶段取代后不再修改，只允许追加事件和更新角色状态
type GamePhase struct {
	BaseModel
	GameID          uint      `gorm:"not null;index:idx_game_phase,unique" json:"game_id"`
	Time            PhaseTime `gorm:"size:10;not null;index:idx_game_phase,unique" json:"time"`
	DayNumber       int       `gorm:"not null;index:idx_game_phase,unique" json:"day_number"` // 从1开始
	CharacterStatus JSONMap   `gorm:"type:json" json:"character_status"`                      // 角色ID -> 状态字符串
	StartedAt       time.Time `json:"started_at"`

	// 关联
	Events []PhaseEvent `gorm:"foreignKey:PhaseID" json:"events,omitempty"`
}

// PhaseEvent 阶段事件表（战报条目）
// draft=true 的事件仅主持人可见，发布后不可回退
type PhaseEvent struct {
	BaseModel
	PhaseID     uint       `gorm:"not null;index" json:"phase_id"`
	Draft       bool       `gorm:"default:true;index" json:"draft"`
	Template    string     `gorm:"size:1000;not null" json:"template"`
	ActorID     *uint      `gorm:"index" json:"actor_id,omitempty"`
	TargetID    *uint      `gorm:"index" json:"target_id,omitempty"`
	Clues       StringList `gorm:"type:json" json:"clues"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// 关联
	Actor  *Character `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Target *Character `gorm:"foreignKey:TargetID" json:"target,omitempty"`
}

// TableName 指定表名
func (GamePhase) TableName() string {
	return "game_phases"
}

// TableName 指定表名
func (PhaseEvent) TableName() string {
	return "phase_events"
}

// Label 阶段显示名，如 "DAY 2"
func (p *GamePhase) Label() string {
	return fmt.Sprintf("%s %d", p.Time, p.DayNumber)
}

// Next 计算下一阶段的昼夜和天数（昼->夜同天，夜->昼天数+1）
func (p *GamePhase) Next() (PhaseTime, int) {
	if p.Time == PhaseTimeDay {
		return PhaseTimeNight, p.DayNumber
	}
	return PhaseTimeDay, p.DayNumber + 1
}

// IsPublished 事件是否已发布
func (e *PhaseEvent) IsPublished() bool {
	return !e.Draft
}
