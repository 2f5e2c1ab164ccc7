package models

import (
	"time"
)

// RoomType 聊天室类型
// 可删除性和公开可见性是类型本身的属性，调用方不再各自判断
type RoomType string

const (
	RoomTypePreGame     RoomType = "PRE_GAME"     // 赛前大厅，建局时自动创建
	RoomTypeMeetingRoom RoomType = "MEETING_ROOM" // 会议室，建局时自动创建
	RoomTypeRoleplay    RoomType = "ROLEPLAY"     // 演绎室，主持人可增删
	RoomTypePrivate     RoomType = "PRIVATE"      // 私密房间，带角色白名单
	RoomTypePostGame    RoomType = "POST_GAME"    // 赛后大厅，建局时自动创建
)

// System 是否为系统保留房间（随游戏创建，不可删除）
func (t RoomType) System() bool {
	switch t {
	case RoomTypePreGame, RoomTypeMeetingRoom, RoomTypePostGame:
		return true
	}
	return false
}

// UserCreatable 是否允许主持人创建/删除
func (t RoomType) UserCreatable() bool {
	return t == RoomTypeRoleplay || t == RoomTypePrivate
}

// Public 是否对旁观者公开可见
func (t RoomType) Public() bool {
	return t == RoomTypeMeetingRoom || t == RoomTypeRoleplay
}

// Valid 是否为合法类型
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypePreGame, RoomTypeMeetingRoom, RoomTypeRoleplay, RoomTypePrivate, RoomTypePostGame:
		return true
	}
	return false
}

// ChatRoom 聊天室表
type ChatRoom struct {
	BaseModel
	GameID    uint     `gorm:"not null;index" json:"game_id"`
	Type      RoomType `gorm:"size:20;not null;index" json:"type"`
	Name      string   `gorm:"size:100;not null" json:"name"`
	AllowList UintList `gorm:"type:json" json:"allow_list"` // 仅 PRIVATE 房间使用，角色ID白名单

	// 关联
	Messages []ChatMessage `gorm:"foreignKey:RoomID" json:"messages,omitempty"`
}

// SenderKind 消息发送者类别
type SenderKind string

const (
	SenderKindUser      SenderKind = "USER"      // 以用户身份发言（主持人或旁观者）
	SenderKindCharacter SenderKind = "CHARACTER" // 参与者以角色身份发言
)

// ChatMessage 聊天消息表
// 创建后不可修改，仅主持人可删除（软删除）
type ChatMessage struct {
	BaseModel
	RoomID      uint       `gorm:"not null;index" json:"room_id"`
	SenderKind  SenderKind `gorm:"size:20;not null" json:"sender_kind"`
	SenderID    uint       `gorm:"not null;index" json:"sender_id"` // 用户ID或角色ID，由SenderKind决定
	SenderName  string     `gorm:"size:100;not null" json:"sender_name"`
	Content     string     `gorm:"size:2000;not null" json:"content"`
	PostedAt    time.Time  `gorm:"index" json:"posted_at"`
}

// TableName 指定表名
func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// TableName 指定表名
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Allows 检查角色是否在私密房间白名单内
// 非私密房间恒为 true
func (r *ChatRoom) Allows(characterID uint) bool {
	if r.Type != RoomTypePrivate {
		return true
	}
	return r.AllowList.Contains(characterID)
}
