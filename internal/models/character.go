package models

// Character 角色卡表（玩家创建的OC角色）
type Character struct {
	BaseModel
	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	DisplayName string `gorm:"size:100" json:"display_name"`
	Avatar      string `gorm:"size:255" json:"avatar"`
	Pronouns    string `gorm:"size:50" json:"pronouns"`
	Description string `gorm:"size:2000" json:"description"`
	Status      string `gorm:"size:20;default:'active'" json:"status"` // active, retired

	// 关联
	Owner User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Character) TableName() string {
	return "characters"
}

// IsActive 检查角色是否可用
func (c *Character) IsActive() bool {
	return c.Status == "active"
}
