package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		// 用户系统
		&models.User{},
		&models.UserAuth{},
		&models.UserSession{},
		&models.Character{},

		// 游戏系统
		&models.Game{},
		&models.GameHost{},
		&models.GameParticipant{},
		&models.GamePhase{},
		&models.PhaseEvent{},

		// 聊天系统
		&models.ChatRoom{},
		&models.ChatMessage{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestUser 创建测试用户
func CreateTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Nickname: username,
		Status:   "active",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestCharacter 创建测试角色
func CreateTestCharacter(t *testing.T, db *gorm.DB, ownerID uint, name string) *models.Character {
	character := &models.Character{
		OwnerID:     ownerID,
		Name:        name,
		DisplayName: name,
		Status:      "active",
	}
	require.NoError(t, db.Create(character).Error)
	return character
}

// CreateTestGame 创建测试游戏（带主持人）
func CreateTestGame(t *testing.T, db *gorm.DB, hostID uint, name string) *models.Game {
	game := &models.Game{
		Name:       name,
		Slug:       fmt.Sprintf("%s-%d", name, time.Now().UnixNano()),
		Status:     models.GameStatusEnlisting,
		MaxPlayers: 10,
		RoleList:   models.StringList{"村民", "狼人", "预言家"},
	}
	require.NoError(t, db.Create(game).Error)
	require.NoError(t, db.Create(&models.GameHost{GameID: game.ID, UserID: hostID}).Error)
	return game
}

// CreateTestRoom 创建测试聊天室
func CreateTestRoom(t *testing.T, db *gorm.DB, gameID uint, roomType models.RoomType, name string) *models.ChatRoom {
	room := &models.ChatRoom{
		GameID: gameID,
		Type:   roomType,
		Name:   name,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}
