package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestServices 创建内存数据库和完整服务集合
func setupTestServices(t *testing.T) (*gorm.DB, *Services) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.UserAuth{},
		&models.UserSession{},
		&models.Character{},
		&models.Game{},
		&models.GameHost{},
		&models.GameParticipant{},
		&models.GamePhase{},
		&models.PhaseEvent{},
		&models.ChatRoom{},
		&models.ChatMessage{},
	)
	require.NoError(t, err)

	config := DefaultConfig()
	config.UploadDir = t.TempDir()
	services := NewServices(db, config, zap.NewNop())
	return db, services
}

// seedUser 创建测试用户
func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Nickname: username,
		Role:     role,
		Status:   "active",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedCharacter 创建测试角色
func seedCharacter(t *testing.T, db *gorm.DB, ownerID uint, name string) *models.Character {
	character := &models.Character{
		OwnerID:     ownerID,
		Name:        name,
		DisplayName: name,
		Status:      "active",
	}
	require.NoError(t, db.Create(character).Error)
	return character
}

// seedGameWithRooms 通过服务创建带系统房间的游戏
func seedGameWithRooms(t *testing.T, services *Services, creatorID uint, name string) *models.Game {
	game, err := services.Game.CreateGame(context.Background(), creatorID, &CreateGameRequest{
		Name:       fmt.Sprintf("%s-%d", name, time.Now().UnixNano()),
		MaxPlayers: 10,
		RoleList:   []string{"狼人", "预言家", "村民"},
	})
	require.NoError(t, err)
	return game
}
