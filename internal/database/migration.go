package database

import (
	"fmt"

	"github.com/JayPixl/ocmafia-old-sub000/internal/logger"
	"github.com/JayPixl/ocmafia-old-sub000/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	// 定义需要迁移的模型
	migrationModels := []interface{}{
		// 用户相关
		&models.User{},
		&models.UserAuth{},
		&models.UserSession{},
		&models.Character{},

		// 游戏相关
		&models.Game{},
		&models.GameHost{},
		&models.GameParticipant{},
		&models.GamePhase{},
		&models.PhaseEvent{},

		// 聊天相关
		&models.ChatRoom{},
		&models.ChatMessage{},
	}

	logger.Info("开始数据库迁移...")

	// 设置 SQLite 专用配置，避免锁定问题
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	logger.Info("数据库迁移完成")
	return nil
}
