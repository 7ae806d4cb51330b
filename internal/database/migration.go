package database

import (
	"fmt"

	"github.com/wfunc/hexland/internal/logger"
	"github.com/wfunc/hexland/internal/models"
	"go.uber.org/zap"
)

// MigrationModels 需要迁移的全部模型（顺序兼顾外键依赖）
func MigrationModels() []interface{} {
	return []interface{}{
		// 世界
		&models.Agent{},
		&models.Tile{},

		// 对抗与交易
		&models.Attack{},
		&models.Trade{},

		// 通信与日志
		&models.Message{},
		&models.GameEvent{},

		// 全局状态
		&models.GameState{},
	}
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

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

	logger.Info("开始数据库迁移...")

	for _, model := range MigrationModels() {
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
