package repository

import (
	"github.com/wfunc/hexland/internal/models"
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

// CreateTestAgent 创建测试智能体
func CreateTestAgent(db *gorm.DB, agentID, name string, food, metal int) *models.Agent {
	agent := &models.Agent{
		AgentID: agentID,
		Name:    name,
		Food:    food,
		Metal:   metal,
	}
	if err := db.Create(agent).Error; err != nil {
		panic(err)
	}
	return agent
}

// CreateTestTile 创建测试地块
func CreateTestTile(db *gorm.DB, q, r int, terrain models.Terrain, ownerID string) *models.Tile {
	tile := &models.Tile{
		Q:       q,
		R:       r,
		Terrain: terrain,
	}
	if ownerID != "" {
		tile.OwnerID = &ownerID
	}
	if err := db.Create(tile).Error; err != nil {
		panic(err)
	}
	return tile
}
