package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 事务管理器
	txManager TransactionManager

	// 仓储实例（使用懒加载）
	agentOnce sync.Once
	agent     AgentRepository

	tileOnce sync.Once
	tile     TileRepository

	attackOnce sync.Once
	attack     AttackRepository

	tradeOnce sync.Once
	trade     TradeRepository

	messageOnce sync.Once
	message     MessageRepository

	eventOnce sync.Once
	event     EventRepository

	gameStateOnce sync.Once
	gameState     GameStateRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// DB 获取数据库实例
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// TxManager 获取事务管理器
func (m *Manager) TxManager() TransactionManager {
	return m.txManager
}

// Agent 获取智能体仓储
func (m *Manager) Agent() AgentRepository {
	m.agentOnce.Do(func() {
		m.agent = NewAgentRepository(m.db)
	})
	return m.agent
}

// Tile 获取地块仓储
func (m *Manager) Tile() TileRepository {
	m.tileOnce.Do(func() {
		m.tile = NewTileRepository(m.db)
	})
	return m.tile
}

// Attack 获取攻击仓储
func (m *Manager) Attack() AttackRepository {
	m.attackOnce.Do(func() {
		m.attack = NewAttackRepository(m.db)
	})
	return m.attack
}

// Trade 获取交易仓储
func (m *Manager) Trade() TradeRepository {
	m.tradeOnce.Do(func() {
		m.trade = NewTradeRepository(m.db)
	})
	return m.trade
}

// Message 获取私信仓储
func (m *Manager) Message() MessageRepository {
	m.messageOnce.Do(func() {
		m.message = NewMessageRepository(m.db)
	})
	return m.message
}

// Event 获取事件日志仓储
func (m *Manager) Event() EventRepository {
	m.eventOnce.Do(func() {
		m.event = NewEventRepository(m.db)
	})
	return m.event
}

// GameState 获取全局状态仓储
func (m *Manager) GameState() GameStateRepository {
	m.gameStateOnce.Do(func() {
		m.gameState = NewGameStateRepository(m.db)
	})
	return m.gameState
}
