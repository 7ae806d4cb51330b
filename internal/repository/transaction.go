package repository

import (
	"context"

	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口。
// 行动执行与回合处理的全部变更都在单个事务内完成，
// 保证外部永远观察不到部分应用的状态。
type TransactionManager interface {
	// WithTransaction 在事务中执行函数，函数返回错误时整体回滚
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
}

// Transaction 事务包装器，暴露事务内的各仓储实例
type Transaction struct {
	tx *gorm.DB

	// 事务中的仓储实例
	Agents    AgentRepository
	Tiles     TileRepository
	Attacks   AttackRepository
	Trades    TradeRepository
	Messages  MessageRepository
	Events    EventRepository
	GameState GameStateRepository
}

// DB 获取事务数据库实例
func (t *Transaction) DB() *gorm.DB {
	return t.tx
}

// newTransaction 创建事务包装器
func newTransaction(tx *gorm.DB) *Transaction {
	return &Transaction{
		tx:        tx,
		Agents:    NewAgentRepository(tx),
		Tiles:     NewTileRepository(tx),
		Attacks:   NewAttackRepository(tx),
		Trades:    NewTradeRepository(tx),
		Messages:  NewMessageRepository(tx),
		Events:    NewEventRepository(tx),
		GameState: NewGameStateRepository(tx),
	}
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// WithTransaction 在事务中执行函数
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newTransaction(tx))
	})
}
