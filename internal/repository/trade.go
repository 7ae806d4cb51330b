package repository

import (
	"context"
	"time"

	goerrors "errors"

	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// TradeRepository 交易仓储接口
type TradeRepository interface {
	BaseRepository
	Create(ctx context.Context, trade *models.Trade) error
	FindByTradeID(ctx context.Context, tradeID string) (*models.Trade, error)
	FindPendingByParty(ctx context.Context, agentID string) ([]*models.Trade, error)
	MarkStatus(ctx context.Context, tradeID, status string) error
	ExpirePendingBefore(ctx context.Context, now time.Time) (int64, error)
	DeleteAll(ctx context.Context) error
}

// tradeRepo 交易仓储实现
type tradeRepo struct {
	*BaseRepo
}

// NewTradeRepository 创建交易仓储
func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建交易
func (r *tradeRepo) Create(ctx context.Context, trade *models.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// FindByTradeID 根据交易ID查找
func (r *tradeRepo) FindByTradeID(ctx context.Context, tradeID string) (*models.Trade, error) {
	var trade models.Trade
	err := r.db.WithContext(ctx).Where("trade_id = ?", tradeID).First(&trade).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrTradeNotFound, tradeID)
		}
		return nil, err
	}
	return &trade, nil
}

// FindPendingByParty 查找与指定智能体相关（作为发起方或接收方）的待处理交易
func (r *tradeRepo) FindPendingByParty(ctx context.Context, agentID string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := r.db.WithContext(ctx).
		Where("status = ? AND (proposer_id = ? OR recipient_id = ?)",
			models.TradeStatusPending, agentID, agentID).
		Order("id ASC").
		Find(&trades).Error
	return trades, err
}

// MarkStatus 更新交易状态
func (r *tradeRepo) MarkStatus(ctx context.Context, tradeID, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("trade_id = ?", tradeID).
		Update("status", status).Error
}

// ExpirePendingBefore 批量过期到期的待处理交易，返回过期条数
func (r *tradeRepo) ExpirePendingBefore(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("status = ? AND expires_at <= ?", models.TradeStatusPending, now).
		Update("status", models.TradeStatusExpired)
	return result.RowsAffected, result.Error
}

// DeleteAll 删除全部交易（管理员重置用）
func (r *tradeRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Trade{}).Error
}
