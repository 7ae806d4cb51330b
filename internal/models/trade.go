package models

import (
	"time"
)

// 交易状态
const (
	TradeStatusPending  = "pending"  // 待处理
	TradeStatusAccepted = "accepted" // 已接受
	TradeStatusRejected = "rejected" // 已拒绝
	TradeStatusExpired  = "expired"  // 已过期
)

// Trade 交易表（接受时才交换资源，双方余额以接受时为准）
type Trade struct {
	BaseModel
	TradeID      string    `gorm:"uniqueIndex;size:64;not null" json:"trade_id"`
	ProposerID   string    `gorm:"size:64;not null;index" json:"proposer_id"`
	RecipientID  string    `gorm:"size:64;not null;index" json:"recipient_id"`
	OfferFood    int       `gorm:"not null;default:0" json:"offer_food"`
	OfferMetal   int       `gorm:"not null;default:0" json:"offer_metal"`
	RequestFood  int       `gorm:"not null;default:0" json:"request_food"`
	RequestMetal int       `gorm:"not null;default:0" json:"request_metal"`
	Status       string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expires_at"`
}

// TableName 指定Trade表名
func (Trade) TableName() string {
	return "trades"
}

// IsPending 检查交易是否待处理
func (t *Trade) IsPending() bool {
	return t.Status == TradeStatusPending
}

// IsExpired 检查交易是否已过期（按给定时间判断）
func (t *Trade) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
