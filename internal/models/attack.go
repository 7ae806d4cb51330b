package models

import (
	"time"
)

// 攻击状态
const (
	AttackStatusPending  = "pending"  // 待结算
	AttackStatusResolved = "resolved" // 已结算
)

// Attack 攻击表（宣战时扣除金属，回合结算时判定归属）
type Attack struct {
	BaseModel
	AttackID   string    `gorm:"uniqueIndex;size:64;not null" json:"attack_id"`
	AttackerID string    `gorm:"size:64;not null;index" json:"attacker_id"`
	TargetQ    int       `gorm:"not null" json:"target_q"`
	TargetR    int       `gorm:"not null" json:"target_r"`
	Commitment int       `gorm:"not null" json:"commitment"` // 投入的金属，无论胜负不退还
	Status     string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ResolveAt  time.Time `gorm:"not null;index" json:"resolve_at"`
}

// TableName 指定Attack表名
func (Attack) TableName() string {
	return "attacks"
}

// IsPending 检查攻击是否待结算
func (a *Attack) IsPending() bool {
	return a.Status == AttackStatusPending
}

// IsDue 检查攻击是否到达结算时间
func (a *Attack) IsDue(now time.Time) bool {
	return !a.ResolveAt.After(now)
}
