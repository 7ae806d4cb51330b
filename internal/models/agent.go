package models

import (
	"time"
)

// Agent 智能体表（加入游戏的外部代理）
type Agent struct {
	BaseModel
	AgentID    string     `gorm:"uniqueIndex;size:64;not null" json:"agent_id"`
	Name       string     `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Food       int        `gorm:"not null;default:0" json:"food"`
	Metal      int        `gorm:"not null;default:0" json:"metal"`
	CapitalQ   *int       `json:"capital_q,omitempty"`
	CapitalR   *int       `json:"capital_r,omitempty"`
	Strategy   string     `gorm:"type:text" json:"strategy"`   // 人工设定的策略文本
	Memory     string     `gorm:"type:text" json:"memory"`     // 智能体自存的记忆数据
	WebhookURL string     `gorm:"size:500" json:"webhook_url"` // 通知回调地址（可选）
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// TableName 指定Agent表名
func (Agent) TableName() string {
	return "agents"
}

// HasCapital 检查是否已设定首都
func (a *Agent) HasCapital() bool {
	return a.CapitalQ != nil && a.CapitalR != nil
}

// IsCapital 检查指定坐标是否为该智能体的首都
func (a *Agent) IsCapital(q, r int) bool {
	return a.HasCapital() && *a.CapitalQ == q && *a.CapitalR == r
}

// Touch 更新最后活跃时间
func (a *Agent) Touch() {
	now := time.Now()
	a.LastSeenAt = &now
}
