package models

import (
	"time"
)

// GameStateID 单例记录的固定主键
const GameStateID uint = 1

// GameState 游戏全局状态（单例，仅由回合处理器和地图扩展逻辑修改）
type GameState struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Tick            int64      `gorm:"not null;default:0" json:"tick"`
	LastTickAt      *time.Time `json:"last_tick_at,omitempty"`
	TickIntervalSec int        `gorm:"not null" json:"tick_interval_sec"`
	GridRadius      int        `gorm:"not null" json:"grid_radius"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName 指定GameState表名
func (GameState) TableName() string {
	return "game_state"
}

// TickInterval 返回回合间隔
func (s *GameState) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalSec) * time.Second
}

// NextTickAt 预计下一回合时间（尚未有回合时返回零值）
func (s *GameState) NextTickAt() time.Time {
	if s.LastTickAt == nil {
		return time.Time{}
	}
	return s.LastTickAt.Add(s.TickInterval())
}

// TickDue 检查是否到达回合推进时间
func (s *GameState) TickDue(now time.Time) bool {
	if s.LastTickAt == nil {
		return true
	}
	return !now.Before(s.NextTickAt())
}
