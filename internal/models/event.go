package models

// 事件类型
const (
	EventExpand         = "expand"          // 扩张占地
	EventAttackDeclared = "attack_declared" // 宣战
	EventAttackSuccess  = "attack_success"  // 攻击成功
	EventAttackFailed   = "attack_failed"   // 攻击失败
	EventFortify        = "fortify"         // 修筑工事
	EventGift           = "gift"            // 赠与（地块或资源）
	EventSetCapital     = "set_capital"     // 设定首都
	EventTradeProposed  = "trade_proposed"  // 发起交易
	EventTradeAccepted  = "trade_accepted"  // 接受交易
	EventStarvation     = "starvation"      // 饥荒失地
	EventTick           = "tick"            // 回合推进
	EventAgentJoined    = "agent_joined"    // 智能体加入
	EventMapExpanded    = "map_expanded"    // 地图扩展
	EventGameReset      = "game_reset"      // 游戏重置
)

// GameEvent 事件日志表（核心只追加写入，由观察者读取）
type GameEvent struct {
	BaseModel
	Type        string  `gorm:"size:50;not null;index" json:"type"`
	ActorID     *string `gorm:"size:64;index" json:"actor_id,omitempty"`
	Description string  `gorm:"size:500;not null" json:"description"`
	Payload     JSONMap `gorm:"type:json" json:"payload"`
}

// TableName 指定GameEvent表名
func (GameEvent) TableName() string {
	return "game_events"
}
