package game

import "time"

// 游戏核心数值，所有规则计算都引用这里的常量
const (
	// ExpandFoodCost 扩张占领一格的食物消耗
	ExpandFoodCost = 20
	// ExpandMetalCost 扩张占领一格的金属消耗
	ExpandMetalCost = 10

	// BaseDefense 地块基础防御值
	BaseDefense = 10

	// AttackResolveDelay 攻击从宣告到结算的延迟
	AttackResolveDelay = 2 * time.Hour

	// TradeExpiry 交易提案的有效期
	TradeExpiry = 24 * time.Hour

	// UpkeepFoodPerTile 每回合每块领土的食物维护费
	UpkeepFoodPerTile = 3

	// ExpandThreshold 无主地块少于该值时扩张地图
	ExpandThreshold = 20
	// ExpandRings 每次地图扩张新增的环数
	ExpandRings = 2

	// MessageMaxLength 单条消息的最大长度
	MessageMaxLength = 2000
)

// 地形生成权重（百分比，总和为 100）
const (
	TerrainWeightFarmland = 25
	TerrainWeightMine     = 20
	TerrainWeightMixed    = 10
	TerrainWeightBarren   = 45
)
