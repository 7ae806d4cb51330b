package models

// Terrain 地形类型
type Terrain string

const (
	TerrainFarmland Terrain = "farmland" // 农田：+10食物
	TerrainMine     Terrain = "mine"     // 矿山：+10金属
	TerrainMixed    Terrain = "mixed"    // 混合：+5食物/+5金属
	TerrainBarren   Terrain = "barren"   // 荒地：+2食物
	TerrainUnknown  Terrain = "unknown"  // 对外隐藏地形时使用（战争迷雾）
)

// TerrainValue 地形价值排序（饥荒时优先失去低价值地块）
func TerrainValue(t Terrain) int {
	switch t {
	case TerrainBarren:
		return 0
	case TerrainMixed:
		return 1
	case TerrainMine:
		return 2
	case TerrainFarmland:
		return 3
	}
	return -1
}

// Production 地形的每回合产出（食物，金属）
func (t Terrain) Production() (food, metal int) {
	switch t {
	case TerrainFarmland:
		return 10, 0
	case TerrainMine:
		return 0, 10
	case TerrainMixed:
		return 5, 5
	case TerrainBarren:
		return 2, 0
	}
	return 0, 0
}

// Tile 地块表（坐标为主键，生成后不再销毁）
type Tile struct {
	BaseModel
	Q             int     `gorm:"not null;uniqueIndex:idx_tiles_coord,priority:1" json:"q"`
	R             int     `gorm:"not null;uniqueIndex:idx_tiles_coord,priority:2" json:"r"`
	Terrain       Terrain `gorm:"size:20;not null" json:"terrain"`
	OwnerID       *string `gorm:"size:64;index" json:"owner_id,omitempty"`
	Fortification int     `gorm:"not null;default:0" json:"fortification"`
}

// TableName 指定Tile表名
func (Tile) TableName() string {
	return "tiles"
}

// IsOwned 检查地块是否有归属
func (t *Tile) IsOwned() bool {
	return t.OwnerID != nil && *t.OwnerID != ""
}

// IsOwnedBy 检查地块是否归属指定智能体
func (t *Tile) IsOwnedBy(agentID string) bool {
	return t.OwnerID != nil && *t.OwnerID == agentID
}

// Defense 当前防御值 = 基础防御 + 工事
func (t *Tile) Defense(baseDefense int) int {
	return baseDefense + t.Fortification
}
