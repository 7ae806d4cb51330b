package repository

import (
	"context"
	"time"

	goerrors "errors"

	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// GameStateRepository 全局状态仓储接口（单例记录）
type GameStateRepository interface {
	BaseRepository
	Get(ctx context.Context) (*models.GameState, error)
	GetOrCreate(ctx context.Context, tickIntervalSec, gridRadius int) (*models.GameState, error)
	Save(ctx context.Context, state *models.GameState) error
	AdvanceTick(ctx context.Context, now time.Time) error
	UpdateGridRadius(ctx context.Context, radius int) error
	ResetTick(ctx context.Context) error
}

// gameStateRepo 全局状态仓储实现
type gameStateRepo struct {
	*BaseRepo
}

// NewGameStateRepository 创建全局状态仓储
func NewGameStateRepository(db *gorm.DB) GameStateRepository {
	return &gameStateRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Get 获取单例状态记录
func (r *gameStateRepo) Get(ctx context.Context) (*models.GameState, error) {
	var state models.GameState
	err := r.db.WithContext(ctx).First(&state, models.GameStateID).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetOrCreate 获取单例状态记录，不存在时按给定默认值创建
func (r *gameStateRepo) GetOrCreate(ctx context.Context, tickIntervalSec, gridRadius int) (*models.GameState, error) {
	state, err := r.Get(ctx)
	if err == nil {
		return state, nil
	}
	if !goerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	state = &models.GameState{
		ID:              models.GameStateID,
		Tick:            0,
		TickIntervalSec: tickIntervalSec,
		GridRadius:      gridRadius,
	}
	if err := r.db.WithContext(ctx).Create(state).Error; err != nil {
		return nil, err
	}
	return state, nil
}

// Save 保存状态记录
func (r *gameStateRepo) Save(ctx context.Context, state *models.GameState) error {
	return r.db.WithContext(ctx).Save(state).Error
}

// AdvanceTick 推进回合计数并记录时间
func (r *gameStateRepo) AdvanceTick(ctx context.Context, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GameState{}).
		Where("id = ?", models.GameStateID).
		Updates(map[string]interface{}{
			"tick":         gorm.Expr("tick + 1"),
			"last_tick_at": now,
		}).Error
}

// UpdateGridRadius 更新地图半径（地图扩展用）
func (r *gameStateRepo) UpdateGridRadius(ctx context.Context, radius int) error {
	return r.db.WithContext(ctx).
		Model(&models.GameState{}).
		Where("id = ?", models.GameStateID).
		Update("grid_radius", radius).Error
}

// ResetTick 归零回合计数（管理员重置用）
func (r *gameStateRepo) ResetTick(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&models.GameState{}).
		Where("id = ?", models.GameStateID).
		Updates(map[string]interface{}{
			"tick":         0,
			"last_tick_at": nil,
		}).Error
}
