package repository

import (
	"context"

	goerrors "errors"

	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/hexgrid"
	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// TileRepository 地块仓储接口
type TileRepository interface {
	BaseRepository
	CreateInBatches(ctx context.Context, tiles []*models.Tile, batchSize int) error
	FindByCoord(ctx context.Context, q, r int) (*models.Tile, error)
	FindByOwner(ctx context.Context, agentID string) ([]*models.Tile, error)
	FindAll(ctx context.Context) ([]*models.Tile, error)
	FindUnclaimed(ctx context.Context) ([]*models.Tile, error)
	CountByOwner(ctx context.Context, agentID string) (int64, error)
	CountUnclaimed(ctx context.Context) (int64, error)
	CountOwnedIn(ctx context.Context, agentID string, coords []hexgrid.Coord) (int64, error)
	SetOwner(ctx context.Context, q, r int, ownerID string, fortification int) error
	TransferOwner(ctx context.Context, q, r int, ownerID string) error
	ClearOwner(ctx context.Context, q, r int) error
	AddFortification(ctx context.Context, q, r, amount int) error
	DeleteAll(ctx context.Context) error
}

// tileRepo 地块仓储实现
type tileRepo struct {
	*BaseRepo
}

// NewTileRepository 创建地块仓储
func NewTileRepository(db *gorm.DB) TileRepository {
	return &tileRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// CreateInBatches 批量创建地块（世界生成与地图扩展用）
func (r *tileRepo) CreateInBatches(ctx context.Context, tiles []*models.Tile, batchSize int) error {
	if len(tiles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(tiles, batchSize).Error
}

// FindByCoord 根据坐标查找地块
func (r *tileRepo) FindByCoord(ctx context.Context, q, r2 int) (*models.Tile, error) {
	var tile models.Tile
	err := r.db.WithContext(ctx).Where("q = ? AND r = ?", q, r2).First(&tile).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrTileNotFound, "(%d, %d)", q, r2)
		}
		return nil, err
	}
	return &tile, nil
}

// FindByOwner 查找指定智能体拥有的全部地块
func (r *tileRepo) FindByOwner(ctx context.Context, agentID string) ([]*models.Tile, error) {
	var tiles []*models.Tile
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", agentID).
		Order("q ASC, r ASC").
		Find(&tiles).Error
	return tiles, err
}

// FindAll 获取全部地块
func (r *tileRepo) FindAll(ctx context.Context) ([]*models.Tile, error) {
	var tiles []*models.Tile
	err := r.db.WithContext(ctx).Order("q ASC, r ASC").Find(&tiles).Error
	return tiles, err
}

// FindUnclaimed 获取全部无主地块
func (r *tileRepo) FindUnclaimed(ctx context.Context) ([]*models.Tile, error) {
	var tiles []*models.Tile
	err := r.db.WithContext(ctx).
		Where("owner_id IS NULL").
		Order("q ASC, r ASC").
		Find(&tiles).Error
	return tiles, err
}

// CountByOwner 统计指定智能体的地块数量
func (r *tileRepo) CountByOwner(ctx context.Context, agentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Tile{}).
		Where("owner_id = ?", agentID).
		Count(&count).Error
	return count, err
}

// CountUnclaimed 统计无主地块数量（地图扩展阈值判断用）
func (r *tileRepo) CountUnclaimed(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Tile{}).
		Where("owner_id IS NULL").
		Count(&count).Error
	return count, err
}

// CountOwnedIn 统计给定坐标集合中归属指定智能体的地块数量（邻接检查用）
func (r *tileRepo) CountOwnedIn(ctx context.Context, agentID string, coords []hexgrid.Coord) (int64, error) {
	if len(coords) == 0 {
		return 0, nil
	}

	query := r.db.WithContext(ctx).
		Model(&models.Tile{}).
		Where("owner_id = ?", agentID)

	// 坐标条件拼成 (q = ? AND r = ?) OR ...
	cond := r.db.Session(&gorm.Session{NewDB: true})
	for _, c := range coords {
		cond = cond.Or(r.db.Session(&gorm.Session{NewDB: true}).
			Where("q = ? AND r = ?", c.Q, c.R))
	}
	query = query.Where(cond)

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// SetOwner 设定地块归属并重置工事（扩张与攻陷用）
func (r *tileRepo) SetOwner(ctx context.Context, q, r2 int, ownerID string, fortification int) error {
	return r.db.WithContext(ctx).
		Model(&models.Tile{}).
		Where("q = ? AND r = ?", q, r2).
		Updates(map[string]interface{}{
			"owner_id":      ownerID,
			"fortification": fortification,
		}).Error
}

// TransferOwner 转移地块归属并保留工事（赠与用）
func (r *tileRepo) TransferOwner(ctx context.Context, q, r2 int, ownerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Tile{}).
		Where("q = ? AND r = ?", q, r2).
		Update("owner_id", ownerID).Error
}

// ClearOwner 清除地块归属并重置工事（饥荒失地用）
func (r *tileRepo) ClearOwner(ctx context.Context, q, r2 int) error {
	return r.db.WithContext(ctx).
		Model(&models.Tile{}).
		Where("q = ? AND r = ?", q, r2).
		Updates(map[string]interface{}{
			"owner_id":      nil,
			"fortification": 0,
		}).Error
}

// AddFortification 增加地块工事
func (r *tileRepo) AddFortification(ctx context.Context, q, r2, amount int) error {
	return r.db.WithContext(ctx).
		Model(&models.Tile{}).
		Where("q = ? AND r = ?", q, r2).
		Update("fortification", gorm.Expr("fortification + ?", amount)).Error
}

// DeleteAll 删除全部地块（管理员重置用）
func (r *tileRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Tile{}).Error
}
