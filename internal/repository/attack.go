package repository

import (
	"context"
	"time"

	goerrors "errors"

	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// AttackRepository 攻击仓储接口
type AttackRepository interface {
	BaseRepository
	Create(ctx context.Context, attack *models.Attack) error
	FindByAttackID(ctx context.Context, attackID string) (*models.Attack, error)
	FindPendingDue(ctx context.Context, now time.Time) ([]*models.Attack, error)
	FindPendingByAttacker(ctx context.Context, agentID string) ([]*models.Attack, error)
	FindIncomingPending(ctx context.Context, ownerID string) ([]*models.Attack, error)
	MarkResolved(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) error
}

// attackRepo 攻击仓储实现
type attackRepo struct {
	*BaseRepo
}

// NewAttackRepository 创建攻击仓储
func NewAttackRepository(db *gorm.DB) AttackRepository {
	return &attackRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建攻击记录
func (r *attackRepo) Create(ctx context.Context, attack *models.Attack) error {
	return r.db.WithContext(ctx).Create(attack).Error
}

// FindByAttackID 根据攻击ID查找
func (r *attackRepo) FindByAttackID(ctx context.Context, attackID string) (*models.Attack, error) {
	var attack models.Attack
	err := r.db.WithContext(ctx).Where("attack_id = ?", attackID).First(&attack).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrNotFound, attackID)
		}
		return nil, err
	}
	return &attack, nil
}

// FindPendingDue 查找已到结算时间的待结算攻击。
// 按主键升序返回，即按宣战顺序结算。
func (r *attackRepo) FindPendingDue(ctx context.Context, now time.Time) ([]*models.Attack, error) {
	var attacks []*models.Attack
	err := r.db.WithContext(ctx).
		Where("status = ? AND resolve_at <= ?", models.AttackStatusPending, now).
		Order("id ASC").
		Find(&attacks).Error
	return attacks, err
}

// FindPendingByAttacker 查找指定智能体发起的待结算攻击
func (r *attackRepo) FindPendingByAttacker(ctx context.Context, agentID string) ([]*models.Attack, error) {
	var attacks []*models.Attack
	err := r.db.WithContext(ctx).
		Where("status = ? AND attacker_id = ?", models.AttackStatusPending, agentID).
		Order("id ASC").
		Find(&attacks).Error
	return attacks, err
}

// FindIncomingPending 查找威胁指定智能体领土的待结算攻击
func (r *attackRepo) FindIncomingPending(ctx context.Context, ownerID string) ([]*models.Attack, error) {
	var attacks []*models.Attack
	err := r.db.WithContext(ctx).
		Joins("JOIN tiles ON tiles.q = attacks.target_q AND tiles.r = attacks.target_r").
		Where("attacks.status = ? AND tiles.owner_id = ?", models.AttackStatusPending, ownerID).
		Order("attacks.id ASC").
		Find(&attacks).Error
	return attacks, err
}

// MarkResolved 标记攻击已结算
func (r *attackRepo) MarkResolved(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Attack{}).
		Where("id = ?", id).
		Update("status", models.AttackStatusResolved).Error
}

// DeleteAll 删除全部攻击记录（管理员重置用）
func (r *attackRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Attack{}).Error
}
