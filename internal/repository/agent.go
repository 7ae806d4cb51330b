package repository

import (
	"context"
	"time"

	goerrors "errors"

	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// AgentRepository 智能体仓储接口
type AgentRepository interface {
	BaseRepository
	Create(ctx context.Context, agent *models.Agent) error
	Update(ctx context.Context, agent *models.Agent) error
	FindByAgentID(ctx context.Context, agentID string) (*models.Agent, error)
	FindByName(ctx context.Context, name string) (*models.Agent, error)
	GetAll(ctx context.Context) ([]*models.Agent, error)
	Count(ctx context.Context) (int64, error)
	AddResources(ctx context.Context, agentID string, food, metal int) error
	DeductResources(ctx context.Context, agentID string, food, metal int) error
	SetCapital(ctx context.Context, agentID string, q, r int) error
	ClearCapital(ctx context.Context, agentID string) error
	UpdateStrategy(ctx context.Context, agentID, strategy string) error
	UpdateMemory(ctx context.Context, agentID, memory string) error
	UpdateWebhookURL(ctx context.Context, agentID, url string) error
	TouchLastSeen(ctx context.Context, agentID string) error
	DeleteAllExcept(ctx context.Context, keep []string) error
}

// agentRepo 智能体仓储实现
type agentRepo struct {
	*BaseRepo
}

// NewAgentRepository 创建智能体仓储
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建智能体
func (r *agentRepo) Create(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

// Update 更新智能体
func (r *agentRepo) Update(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Save(agent).Error
}

// FindByAgentID 根据智能体ID查找
func (r *agentRepo) FindByAgentID(ctx context.Context, agentID string) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).Where("agent_id = ?", agentID).First(&agent).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrAgentNotFound, agentID)
		}
		return nil, err
	}
	return &agent, nil
}

// FindByName 根据显示名称查找
func (r *agentRepo) FindByName(ctx context.Context, name string) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&agent).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrAgentNotFound, name)
		}
		return nil, err
	}
	return &agent, nil
}

// GetAll 获取全部智能体
func (r *agentRepo) GetAll(ctx context.Context) ([]*models.Agent, error) {
	var agents []*models.Agent
	err := r.db.WithContext(ctx).Order("agent_id ASC").Find(&agents).Error
	return agents, err
}

// Count 统计智能体数量
func (r *agentRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Agent{}).Count(&count).Error
	return count, err
}

// AddResources 增加资源（负数即扣减，不做余额校验）
func (r *agentRepo) AddResources(ctx context.Context, agentID string, food, metal int) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Updates(map[string]interface{}{
			"food":  gorm.Expr("food + ?", food),
			"metal": gorm.Expr("metal + ?", metal),
		}).Error
}

// DeductResources 扣减资源（余额不足时整体失败）
func (r *agentRepo) DeductResources(ctx context.Context, agentID string, food, metal int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("agent_id = ? AND food >= ? AND metal >= ?", agentID, food, metal).
		Updates(map[string]interface{}{
			"food":  gorm.Expr("food - ?", food),
			"metal": gorm.Expr("metal - ?", metal),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if food > 0 {
			return errors.New(errors.ErrInsufficientFood)
		}
		return errors.New(errors.ErrInsufficientMetal)
	}

	return nil
}

// SetCapital 设定首都坐标
func (r *agentRepo) SetCapital(ctx context.Context, agentID string, q, r2 int) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Updates(map[string]interface{}{
			"capital_q": q,
			"capital_r": r2,
		}).Error
}

// ClearCapital 清除首都标记
func (r *agentRepo) ClearCapital(ctx context.Context, agentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Updates(map[string]interface{}{
			"capital_q": nil,
			"capital_r": nil,
		}).Error
}

// UpdateStrategy 更新策略文本
func (r *agentRepo) UpdateStrategy(ctx context.Context, agentID, strategy string) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Update("strategy", strategy).Error
}

// UpdateMemory 更新记忆数据
func (r *agentRepo) UpdateMemory(ctx context.Context, agentID, memory string) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Update("memory", memory).Error
}

// UpdateWebhookURL 更新通知回调地址
func (r *agentRepo) UpdateWebhookURL(ctx context.Context, agentID, url string) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Update("webhook_url", url).Error
}

// TouchLastSeen 更新最后活跃时间
func (r *agentRepo) TouchLastSeen(ctx context.Context, agentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("agent_id = ?", agentID).
		Update("last_seen_at", time.Now()).Error
}

// DeleteAllExcept 删除保留名单之外的全部智能体（管理员重置用）
func (r *agentRepo) DeleteAllExcept(ctx context.Context, keep []string) error {
	query := r.db.WithContext(ctx)
	if len(keep) > 0 {
		query = query.Where("agent_id NOT IN ?", keep)
	} else {
		query = query.Where("1 = 1")
	}
	return query.Delete(&models.Agent{}).Error
}
