package repository

import (
	"context"

	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// EventRepository 事件日志仓储接口（核心只追加写入）
type EventRepository interface {
	BaseRepository
	Append(ctx context.Context, event *models.GameEvent) error
	Recent(ctx context.Context, limit int) ([]*models.GameEvent, error)
	RecentByType(ctx context.Context, eventType string, limit int) ([]*models.GameEvent, error)
	DeleteAll(ctx context.Context) error
}

// eventRepo 事件日志仓储实现
type eventRepo struct {
	*BaseRepo
}

// NewEventRepository 创建事件日志仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Append 追加事件
func (r *eventRepo) Append(ctx context.Context, event *models.GameEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// Recent 获取最近事件（新的在前）
func (r *eventRepo) Recent(ctx context.Context, limit int) ([]*models.GameEvent, error) {
	var events []*models.GameEvent
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// RecentByType 获取指定类型的最近事件
func (r *eventRepo) RecentByType(ctx context.Context, eventType string, limit int) ([]*models.GameEvent, error) {
	var events []*models.GameEvent
	err := r.db.WithContext(ctx).
		Where("type = ?", eventType).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// DeleteAll 删除全部事件（管理员重置用）
func (r *eventRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.GameEvent{}).Error
}
