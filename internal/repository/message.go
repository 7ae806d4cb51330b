package repository

import (
	"context"

	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// MessageRepository 私信仓储接口
type MessageRepository interface {
	BaseRepository
	Create(ctx context.Context, message *models.Message) error
	FindUnreadByRecipient(ctx context.Context, agentID string) ([]*models.Message, error)
	MarkRead(ctx context.Context, ids []uint) error
	DeleteAll(ctx context.Context) error
}

// messageRepo 私信仓储实现
type messageRepo struct {
	*BaseRepo
}

// NewMessageRepository 创建私信仓储
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建私信
func (r *messageRepo) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// FindUnreadByRecipient 查找指定智能体的未读私信
func (r *messageRepo) FindUnreadByRecipient(ctx context.Context, agentID string) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND read = ?", agentID, false).
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// MarkRead 标记私信已读
func (r *messageRepo) MarkRead(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id IN ?", ids).
		Update("read", true).Error
}

// DeleteAll 删除全部私信（管理员重置用）
func (r *messageRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Message{}).Error
}
