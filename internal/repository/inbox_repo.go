package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-hub/backend/internal/model"
)

// NotificationReadStats 单条通知的送达 / 已读统计
type NotificationReadStats struct {
	NotificationID string
	Delivered      int64
	Read           int64
}

// InboxRepository 收件箱副本数据访问接口
type InboxRepository interface {
	// BatchUpsert 以一次原子操作提交一个批次的收件箱副本
	// 冲突键为复合主键 (recipient_id, notification_id)：
	// 重试时仅合并内容快照列，不触碰接收者本地状态
	// （is_read / read_at / reaction 等保持首次成功写入的值）
	BatchUpsert(ctx context.Context, entries []model.InboxEntry) error

	GetEntry(ctx context.Context, recipientID, notificationID string) (*model.InboxEntry, error)
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]model.InboxEntry, int64, error)

	// MarkRead 标记已读；read_at 仅在首次转换时设置
	MarkRead(ctx context.Context, recipientID, notificationID string) error
	// SetReaction 设置接收者反应，空字符串表示清除
	SetReaction(ctx context.Context, recipientID, notificationID, reaction string) error

	// ReadStats 统计一批通知的送达与已读数（导出报表用）
	ReadStats(ctx context.Context, notificationIDs []string) (map[string]NotificationReadStats, error)
}

// inboxRepo InboxRepository 的 GORM 实现
type inboxRepo struct {
	db *gorm.DB
}

// NewInboxRepo 创建 InboxRepository 实例
func NewInboxRepo(db *gorm.DB) InboxRepository {
	return &inboxRepo{db: db}
}

func (r *inboxRepo) BatchUpsert(ctx context.Context, entries []model.InboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "recipient_id"}, {Name: "notification_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "body", "category", "link", "sender_id", "sender_name",
			}),
		}).Create(&entries).Error
	})
}

func (r *inboxRepo) GetEntry(ctx context.Context, recipientID, notificationID string) (*model.InboxEntry, error) {
	var entry model.InboxEntry
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND notification_id = ?", recipientID, notificationID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *inboxRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]model.InboxEntry, int64, error) {
	var entries []model.InboxEntry
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.InboxEntry{}).
		Where("recipient_id = ?", recipientID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("received_at DESC").
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *inboxRepo) MarkRead(ctx context.Context, recipientID, notificationID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.InboxEntry{}).
		Where("recipient_id = ? AND notification_id = ?", recipientID, notificationID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": gorm.Expr("COALESCE(read_at, CURRENT_TIMESTAMP)"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inboxRepo) SetReaction(ctx context.Context, recipientID, notificationID, reaction string) error {
	result := r.db.WithContext(ctx).
		Model(&model.InboxEntry{}).
		Where("recipient_id = ? AND notification_id = ?", recipientID, notificationID).
		Update("reaction", reaction)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inboxRepo) ReadStats(ctx context.Context, notificationIDs []string) (map[string]NotificationReadStats, error) {
	if len(notificationIDs) == 0 {
		return map[string]NotificationReadStats{}, nil
	}

	var rows []struct {
		NotificationID string
		Delivered      int64
		Read           int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.InboxEntry{}).
		Select("notification_id, COUNT(*) AS delivered, COUNT(*) FILTER (WHERE is_read) AS read").
		Where("notification_id IN ?", notificationIDs).
		Group("notification_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[string]NotificationReadStats, len(rows))
	for _, row := range rows {
		stats[row.NotificationID] = NotificationReadStats{
			NotificationID: row.NotificationID,
			Delivered:      row.Delivered,
			Read:           row.Read,
		}
	}
	return stats, nil
}
