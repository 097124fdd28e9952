package model

import "time"

// InboxEntry 收件箱副本表 — 对应 inbox_entries
//
// 按接收者独立的可变投影：内容字段是分发时刻通知正本的快照
// （冗余存储，非引用），读状态更新无需回连正本。
// 复合主键 (recipient_id, notification_id) 使重复分发成为合并写，
// 这是分发重试安全性的基础。
//
// 仅分发写入器创建该记录；仅所属接收者修改它。
type InboxEntry struct {
	RecipientID    string  `gorm:"type:uuid;primaryKey"       json:"recipient_id"`
	NotificationID string  `gorm:"type:uuid;primaryKey"       json:"notification_id"`
	Title          string  `gorm:"type:varchar(200);not null" json:"title"`
	Body           string  `gorm:"type:text;not null"         json:"body"`
	Category       string  `gorm:"type:varchar(20);not null"  json:"category"`
	Link           *string `gorm:"type:text"                  json:"link,omitempty"`
	SenderID       string  `gorm:"type:uuid;not null"         json:"sender_id"`
	SenderName     string  `gorm:"type:varchar(100);not null" json:"sender_name"`

	// ── 接收者本地状态 ──
	IsRead    bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"` // 首次标记已读时设置，仅一次
	Reaction  string     `gorm:"type:varchar(20);not null;default:''" json:"reaction"`
	Commented bool       `gorm:"not null;default:false" json:"commented"`
	Shared    bool       `gorm:"not null;default:false" json:"shared"`

	ReceivedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"received_at"`
}

// TableName 指定表名
func (InboxEntry) TableName() string { return "inbox_entries" }

// NewInboxEntry 由通知正本构造一条全新的收件箱副本
// 接收者本地状态为初始值：未读、无反应、无已读时间
func NewInboxEntry(n *Notification, recipientID string, receivedAt time.Time) InboxEntry {
	return InboxEntry{
		RecipientID:    recipientID,
		NotificationID: n.NotificationID,
		Title:          n.Title,
		Body:           n.Body,
		Category:       n.Category,
		Link:           n.Link,
		SenderID:       n.SenderID,
		SenderName:     n.SenderName,
		IsRead:         false,
		ReadAt:         nil,
		Reaction:       "",
		ReceivedAt:     receivedAt,
	}
}
