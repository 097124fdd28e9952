package model

import "time"

// ── 通知分类枚举 ──

const (
	CategoryGeneral    = "general"
	CategoryAcademic   = "academic"
	CategoryDiscussion = "discussion"
	CategoryImportant  = "important"
	CategoryEvent      = "event"
	CategoryOther      = "other"
)

// ValidCategories 合法分类集合
var ValidCategories = map[string]bool{
	CategoryGeneral:    true,
	CategoryAcademic:   true,
	CategoryDiscussion: true,
	CategoryImportant:  true,
	CategoryEvent:      true,
	CategoryOther:      true,
}

// ── 受众类型枚举 ──

const (
	AudiencePublic  = "public"
	AudiencePrivate = "private"
)

// Notification 通知正本表 — 对应 notifications
//
// 正本即审计副本：NotificationID 在创作阶段（任何写入发生前）分配，
// 并作为所有收件箱副本的连接键。内容字段创建后不可变，
// 状态变化只发生在各接收者自己的收件箱副本上。
type Notification struct {
	NotificationID string    `gorm:"type:uuid;primaryKey"       json:"notification_id"`
	Title          string    `gorm:"type:varchar(200);not null" json:"title"`
	Body           string    `gorm:"type:text;not null"         json:"body"`
	Category       string    `gorm:"type:varchar(20);not null"  json:"category"`
	Link           *string   `gorm:"type:text"                  json:"link,omitempty"`
	AudienceType   string    `gorm:"type:varchar(10);not null"  json:"audience_type"`
	AudienceTarget *string   `gorm:"type:varchar(20)"           json:"audience_target,omitempty"`
	SenderID       string    `gorm:"type:uuid;not null"         json:"sender_id"`
	SenderName     string    `gorm:"type:varchar(100);not null" json:"sender_name"`
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
