package dto

// ── 通知模块 DTO ──

// SendNotificationRequest 发送通知请求（管理端）
type SendNotificationRequest struct {
	Title          string `json:"title"           binding:"required"`
	Body           string `json:"body"            binding:"required"`
	Category       string `json:"category"        binding:"required"`
	Link           string `json:"link"`
	AudienceType   string `json:"audience_type"   binding:"required,oneof=public private"`
	AudienceTarget string `json:"audience_target"`
}

// FieldError 字段级校验错误
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// BatchResult 单个分发批次的结果
// 失败批次携带其覆盖的接收者 ID，供调用方定向重试
type BatchResult struct {
	Index        int      `json:"index"`
	RecipientIDs []string `json:"recipient_ids"`
	Success      bool     `json:"success"`
	Error        string   `json:"error,omitempty"`
}

// DistributionResult 分发结果汇总
// 部分失败是合法的终态，以结构化数据而非错误形式返回
type DistributionResult struct {
	NotificationID  string        `json:"notification_id"`
	TotalRecipients int           `json:"total_recipients"`
	Delivered       int           `json:"delivered"`
	FailedBatches   int           `json:"failed_batches"`
	Batches         []BatchResult `json:"batches"`
}

// SendNotificationResponse 发送通知响应
type SendNotificationResponse struct {
	NotificationID string              `json:"notification_id"`
	Message        string              `json:"message"`
	Distribution   *DistributionResult `json:"distribution"`
}

// NotificationResponse 通知正本响应（管理端列表）
type NotificationResponse struct {
	NotificationID string  `json:"notification_id"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	Category       string  `json:"category"`
	Link           *string `json:"link,omitempty"`
	AudienceType   string  `json:"audience_type"`
	AudienceTarget *string `json:"audience_target,omitempty"`
	SenderID       string  `json:"sender_id"`
	SenderName     string  `json:"sender_name"`
	CreatedAt      string  `json:"created_at"`
}

// InboxListRequest 收件箱列表查询参数
type InboxListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// InboxEntryResponse 收件箱条目响应
type InboxEntryResponse struct {
	NotificationID string  `json:"notification_id"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	Category       string  `json:"category"`
	Link           *string `json:"link,omitempty"`
	SenderName     string  `json:"sender_name"`
	IsRead         bool    `json:"is_read"`
	ReadAt         *string `json:"read_at,omitempty"`
	Reaction       string  `json:"reaction"`
	ReceivedAt     string  `json:"received_at"`
}

// SetReactionRequest 设置反应请求（空字符串表示清除）
type SetReactionRequest struct {
	Reaction string `json:"reaction" binding:"omitempty,oneof=like love celebrate support"`
}
