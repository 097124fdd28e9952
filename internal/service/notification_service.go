package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-hub/backend/internal/dto"
	"campus-hub/backend/internal/model"
	"campus-hub/backend/internal/repository"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = errors.New("通知不存在")
	ErrInboxEntryNotFound   = errors.New("收件箱中不存在该通知")
	ErrSenderNotFound       = errors.New("发送者不存在")
)

// ValidationError 创作阶段的字段级校验错误
// 所有规则独立评估，一次性返回全部未通过项；校验失败时不发生任何写入
type ValidationError struct {
	Fields []dto.FieldError
}

func (e *ValidationError) Error() string {
	reasons := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		reasons = append(reasons, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "通知校验失败: " + strings.Join(reasons, "; ")
}

// NotificationService 通知业务接口
type NotificationService interface {
	// AuthorAndSend 创作并分发通知：校验 → 解析受众 → 正本 + 收件箱分发
	AuthorAndSend(ctx context.Context, req *dto.SendNotificationRequest, senderID string) (*dto.SendNotificationResponse, error)
	// Redeliver 对已存在的通知重新执行分发（部分失败后的安全重试路径）
	Redeliver(ctx context.Context, notificationID string) (*dto.DistributionResult, error)

	List(ctx context.Context, req *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error)
	ListInbox(ctx context.Context, recipientID string, req *dto.InboxListRequest) ([]dto.InboxEntryResponse, int64, error)
	MarkRead(ctx context.Context, recipientID, notificationID string) (*dto.InboxEntryResponse, error)
	SetReaction(ctx context.Context, recipientID, notificationID, reaction string) error
}

type notificationService struct {
	repo     *repository.Repository
	resolver AudienceResolver
	fanout   FanoutWriter
	logger   *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(
	repo *repository.Repository,
	resolver AudienceResolver,
	fanout FanoutWriter,
	logger *zap.Logger,
) NotificationService {
	return &notificationService{
		repo:     repo,
		resolver: resolver,
		fanout:   fanout,
		logger:   logger,
	}
}

// ────────────────────── AuthorAndSend ──────────────────────

func (s *notificationService) AuthorAndSend(ctx context.Context, req *dto.SendNotificationRequest, senderID string) (*dto.SendNotificationResponse, error) {
	// 1. 加载发送者档案（私有受众的授权与目标届别均取自发送者本人档案）
	sender, err := s.repo.User.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSenderNotFound
		}
		s.logger.Error("查询发送者失败", zap.String("sender_id", senderID), zap.Error(err))
		return nil, err
	}

	// 2. 校验（全部规则独立评估，任何写入之前完成）
	n, err := s.author(req, sender)
	if err != nil {
		return nil, err
	}

	// 3. 解析受众
	spec := AudienceSpec{Type: n.AudienceType}
	if n.AudienceTarget != nil {
		spec.Target = *n.AudienceTarget
	}
	recipients, err := s.resolver.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}

	// 4. 分发（正本 + 收件箱副本）
	dist, err := s.fanout.Distribute(ctx, n, recipients)
	if err != nil {
		return nil, err
	}

	return &dto.SendNotificationResponse{
		NotificationID: n.NotificationID,
		Message:        distributionMessage(dist),
		Distribution:   dist,
	}, nil
}

// author 校验操作员输入并构造通知正本
// 成功时在任何写入发生前分配 NotificationID，
// 该 ID 随后作为全部收件箱副本的连接键（分发幂等性的来源）
func (s *notificationService) author(req *dto.SendNotificationRequest, sender *model.User) (*model.Notification, error) {
	var fields []dto.FieldError

	title := strings.TrimSpace(req.Title)
	if title == "" {
		fields = append(fields, dto.FieldError{Field: "title", Reason: "标题不能为空"})
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		fields = append(fields, dto.FieldError{Field: "body", Reason: "正文不能为空"})
	}

	if !model.ValidCategories[req.Category] {
		fields = append(fields, dto.FieldError{Field: "category", Reason: "分类无效"})
	}

	// 链接可选；空字符串视为未提供而非非法
	var link *string
	if trimmed := strings.TrimSpace(req.Link); trimmed != "" {
		if !isAbsoluteURL(trimmed) {
			fields = append(fields, dto.FieldError{Field: "link", Reason: "链接必须为绝对 URL"})
		} else {
			link = &trimmed
		}
	}

	// 私有受众要求发送者具备管理角色且本人档案有可解析的届别；
	// 缺少任一条件即校验失败，不静默降级为公开。
	// 档案届别缺失时即使请求显式给出目标也拒绝
	var target *string
	switch req.AudienceType {
	case model.AudiencePublic:
		// 无附加条件
	case model.AudiencePrivate:
		if !sender.CanBroadcast() {
			fields = append(fields, dto.FieldError{Field: "audience_type", Reason: "无权发送私有受众通知"})
		}
		if sender.Batch == "" {
			fields = append(fields, dto.FieldError{Field: "audience_target", Reason: "发送者档案缺少届别，无法确定私有受众"})
		} else {
			batch := req.AudienceTarget
			if batch == "" {
				batch = sender.Batch
			}
			target = &batch
		}
	default:
		fields = append(fields, dto.FieldError{Field: "audience_type", Reason: "受众类型无效"})
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return &model.Notification{
		NotificationID: uuid.New().String(),
		Title:          title,
		Body:           body,
		Category:       req.Category,
		Link:           link,
		AudienceType:   req.AudienceType,
		AudienceTarget: target,
		SenderID:       sender.UserID,
		SenderName:     sender.Name,
		CreatedAt:      time.Now(),
	}, nil
}

// ────────────────────── Redeliver ──────────────────────

func (s *notificationService) Redeliver(ctx context.Context, notificationID string) (*dto.DistributionResult, error) {
	n, err := s.repo.Notification.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		s.logger.Error("查询通知失败", zap.String("notification_id", notificationID), zap.Error(err))
		return nil, err
	}

	// 受众按当前目录状态重新解析（接受 resolve 与 distribute 之间的最终一致）
	spec := AudienceSpec{Type: n.AudienceType}
	if n.AudienceTarget != nil {
		spec.Target = *n.AudienceTarget
	}
	recipients, err := s.resolver.Resolve(ctx, spec)
	if err != nil {
		return nil, err
	}

	return s.fanout.Distribute(ctx, n, recipients)
}

// ────────────────────── List（管理端正本列表） ──────────────────────

func (s *notificationService) List(ctx context.Context, req *dto.PaginationRequest) ([]dto.NotificationResponse, int64, error) {
	req.Normalize()

	list, total, err := s.repo.Notification.List(ctx, req.Offset(), req.PageSize)
	if err != nil {
		s.logger.Error("列出通知失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, toNotificationResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── 收件箱操作 ──────────────────────

func (s *notificationService) ListInbox(ctx context.Context, recipientID string, req *dto.InboxListRequest) ([]dto.InboxEntryResponse, int64, error) {
	req.Normalize()

	entries, total, err := s.repo.Inbox.ListByRecipient(ctx, recipientID, req.UnreadOnly, req.Offset(), req.PageSize)
	if err != nil {
		s.logger.Error("查询收件箱失败", zap.String("recipient_id", recipientID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.InboxEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toInboxEntryResponse(&entries[i]))
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, recipientID, notificationID string) (*dto.InboxEntryResponse, error) {
	if err := s.repo.Inbox.MarkRead(ctx, recipientID, notificationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInboxEntryNotFound
		}
		s.logger.Error("标记已读失败",
			zap.String("recipient_id", recipientID),
			zap.String("notification_id", notificationID),
			zap.Error(err),
		)
		return nil, err
	}

	entry, err := s.repo.Inbox.GetEntry(ctx, recipientID, notificationID)
	if err != nil {
		return nil, err
	}
	resp := toInboxEntryResponse(entry)
	return &resp, nil
}

func (s *notificationService) SetReaction(ctx context.Context, recipientID, notificationID, reaction string) error {
	if err := s.repo.Inbox.SetReaction(ctx, recipientID, notificationID, reaction); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInboxEntryNotFound
		}
		s.logger.Error("设置反应失败",
			zap.String("recipient_id", recipientID),
			zap.String("notification_id", notificationID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

// isAbsoluteURL 校验绝对 URL（scheme://host/...）
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// distributionMessage 生成操作员可见的分发摘要
func distributionMessage(dist *dto.DistributionResult) string {
	if dist.TotalRecipients == 0 {
		return "没有匹配的接收者"
	}
	if dist.FailedBatches > 0 {
		return fmt.Sprintf("已送达 %d / %d 位接收者，%d 个批次失败，可重试分发",
			dist.Delivered, dist.TotalRecipients, dist.FailedBatches)
	}
	return fmt.Sprintf("已送达 %d 位接收者", dist.Delivered)
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		NotificationID: n.NotificationID,
		Title:          n.Title,
		Body:           n.Body,
		Category:       n.Category,
		Link:           n.Link,
		AudienceType:   n.AudienceType,
		AudienceTarget: n.AudienceTarget,
		SenderID:       n.SenderID,
		SenderName:     n.SenderName,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	}
}

func toInboxEntryResponse(e *model.InboxEntry) dto.InboxEntryResponse {
	var readAt *string
	if e.ReadAt != nil {
		formatted := e.ReadAt.Format(time.RFC3339)
		readAt = &formatted
	}
	return dto.InboxEntryResponse{
		NotificationID: e.NotificationID,
		Title:          e.Title,
		Body:           e.Body,
		Category:       e.Category,
		Link:           e.Link,
		SenderName:     e.SenderName,
		IsRead:         e.IsRead,
		ReadAt:         readAt,
		Reaction:       e.Reaction,
		ReceivedAt:     e.ReceivedAt.Format(time.RFC3339),
	}
}
