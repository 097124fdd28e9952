package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-hub/backend/internal/dto"
	"campus-hub/backend/internal/service"
	"campus-hub/backend/pkg/response"
)

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notifSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notifSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifSvc: notifSvc}
}

// Send 发送通知（管理端）
// POST /api/v1/notifications
// 部分批次失败时仍返回 201，分发结果中如实标注失败批次
func (h *NotificationHandler) Send(c *gin.Context) {
	var req dto.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	senderID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.notifSvc.AuthorAndSend(c.Request.Context(), &req, senderID)
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			response.ErrorWithDetails(c, http.StatusBadRequest, 13001, "通知校验失败", vErr.Fields)
		case errors.Is(err, service.ErrSenderNotFound):
			response.Unauthorized(c, 10002, "未认证")
		case errors.Is(err, service.ErrAudienceTypeInvalid):
			response.BadRequest(c, 13002, "受众类型无效")
		case errors.Is(err, service.ErrAudienceTargetMissing):
			response.BadRequest(c, 13003, "私有受众缺少目标届别")
		default:
			response.InternalError(c)
		}
		return
	}

	response.Created(c, result)
}

// Redeliver 重新分发通知（管理端，部分失败后的重试入口）
// POST /api/v1/notifications/:id/redeliver
func (h *NotificationHandler) Redeliver(c *gin.Context) {
	notificationID := c.Param("id")

	result, err := h.notifSvc.Redeliver(c.Request.Context(), notificationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotificationNotFound):
			response.NotFound(c, 13004, "通知不存在")
		case errors.Is(err, service.ErrAudienceTargetMissing):
			response.BadRequest(c, 13003, "私有受众缺少目标届别")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

// List 通知正本列表（管理端）
// GET /api/v1/notifications?page=1&page_size=20
func (h *NotificationHandler) List(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	req.Normalize()

	list, total, err := h.notifSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// ListInbox 收件箱列表
// GET /api/v1/inbox?unread_only=true&page=1&page_size=20
func (h *NotificationHandler) ListInbox(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.InboxListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	req.Normalize()

	entries, total, err := h.notifSvc.ListInbox(c.Request.Context(), userID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, entries, total, req.Page, req.PageSize)
}

// MarkRead 标记收件箱条目为已读
// PUT /api/v1/inbox/:notification_id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	notificationID := c.Param("notification_id")

	entry, err := h.notifSvc.MarkRead(c.Request.Context(), userID, notificationID)
	if err != nil {
		if errors.Is(err, service.ErrInboxEntryNotFound) {
			response.NotFound(c, 13005, "收件箱中不存在该通知")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, entry)
}

// SetReaction 设置收件箱条目的反应
// PUT /api/v1/inbox/:notification_id/reaction
func (h *NotificationHandler) SetReaction(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	notificationID := c.Param("notification_id")

	var req dto.SetReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.notifSvc.SetReaction(c.Request.Context(), userID, notificationID, req.Reaction); err != nil {
		if errors.Is(err, service.ErrInboxEntryNotFound) {
			response.NotFound(c, 13005, "收件箱中不存在该通知")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}
