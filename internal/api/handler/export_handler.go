package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"campus-hub/backend/internal/service"
	"campus-hub/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportDeliveryReport 导出通知送达报表
// GET /api/v1/export/notifications
func (h *ExportHandler) ExportDeliveryReport(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportDeliveryReport(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExportNoNotifications):
			response.NotFound(c, 14001, "暂无可导出的通知")
		case errors.Is(err, service.ErrExportGenerateFail):
			response.InternalError(c)
		default:
			response.InternalError(c)
		}
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// EventCalendar 活动通知 iCalendar 订阅源
// GET /api/v1/notifications/events.ics
func (h *ExportHandler) EventCalendar(c *gin.Context) {
	calendar, err := h.exportSvc.EventCalendar(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="events.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar))
}
