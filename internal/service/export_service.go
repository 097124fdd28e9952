package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"campus-hub/backend/internal/model"
	"campus-hub/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoNotifications = errors.New("暂无可导出的通知")
	ErrExportGenerateFail    = errors.New("生成导出文件失败")
)

// 报表单次导出的通知上限
const exportReportLimit = 1000

// ExportService 导出业务接口
//
// 设计说明：
//   - 通知送达报表导出为 Excel (.xlsx)，按通知正本逐行列出送达 / 已读统计
//   - event 分类通知可导出为 iCalendar 订阅源
//   - Excel 以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportDeliveryReport 导出通知送达报表为 Excel
	ExportDeliveryReport(ctx context.Context) (*bytes.Buffer, string, error)
	// EventCalendar 生成 event 分类通知的 iCalendar 文本
	EventCalendar(ctx context.Context) (string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportDeliveryReport — 导出通知送达报表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "送达报表"
//   - 列：标题 / 分类 / 受众 / 发送者 / 发送时间 / 送达数 / 已读数
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportDeliveryReport(ctx context.Context) (*bytes.Buffer, string, error) {
	// 1. 查询通知正本
	notifications, _, err := s.repo.Notification.List(ctx, 0, exportReportLimit)
	if err != nil {
		s.logger.Error("查询通知失败", zap.Error(err))
		return nil, "", err
	}
	if len(notifications) == 0 {
		return nil, "", ErrExportNoNotifications
	}

	// 2. 批量查询送达 / 已读统计
	ids := make([]string, 0, len(notifications))
	for i := range notifications {
		ids = append(ids, notifications[i].NotificationID)
	}
	stats, err := s.repo.Inbox.ReadStats(ctx, ids)
	if err != nil {
		s.logger.Warn("查询送达统计失败，统计列回退为 0", zap.Error(err))
		stats = map[string]repository.NotificationReadStats{}
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "送达报表"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"标题", "分类", "受众", "发送者", "发送时间", "送达数", "已读数"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	for row, n := range notifications {
		audience := n.AudienceType
		if n.AudienceTarget != nil {
			audience = fmt.Sprintf("%s (%s)", n.AudienceType, *n.AudienceTarget)
		}
		st := stats[n.NotificationID]
		values := []interface{}{
			n.Title,
			n.Category,
			audience,
			n.SenderName,
			n.CreatedAt.Format("2006-01-02 15:04"),
			st.Delivered,
			st.Read,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", ErrExportGenerateFail
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写入 Excel 缓冲失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("notification-report-%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// EventCalendar — event 分类通知的 iCalendar 订阅源
// ═══════════════════════════════════════════════════════════
//
// 每条 event 通知映射为一个 VEVENT：
//   - UID 取 notification_id（订阅端据此去重）
//   - SUMMARY / DESCRIPTION 取标题与正文
//   - DTSTART 取通知创建时间（正本不携带独立的活动时间）

func (s *exportService) EventCalendar(ctx context.Context) (string, error) {
	notifications, err := s.repo.Notification.ListByCategory(ctx, model.CategoryEvent)
	if err != nil {
		s.logger.Error("查询活动通知失败", zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//campus-hub//notifications//ZH")

	for i := range notifications {
		n := &notifications[i]
		event := cal.AddEvent(n.NotificationID)
		event.SetCreatedTime(n.CreatedAt)
		event.SetDtStampTime(n.CreatedAt)
		event.SetStartAt(n.CreatedAt)
		event.SetSummary(n.Title)
		event.SetDescription(n.Body)
		event.SetOrganizer(n.SenderName)
		if n.Link != nil {
			event.SetURL(*n.Link)
		}
	}

	return cal.Serialize(), nil
}
