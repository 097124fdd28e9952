package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"campus-hub/backend/internal/dto"
	"campus-hub/backend/internal/model"
	"campus-hub/backend/internal/repository"
)

// FanoutWriter 通知分发写入器
//
// 分发算法：
//  1. 先写通知正本（审计副本），失败则中止，不产生任何收件箱写入
//  2. 将接收者集合切分为不超过批次上限的批次
//  3. 各批次作为单次原子操作提交，批次间有界并发，互不阻断
//  4. 汇总各批次成败为 DistributionResult，部分失败是合法终态
//
// 幂等性：收件箱副本键为 (recipient_id, notification_id)，
// 而 notification_id 在分发开始前已固定，因此对同一通知重复调用
// Distribute（如部分失败后的重试）是合并写而非追加，不会产生重复副本。
//
// 一致性说明：受众解析与分发之间不提供快照隔离，
// 目录成员在两步之间的变动按调用时刻的解析结果为准（接受的最终一致）。
type FanoutWriter interface {
	Distribute(ctx context.Context, n *model.Notification, recipients []string) (*dto.DistributionResult, error)
}

type fanoutWriter struct {
	repo           *repository.Repository
	batchSize      int
	maxConcurrency int
	logger         *zap.Logger
}

// NewFanoutWriter 创建 FanoutWriter 实例
// batchSize 对应底层存储单次原子写入组上限；maxConcurrency 限制并发批次数
func NewFanoutWriter(repo *repository.Repository, batchSize, maxConcurrency int, logger *zap.Logger) FanoutWriter {
	if batchSize <= 0 {
		batchSize = 200
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &fanoutWriter{
		repo:           repo,
		batchSize:      batchSize,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

func (w *fanoutWriter) Distribute(ctx context.Context, n *model.Notification, recipients []string) (*dto.DistributionResult, error) {
	// 1. 正本先行：正本写入失败时不得存在任何收件箱副本
	if err := w.repo.Notification.Upsert(ctx, n); err != nil {
		w.logger.Error("写入通知正本失败",
			zap.String("notification_id", n.NotificationID),
			zap.Error(err),
		)
		return nil, err
	}

	// 2. 切分批次
	batches := partition(recipients, w.batchSize)
	results := make([]dto.BatchResult, len(batches))

	// 3. 有界并发提交；单批失败不阻断其余批次
	receivedAt := time.Now()
	g := new(errgroup.Group)
	g.SetLimit(w.maxConcurrency)

	for i, batch := range batches {
		g.Go(func() error {
			entries := make([]model.InboxEntry, 0, len(batch))
			for _, recipientID := range batch {
				entries = append(entries, model.NewInboxEntry(n, recipientID, receivedAt))
			}

			result := dto.BatchResult{Index: i, RecipientIDs: batch}
			if err := w.repo.Inbox.BatchUpsert(ctx, entries); err != nil {
				w.logger.Error("收件箱批次提交失败",
					zap.String("notification_id", n.NotificationID),
					zap.Int("batch", i),
					zap.Int("size", len(batch)),
					zap.Error(err),
				)
				result.Success = false
				result.Error = err.Error()
			} else {
				result.Success = true
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait() // 批次错误已记录在 results 中，goroutine 不返回 error

	// 4. 汇总
	summary := &dto.DistributionResult{
		NotificationID:  n.NotificationID,
		TotalRecipients: len(recipients),
		Batches:         results,
	}
	for _, r := range results {
		if r.Success {
			summary.Delivered += len(r.RecipientIDs)
		} else {
			summary.FailedBatches++
		}
	}

	w.logger.Info("通知分发完成",
		zap.String("notification_id", n.NotificationID),
		zap.Int("total", summary.TotalRecipients),
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed_batches", summary.FailedBatches),
	)

	return summary, nil
}

// partition 将接收者切分为大小不超过 size 的批次
func partition(recipients []string, size int) [][]string {
	if len(recipients) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, recipients[start:end])
	}
	return batches
}
