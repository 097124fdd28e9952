package service

import (
	"go.uber.org/zap"

	"campus-hub/backend/config"
	"campus-hub/backend/internal/identity"
	"campus-hub/backend/internal/repository"
	"campus-hub/backend/pkg/jwt"
	"campus-hub/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Notification NotificationService
	Reconcile    ReconcileService
	Export       ExportService
}

// NewService 创建 Service 聚合
// 分发链路按依赖顺序装配：受众解析器与分发写入器先行，再注入通知服务
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	idp identity.Provider,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	resolver := NewAudienceResolver(repo, logger)
	fanout := NewFanoutWriter(repo, cfg.Fanout.BatchSize, cfg.Fanout.MaxConcurrency, logger)
	reconcile := NewReconcileService(repo, idp, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, reconcile, logger),
		User:         NewUserService(repo, logger),
		Notification: NewNotificationService(repo, resolver, fanout, logger),
		Reconcile:    reconcile,
		Export:       NewExportService(repo, logger),
	}
}
