package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-hub/backend/internal/identity"
	"campus-hub/backend/internal/repository"
)

// ReconcileOutcome 单次对账的终态
type ReconcileOutcome string

const (
	// ReconcileUnchanged 权威标记与缓存一致，未发生写入
	ReconcileUnchanged ReconcileOutcome = "unchanged"
	// ReconcileRepaired 缓存由 false 修复为 true（写入已确认）
	ReconcileRepaired ReconcileOutcome = "repaired"
	// ReconcileFailed 读或写失败；会话照常继续，下次会话建立时重试
	ReconcileFailed ReconcileOutcome = "failed"
)

// ReconcileService 邮箱验证状态对账
//
// 每次会话建立时运行一次：强制刷新读取身份提供方的权威验证标记，
// 与用户档案中的缓存副本比对，不一致时发出修正写。
//
// 修复仅单向（缓存 false → true）：身份提供方是验证状态的唯一权威源，
// 已缓存的 true 即使后续权威读返回 false 也不自动降级，
// 仅记录告警（避免用户先获得再失去验证态的体验反复）。
//
// 对账失败不阻塞会话：用户带着过期缓存继续，下次会话建立时自愈。
// 可安全地冗余调用（如每次认证状态迁移时）；已一致时除两次读外无副作用。
type ReconcileService interface {
	Reconcile(ctx context.Context, userID string) (ReconcileOutcome, error)
}

type reconcileService struct {
	repo   *repository.Repository
	idp    identity.Provider
	logger *zap.Logger
}

// NewReconcileService 创建 ReconcileService 实例
func NewReconcileService(repo *repository.Repository, idp identity.Provider, logger *zap.Logger) ReconcileService {
	return &reconcileService{repo: repo, idp: idp, logger: logger}
}

func (s *reconcileService) Reconcile(ctx context.Context, userID string) (ReconcileOutcome, error) {
	// 1. 强制刷新读取权威标记（绕过会话缓存，观察带外验证）
	info, err := s.idp.CurrentUser(ctx, userID, true)
	if err != nil {
		s.logger.Warn("读取身份提供方失败，跳过本次对账",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return ReconcileFailed, err
	}

	// 2. 读取档案中的缓存副本
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 档案缺失属于注册流程的问题，对账不负责创建记录
			s.logger.Warn("对账时用户档案不存在", zap.String("user_id", userID))
			return ReconcileFailed, ErrUserNotFound
		}
		s.logger.Warn("读取用户档案失败，跳过本次对账",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return ReconcileFailed, err
	}

	// 3. 比对
	live, cached := info.EmailVerified, user.EmailVerified
	if live == cached {
		return ReconcileUnchanged, nil
	}

	if !live && cached {
		// 反向漂移不自动修复，仅告警
		s.logger.Warn("检测到反向验证状态漂移（缓存 true / 权威 false），不自动降级",
			zap.String("user_id", userID),
		)
		return ReconcileUnchanged, nil
	}

	// 4. 修复：合并写缓存标记；写确认之前不更新任何内存状态
	if err := s.repo.User.SetEmailVerified(ctx, userID, true); err != nil {
		s.logger.Warn("修复验证标记失败，下次会话建立时重试",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return ReconcileFailed, err
	}

	s.logger.Info("已修复邮箱验证标记缓存", zap.String("user_id", userID))
	return ReconcileRepaired, nil
}
