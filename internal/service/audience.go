package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"campus-hub/backend/internal/model"
	"campus-hub/backend/internal/repository"
)

// ── 受众模块业务错误 ──

var (
	ErrAudienceTypeInvalid   = errors.New("受众类型无效")
	ErrAudienceTargetMissing = errors.New("私有受众缺少目标届别")
)

// AudienceSpec 受众说明
// Type 为 public 时匹配目录全部用户；为 private 时按 Target 精确匹配 batch 属性
type AudienceSpec struct {
	Type   string
	Target string
}

// AudienceResolver 受众解析器
// 将受众说明解析为具体的接收者用户 ID 集合。
// 空结果集是合法的（零接收者），不视为错误；
// 目录查询失败则整体解析失败，调用方不得继续分发。
type AudienceResolver interface {
	Resolve(ctx context.Context, spec AudienceSpec) ([]string, error)
}

type audienceResolver struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAudienceResolver 创建 AudienceResolver 实例
func NewAudienceResolver(repo *repository.Repository, logger *zap.Logger) AudienceResolver {
	return &audienceResolver{repo: repo, logger: logger}
}

func (r *audienceResolver) Resolve(ctx context.Context, spec AudienceSpec) ([]string, error) {
	switch spec.Type {
	case model.AudiencePublic:
		ids, err := r.repo.User.ListIDs(ctx)
		if err != nil {
			r.logger.Error("解析公开受众失败", zap.Error(err))
			return nil, err
		}
		return ids, nil

	case model.AudiencePrivate:
		if spec.Target == "" {
			return nil, ErrAudienceTargetMissing
		}
		ids, err := r.repo.User.ListIDsByBatch(ctx, spec.Target)
		if err != nil {
			r.logger.Error("解析私有受众失败",
				zap.String("target", spec.Target),
				zap.Error(err),
			)
			return nil, err
		}
		return ids, nil

	default:
		return nil, ErrAudienceTypeInvalid
	}
}
