package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
)

// AuditRecorder 审计旁路通道
//
// Record 为 fire-and-forget：异步写入，失败只记日志、永不向主操作传播，
// 也不阻塞触发它的业务调用。
type AuditRecorder struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAuditRecorder 创建 AuditRecorder
func NewAuditRecorder(repo *repository.Repository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{repo: repo, logger: logger}
}

const auditWriteTimeout = 3 * time.Second

// Record 异步记录一条审计日志
func (a *AuditRecorder) Record(actorID, targetType, targetID, action, details string) {
	entry := &model.AuditLog{
		ActorID:    actorID,
		TargetType: targetType,
		TargetID:   targetID,
		Action:     action,
		Details:    details,
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("审计写入发生 panic", zap.Any("recover", r))
			}
		}()

		// 不继承调用方 context：主请求结束不应取消审计写入
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()

		if err := a.repo.Audit.Create(ctx, entry); err != nil {
			a.logger.Warn("审计写入失败（已忽略）",
				zap.String("action", action),
				zap.String("target_type", targetType),
				zap.String("target_id", targetID),
				zap.Error(err),
			)
		}
	}()
}
