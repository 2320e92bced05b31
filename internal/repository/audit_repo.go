package repository

import (
	"context"

	"gorm.io/gorm"

	"attendease/backend/internal/model"
)

// AuditRepository 审计日志数据访问接口（纯追加）
type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
}

type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepo 创建 AuditRepository 实例
func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(ctx context.Context, log *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
