package model

import "time"

// AuditLog 操作审计日志表 — 对应 audit_logs（纯追加，业务不读取）
type AuditLog struct {
	AuditLogID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_log_id"`
	ActorID    string    `gorm:"type:uuid;not null"                             json:"actor_id"`
	TargetType string    `gorm:"type:varchar(50);not null"                      json:"target_type"` // session | attendance | course | ...
	TargetID   string    `gorm:"type:varchar(64);not null"                      json:"target_id"`
	Action     string    `gorm:"type:varchar(50);not null"                      json:"action"`
	Details    string    `gorm:"type:text"                                      json:"details,omitempty"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_logs" }
