package model

import "time"

// ── 角色常量 ──

const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleStudent    = "STUDENT"
)

// User 用户表 — 对应 users
type User struct {
	UserID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string    `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string    `gorm:"type:varchar(20);not null;default:'STUDENT'"    json:"role"` // ADMIN | INSTRUCTOR | STUDENT
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }
