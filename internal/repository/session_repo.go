package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"attendease/backend/internal/model"
)

// SessionRepository 课次数据访问接口
//
// 窗口状态变更均为定向 UPDATE，避免整行 Save 覆盖并发签发的验证码。
type SessionRepository interface {
	Create(ctx context.Context, session *model.ClassSession) error
	// CreateBatch 批量插入排课结果（单条 INSERT，多行写入的唯一场景）
	CreateBatch(ctx context.Context, sessions []model.ClassSession) error
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.ClassSession, error)
	// SetOpenAndMethod 设置窗口开关与签到方式
	SetOpenAndMethod(ctx context.Context, sessionID string, isOpen bool, method string) error
	// ClearCode 清除验证码（仅在切换到非 AUTH_CODE 方式时调用）
	ClearCode(ctx context.Context, sessionID string) error
	// SetCodeIfAbsent 原子签发验证码：仅当 auth_code 为空时写入。
	// 返回是否本次写入成功；并发签发时落败方应重读并采用先写入的码。
	SetCodeIfAbsent(ctx context.Context, sessionID, code string) (bool, error)
	// UpdateDate 课次改期，同时无条件清除节假日标记（改期后的课不再是假日课）
	UpdateDate(ctx context.Context, sessionID string, date time.Time) error
	SetPolling(ctx context.Context, sessionID string, isPolling bool) error
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.ClassSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) CreateBatch(ctx context.Context, sessions []model.ClassSession) error {
	return r.db.WithContext(ctx).Create(&sessions).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.ClassSession, error) {
	var session model.ClassSession
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByCourse 按周次升序返回课次（预警统计依赖此顺序）
func (r *sessionRepo) ListByCourse(ctx context.Context, courseID string) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("week_number ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) SetOpenAndMethod(ctx context.Context, sessionID string, isOpen bool, method string) error {
	return r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"is_open":           isOpen,
			"attendance_method": method,
		}).Error
}

func (r *sessionRepo) ClearCode(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("session_id = ?", sessionID).
		Update("auth_code", nil).Error
}

func (r *sessionRepo) SetCodeIfAbsent(ctx context.Context, sessionID, code string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("session_id = ? AND auth_code IS NULL", sessionID).
		Update("auth_code", code)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *sessionRepo) UpdateDate(ctx context.Context, sessionID string, date time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"session_date": date,
			"is_holiday":   false,
		}).Error
}

func (r *sessionRepo) SetPolling(ctx context.Context, sessionID string, isPolling bool) error {
	return r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("session_id = ?", sessionID).
		Update("is_polling", isPolling).Error
}
