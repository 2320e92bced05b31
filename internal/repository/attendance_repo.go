package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendease/backend/internal/model"
	pkgerrors "attendease/backend/pkg/errors"
)

// AttendanceRepository 考勤记录数据访问接口
type AttendanceRepository interface {
	// InsertIfAbsent 原子创建：(session, student) 已有记录时返回
	// pkgerrors.ErrDuplicateKey，调用方据此判定重复签到。
	InsertIfAbsent(ctx context.Context, record *model.AttendanceRecord) error
	// MarkPresentIfUnset 仅当记录仍为未定状态时置为出席（并发签到第二道闸）
	MarkPresentIfUnset(ctx context.Context, attendanceID string, checkedAt time.Time) error
	GetBySessionAndStudent(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error)
	Update(ctx context.Context, record *model.AttendanceRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	// ListByCourse 返回课程全部考勤记录，按 (学生, 周次) 排序，
	// 连续迟到统计依赖周次顺序
	ListByCourse(ctx context.Context, courseID string) ([]model.AttendanceRecord, error)
	// ListByCourseAndStudent 返回某学生在某课程下的全部考勤记录，按周次升序
	ListByCourseAndStudent(ctx context.Context, courseID, studentID string) ([]model.AttendanceRecord, error)
	CountAttendedBySession(ctx context.Context, sessionID string) (int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) InsertIfAbsent(ctx context.Context, record *model.AttendanceRecord) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrDuplicateKey
	}
	return nil
}

func (r *attendanceRepo) MarkPresentIfUnset(ctx context.Context, attendanceID string, checkedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("attendance_id = ? AND status = ?", attendanceID, model.StatusUnset).
		Updates(map[string]interface{}{
			"status":     model.StatusPresent,
			"checked_at": checkedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrNoRowsAffected
	}
	return nil
}

func (r *attendanceRepo) GetBySessionAndStudent(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *attendanceRepo) Update(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *attendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByCourse(ctx context.Context, courseID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN class_sessions ON class_sessions.session_id = attendances.session_id").
		Where("class_sessions.course_id = ?", courseID).
		Order("attendances.student_id ASC, class_sessions.week_number ASC").
		Preload("Session").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListByCourseAndStudent(ctx context.Context, courseID, studentID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN class_sessions ON class_sessions.session_id = attendances.session_id").
		Where("class_sessions.course_id = ? AND attendances.student_id = ?", courseID, studentID).
		Order("class_sessions.week_number ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) CountAttendedBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("session_id = ? AND status IN ?", sessionID,
			[]model.AttendanceStatus{model.StatusPresent, model.StatusExcusedApproved}).
		Count(&count).Error
	return count, err
}
