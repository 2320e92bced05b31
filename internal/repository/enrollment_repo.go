package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendease/backend/internal/model"
	pkgerrors "attendease/backend/pkg/errors"
)

// EnrollmentRepository 选课关系数据访问接口（核心视角下的名册协作方）
type EnrollmentRepository interface {
	// InsertIfAbsent 原子选课：(user, course) 已存在时返回 pkgerrors.ErrDuplicateKey
	InsertIfAbsent(ctx context.Context, enrollment *model.Enrollment) error
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
	CountByCourse(ctx context.Context, courseID string) (int64, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) InsertIfAbsent(ctx context.Context, enrollment *model.Enrollment) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(enrollment)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrDuplicateKey
	}
	return nil
}

func (r *enrollmentRepo) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	return count > 0, err
}

// ListByCourse 按加入时间排序返回课程名册（预载学生信息）
func (r *enrollmentRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("course_id = ?", courseID).
		Order("joined_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("joined_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return count, err
}
