package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
//
// 所有操作均为单记录读写，持久层以唯一约束与条件更新作为
// 并发裁决点，无需跨仓储事务。
type Repository struct {
	User       UserRepository
	Course     CourseRepository
	Enrollment EnrollmentRepository
	Session    SessionRepository
	Attendance AttendanceRepository
	Audit      AuditRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Course:     NewCourseRepo(db),
		Enrollment: NewEnrollmentRepo(db),
		Session:    NewSessionRepo(db),
		Attendance: NewAttendanceRepo(db),
		Audit:      NewAuditRepo(db),
	}
}
