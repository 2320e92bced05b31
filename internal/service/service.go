package service

import (
	"go.uber.org/zap"

	"attendease/backend/config"
	"attendease/backend/internal/repository"
	"attendease/backend/pkg/jwt"
	"attendease/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Course     CourseService
	Schedule   ScheduleService
	Session    SessionService
	Attendance AttendanceService
	Excuse     ExcuseService
	Report     ReportService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	audit := NewAuditRecorder(repo, logger)
	reports := NewReportService(repo, logger)

	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Course:     NewCourseService(repo, audit, logger),
		Schedule:   NewScheduleService(&cfg.Attendance, repo, audit, logger),
		Session:    NewSessionService(repo, audit, cfg.Attendance.AuthCodeDigits, logger),
		Attendance: NewAttendanceService(repo, audit, logger),
		Excuse:     NewExcuseService(repo, audit, logger),
		Report:     reports,
		Export:     NewExportService(repo, reports, logger),
	}
}
