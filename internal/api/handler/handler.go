package handler

import (
	"attendease/backend/config"
	"attendease/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Course     *CourseHandler
	Session    *SessionHandler
	Attendance *AttendanceHandler
	Report     *ReportHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Course:     NewCourseHandler(svc.Course),
		Session:    NewSessionHandler(svc.Schedule, svc.Session, cfg.Attendance.TermWeeks),
		Attendance: NewAttendanceHandler(svc.Attendance, svc.Excuse),
		Report:     NewReportHandler(svc.Report),
		Export:     NewExportHandler(svc.Export),
	}
}
