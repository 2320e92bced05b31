package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendease/backend/config"
	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
	pkgerrors "attendease/backend/pkg/errors"
)

// ── 排课模块业务错误 ──

var (
	ErrInvalidScheduleRequest = errors.New("排课参数无效")
	ErrScheduleDateInvalid    = errors.New("排课日期格式无效")
	ErrWeekNumberTaken        = errors.New("该周次的课次已存在")
)

// ScheduleService 排课业务接口
//
// GenerateSessions 在建课后执行一次：按周生成整学期课次。
// 节假日命中的课次照常生成并打标，是否改期由教师决定。
type ScheduleService interface {
	GenerateSessions(ctx context.Context, courseID string, req *dto.GenerateSessionsRequest, caller Principal) ([]dto.SessionResponse, error)
	CreateSession(ctx context.Context, courseID string, req *dto.CreateSessionRequest, caller Principal) (*dto.SessionResponse, error)
}

type scheduleService struct {
	cfg      *config.AttendanceConfig
	repo     *repository.Repository
	audit    *AuditRecorder
	holidays map[string]bool
	logger   *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(cfg *config.AttendanceConfig, repo *repository.Repository, audit *AuditRecorder, logger *zap.Logger) ScheduleService {
	return &scheduleService{
		cfg:      cfg,
		repo:     repo,
		audit:    audit,
		holidays: cfg.HolidaySet(),
		logger:   logger,
	}
}

// ────────────────────── GenerateSessions ──────────────────────

func (s *scheduleService) GenerateSessions(ctx context.Context, courseID string, req *dto.GenerateSessionsRequest, caller Principal) ([]dto.SessionResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return nil, err
	}

	if err := Gate(caller, ActionScheduleSessions, course); err != nil {
		return nil, err
	}

	meetingCount := req.MeetingCount
	if meetingCount <= 0 {
		return nil, ErrInvalidScheduleRequest
	}
	if req.Weekday < 1 || req.Weekday > 7 {
		return nil, ErrInvalidScheduleRequest
	}

	termStart, err := time.Parse("2006-01-02", req.TermStart)
	if err != nil {
		return nil, ErrScheduleDateInvalid
	}

	// 首次上课日 = 学期开始日当周（含当日）之后第一个目标星期
	first := firstOnOrAfter(termStart, req.Weekday)
	first = time.Date(first.Year(), first.Month(), first.Day(),
		req.StartHour, req.StartMinute, 0, 0, time.Local)

	sessions := make([]model.ClassSession, 0, meetingCount)
	for i := 0; i < meetingCount; i++ {
		date := first.AddDate(0, 0, 7*i)
		session := model.ClassSession{
			CourseID:         courseID,
			WeekNumber:       i + 1,
			SessionDate:      date,
			IsHoliday:        s.holidays[date.Format("2006-01-02")],
			AttendanceMethod: model.MethodElectronic,
			IsOpen:           false,
		}
		session.CreatedBy = &caller.ID
		session.UpdatedBy = &caller.ID
		sessions = append(sessions, session)
	}

	if err := s.repo.Session.CreateBatch(ctx, sessions); err != nil {
		s.logger.Error("批量生成课次失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	s.audit.Record(caller.ID, "course", courseID, "generate_sessions",
		fmt.Sprintf("meetings=%d start=%s", meetingCount, req.TermStart))

	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *toSessionResponse(&sessions[i], true))
	}
	return result, nil
}

// ────────────────────── CreateSession ──────────────────────

func (s *scheduleService) CreateSession(ctx context.Context, courseID string, req *dto.CreateSessionRequest, caller Principal) (*dto.SessionResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return nil, err
	}

	if err := Gate(caller, ActionScheduleSessions, course); err != nil {
		return nil, err
	}

	date, err := time.Parse(time.RFC3339, req.SessionDate)
	if err != nil {
		return nil, ErrScheduleDateInvalid
	}

	method := req.AttendanceMethod
	if method == "" {
		method = model.MethodElectronic
	}

	session := &model.ClassSession{
		CourseID:         courseID,
		WeekNumber:       req.WeekNumber,
		SessionDate:      date,
		IsHoliday:        s.holidays[date.Format("2006-01-02")],
		AttendanceMethod: method,
		IsOpen:           false,
	}
	session.CreatedBy = &caller.ID
	session.UpdatedBy = &caller.ID

	if err := s.repo.Session.Create(ctx, session); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrWeekNumberTaken
		}
		s.logger.Error("创建课次失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	s.audit.Record(caller.ID, "session", session.SessionID, "create",
		fmt.Sprintf("week=%d", req.WeekNumber))

	return toSessionResponse(session, true), nil
}

// ── 内部辅助方法 ──

// firstOnOrAfter 计算 start 当日或之后第一个 weekday（1=周一 … 7=周日）
func firstOnOrAfter(start time.Time, weekday int) time.Time {
	// time.Weekday 以周日为 0，转换为 ISO 周一为 1
	iso := int(start.Weekday())
	if iso == 0 {
		iso = 7
	}
	delta := (weekday - iso + 7) % 7
	return start.AddDate(0, 0, delta)
}

func toSessionResponse(session *model.ClassSession, includeCode bool) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:               session.SessionID,
		CourseID:         session.CourseID,
		WeekNumber:       session.WeekNumber,
		SessionDate:      session.SessionDate.Format(time.RFC3339),
		IsHoliday:        session.IsHoliday,
		AttendanceMethod: session.AttendanceMethod,
		IsOpen:           session.IsOpen,
		IsPolling:        session.IsPolling,
	}
	if includeCode && session.AuthCode != nil {
		resp.AuthCode = *session.AuthCode
	}
	return resp
}
