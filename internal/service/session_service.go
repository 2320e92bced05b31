package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
)

// ── 课次窗口模块业务错误 ──

var (
	ErrSessionNotFound = errors.New("课次不存在")
	ErrInvalidMethod   = errors.New("签到方式无效")
)

// SessionService 课次窗口业务接口
//
// 窗口状态机：CLOSED ↔ OPEN 可反复切换；签到方式与开关正交。
type SessionService interface {
	// SetStatus 变更窗口开关与签到方式。以 AUTH_CODE 方式开启且尚无
	// 验证码时签发一枚 4 位数字码；已有激活码时原样返回，绝不覆盖。
	SetStatus(ctx context.Context, sessionID string, req *dto.SetSessionStatusRequest, caller Principal) (*dto.SessionStatusResponse, error)
	// Reschedule 课次改期：无条件清除节假日标记，不影响开关/方式/验证码
	Reschedule(ctx context.Context, sessionID string, req *dto.RescheduleSessionRequest, caller Principal) (*dto.SessionResponse, error)
	// ToggleVoting 开关课堂投票，纯标志位翻转
	ToggleVoting(ctx context.Context, sessionID string, isPolling bool, caller Principal) error
	// ListForInstructor 教师视图课次列表（含验证码）
	ListForInstructor(ctx context.Context, courseID string, caller Principal) ([]dto.SessionResponse, error)
	// ListForStudent 学生视图课次列表（附本人考勤状态，无验证码）
	ListForStudent(ctx context.Context, courseID, studentID string) ([]dto.StudentSessionResponse, error)
}

type sessionService struct {
	repo       *repository.Repository
	audit      *AuditRecorder
	codeDigits int
	logger     *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, audit *AuditRecorder, codeDigits int, logger *zap.Logger) SessionService {
	if codeDigits <= 0 {
		codeDigits = 4
	}
	return &sessionService{repo: repo, audit: audit, codeDigits: codeDigits, logger: logger}
}

// ────────────────────── SetStatus ──────────────────────

func (s *sessionService) SetStatus(ctx context.Context, sessionID string, req *dto.SetSessionStatusRequest, caller Principal) (*dto.SessionStatusResponse, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := Gate(caller, ActionManageSession, session.Course); err != nil {
		return nil, err
	}

	if !model.ValidMethod(req.Method) {
		return nil, ErrInvalidMethod
	}

	if err := s.repo.Session.SetOpenAndMethod(ctx, sessionID, req.IsOpen, req.Method); err != nil {
		s.logger.Error("更新窗口状态失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	// 切换到非验证码方式时重置验证码；关闭窗口不清除（保留供课后核查）
	if req.Method != model.MethodAuthCode && session.AuthCode != nil {
		if err := s.repo.Session.ClearCode(ctx, sessionID); err != nil {
			s.logger.Error("清除验证码失败", zap.String("session_id", sessionID), zap.Error(err))
			return nil, err
		}
		session.AuthCode = nil
	}

	// 以验证码方式开启且尚无激活码时签发。set-if-absent 保证并发开启
	// 只会产生一枚码：落败方重读并采用先写入的码。
	if req.IsOpen && req.Method == model.MethodAuthCode && session.AuthCode == nil {
		code, err := s.generateCode()
		if err != nil {
			s.logger.Error("生成验证码失败", zap.Error(err))
			return nil, err
		}
		if _, err := s.repo.Session.SetCodeIfAbsent(ctx, sessionID, code); err != nil {
			s.logger.Error("签发验证码失败", zap.String("session_id", sessionID), zap.Error(err))
			return nil, err
		}
	}

	// 重读取当前生效状态（并发场景下以存储为准）
	session, err = s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(caller.ID, "session", sessionID, "set_status",
		fmt.Sprintf("open=%t method=%s", req.IsOpen, req.Method))

	resp := &dto.SessionStatusResponse{
		ID:     session.SessionID,
		IsOpen: session.IsOpen,
		Method: session.AttendanceMethod,
	}
	if session.AuthCode != nil {
		resp.AuthCode = *session.AuthCode
	}
	return resp, nil
}

// ────────────────────── Reschedule ──────────────────────

func (s *sessionService) Reschedule(ctx context.Context, sessionID string, req *dto.RescheduleSessionRequest, caller Principal) (*dto.SessionResponse, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := Gate(caller, ActionManageSession, session.Course); err != nil {
		return nil, err
	}

	date, err := time.Parse(time.RFC3339, req.SessionDate)
	if err != nil {
		return nil, ErrScheduleDateInvalid
	}

	if err := s.repo.Session.UpdateDate(ctx, sessionID, date); err != nil {
		s.logger.Error("课次改期失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	s.audit.Record(caller.ID, "session", sessionID, "reschedule", req.SessionDate)

	session.SessionDate = date
	session.IsHoliday = false
	return toSessionResponse(session, true), nil
}

// ────────────────────── ToggleVoting ──────────────────────

func (s *sessionService) ToggleVoting(ctx context.Context, sessionID string, isPolling bool, caller Principal) error {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := Gate(caller, ActionManageSession, session.Course); err != nil {
		return err
	}

	if err := s.repo.Session.SetPolling(ctx, sessionID, isPolling); err != nil {
		s.logger.Error("切换投票开关失败", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── ListForInstructor ──────────────────────

func (s *sessionService) ListForInstructor(ctx context.Context, courseID string, caller Principal) ([]dto.SessionResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return nil, err
	}

	if err := Gate(caller, ActionManageSession, course); err != nil {
		return nil, err
	}

	sessions, err := s.repo.Session.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课次列表失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *toSessionResponse(&sessions[i], true))
	}
	return result, nil
}

// ────────────────────── ListForStudent ──────────────────────

func (s *sessionService) ListForStudent(ctx context.Context, courseID, studentID string) ([]dto.StudentSessionResponse, error) {
	if _, err := s.repo.Course.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return nil, err
	}

	sessions, err := s.repo.Session.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课次列表失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	records, err := s.repo.Attendance.ListByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	statusBySession := make(map[string]model.AttendanceStatus, len(records))
	for _, r := range records {
		statusBySession[r.SessionID] = r.Status
	}

	result := make([]dto.StudentSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, dto.StudentSessionResponse{
			ID:               session.SessionID,
			WeekNumber:       session.WeekNumber,
			SessionDate:      session.SessionDate.Format(time.RFC3339),
			IsHoliday:        session.IsHoliday,
			AttendanceMethod: session.AttendanceMethod,
			IsOpen:           session.IsOpen,
			IsPolling:        session.IsPolling,
			MyStatus:         int(statusBySession[session.SessionID]), // 无记录为 0（未定）
		})
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *sessionService) getSession(ctx context.Context, sessionID string) (*model.ClassSession, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", sessionID), zap.Error(err))
		return nil, err
	}
	return session, nil
}

// generateCode 生成定长数字验证码（均匀分布，保留前导零）
func (s *sessionService) generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < s.codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", s.codeDigits, n), nil
}
