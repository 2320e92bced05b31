package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
	pkgerrors "attendease/backend/pkg/errors"
)

// ── 考勤模块业务错误 ──

var (
	ErrWindowClosed   = errors.New("当前不在签到时间")
	ErrMissingCode    = errors.New("请输入验证码")
	ErrCodeMismatch   = errors.New("验证码错误")
	ErrAlreadyChecked = errors.New("已签到，请勿重复操作")
	ErrNotEnrolled    = errors.New("未选该课程")
	ErrInvalidStatus  = errors.New("考勤状态无效")
)

// AttendanceService 考勤台账业务接口
type AttendanceService interface {
	// CheckIn 学生自助签到。前置检查顺序：课次存在 → 窗口开启 →
	// 验证码（AUTH_CODE 方式）→ 已选课 → 未曾签到。
	// 重复判定由存储层唯一约束原子裁决，应用层检查仅是快速路径。
	CheckIn(ctx context.Context, sessionID, studentID, code string) (*dto.AttendanceResponse, error)
	// SetStatusManual 教师直接改写考勤状态：不受窗口开关約束，
	// 记录不存在时创建，后写覆盖先写；status=0 视为重置。
	SetStatusManual(ctx context.Context, sessionID string, req *dto.ManualStatusRequest, caller Principal) (*dto.AttendanceResponse, error)
	// ListSessionRoster 课次点名册：全名册 + 各自状态（无记录者为 0）
	ListSessionRoster(ctx context.Context, sessionID string, caller Principal) ([]dto.SessionRosterEntry, error)
}

type attendanceService struct {
	repo   *repository.Repository
	audit  *AuditRecorder
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, audit *AuditRecorder, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, audit: audit, logger: logger}
}

// ────────────────────── CheckIn ──────────────────────

func (s *attendanceService) CheckIn(ctx context.Context, sessionID, studentID, code string) (*dto.AttendanceResponse, error) {
	// 1. 课次存在且窗口开启
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", sessionID), zap.Error(err))
		return nil, err
	}
	if !session.IsOpen {
		return nil, ErrWindowClosed
	}

	// 2. 验证码方式：必须提交且与激活码完全一致
	if session.AttendanceMethod == model.MethodAuthCode {
		if code == "" {
			return nil, ErrMissingCode
		}
		if session.AuthCode == nil || code != *session.AuthCode {
			return nil, ErrCodeMismatch
		}
	}

	// 3. 选课校验
	enrolled, err := s.repo.Enrollment.Exists(ctx, studentID, session.CourseID)
	if err != nil {
		s.logger.Error("查询选课关系失败", zap.Error(err))
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	now := time.Now()

	// 4. 查现有记录：仅投票/申诉产生的未定记录允许补签
	existing, err := s.repo.Attendance.GetBySessionAndStudent(ctx, sessionID, studentID)
	switch {
	case err == nil:
		if existing.Status != model.StatusUnset {
			return nil, ErrAlreadyChecked
		}
		// 条件更新兜底：并发签到只有一方能把未定改为出席
		if err := s.repo.Attendance.MarkPresentIfUnset(ctx, existing.AttendanceID, now); err != nil {
			if errors.Is(err, pkgerrors.ErrNoRowsAffected) {
				return nil, ErrAlreadyChecked
			}
			s.logger.Error("签到更新失败", zap.Error(err))
			return nil, err
		}
		existing.Status = model.StatusPresent
		existing.CheckedAt = &now
		s.audit.Record(studentID, "attendance", existing.AttendanceID, "check_in", "")
		return toAttendanceResponse(existing), nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		record := &model.AttendanceRecord{
			SessionID: sessionID,
			StudentID: studentID,
			Status:    model.StatusPresent,
			CheckedAt: &now,
		}
		// 唯一约束原子裁决并发首签
		if err := s.repo.Attendance.InsertIfAbsent(ctx, record); err != nil {
			if errors.Is(err, pkgerrors.ErrDuplicateKey) {
				return nil, ErrAlreadyChecked
			}
			s.logger.Error("签到写入失败", zap.Error(err))
			return nil, err
		}
		s.audit.Record(studentID, "attendance", record.AttendanceID, "check_in", "")
		return toAttendanceResponse(record), nil

	default:
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}
}

// ────────────────────── SetStatusManual ──────────────────────

func (s *attendanceService) SetStatusManual(ctx context.Context, sessionID string, req *dto.ManualStatusRequest, caller Principal) (*dto.AttendanceResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", sessionID), zap.Error(err))
		return nil, err
	}

	if err := Gate(caller, ActionOverrideRecord, session.Course); err != nil {
		return nil, err
	}

	status := model.AttendanceStatus(req.Status)
	if !model.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	record, err := s.upsertRecord(ctx, sessionID, req.StudentID, func(r *model.AttendanceRecord) {
		r.Status = status
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(caller.ID, "attendance", record.AttendanceID, "manual_override",
		fmt.Sprintf("student=%s status=%d", req.StudentID, req.Status))

	return toAttendanceResponse(record), nil
}

// ────────────────────── ListSessionRoster ──────────────────────

func (s *attendanceService) ListSessionRoster(ctx context.Context, sessionID string, caller Principal) ([]dto.SessionRosterEntry, error) {
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", sessionID), zap.Error(err))
		return nil, err
	}

	if err := Gate(caller, ActionViewRoster, session.Course); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment.ListByCourse(ctx, session.CourseID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, err
	}

	records, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	recordByStudent := make(map[string]*model.AttendanceRecord, len(records))
	for i := range records {
		recordByStudent[records[i].StudentID] = &records[i]
	}

	result := make([]dto.SessionRosterEntry, 0, len(enrollments))
	for _, e := range enrollments {
		entry := dto.SessionRosterEntry{StudentID: e.UserID}
		if e.Student != nil {
			entry.StudentName = e.Student.Name
			entry.Email = e.Student.Email
		}
		if r, ok := recordByStudent[e.UserID]; ok {
			entry.Status = int(r.Status)
			entry.AttendanceID = r.AttendanceID
			if r.PollResponse != nil {
				entry.PollResponse = *r.PollResponse
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// ── 内部辅助方法 ──

// upsertRecord 惰性创建 + 原地更新：并发创建落败时重读后更新
func (s *attendanceService) upsertRecord(ctx context.Context, sessionID, studentID string, mutate func(*model.AttendanceRecord)) (*model.AttendanceRecord, error) {
	record, err := s.repo.Attendance.GetBySessionAndStudent(ctx, sessionID, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = &model.AttendanceRecord{
			SessionID: sessionID,
			StudentID: studentID,
			Status:    model.StatusUnset,
		}
		mutate(record)
		if err := s.repo.Attendance.InsertIfAbsent(ctx, record); err == nil {
			return record, nil
		} else if !errors.Is(err, pkgerrors.ErrDuplicateKey) {
			s.logger.Error("创建考勤记录失败", zap.Error(err))
			return nil, err
		}
		// 并发创建落败：重读后走更新路径
		record, err = s.repo.Attendance.GetBySessionAndStudent(ctx, sessionID, studentID)
		if err != nil {
			s.logger.Error("查询考勤记录失败", zap.Error(err))
			return nil, err
		}
	} else if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	mutate(record)
	if err := s.repo.Attendance.Update(ctx, record); err != nil {
		s.logger.Error("更新考勤记录失败", zap.Error(err))
		return nil, err
	}
	return record, nil
}

func toAttendanceResponse(r *model.AttendanceRecord) *dto.AttendanceResponse {
	resp := &dto.AttendanceResponse{
		ID:        r.AttendanceID,
		SessionID: r.SessionID,
		StudentID: r.StudentID,
		Status:    int(r.Status),
	}
	if r.ProofReference != nil {
		resp.ProofReference = *r.ProofReference
	}
	if r.PollResponse != nil {
		resp.PollResponse = *r.PollResponse
	}
	if r.AppealReason != nil {
		resp.AppealReason = *r.AppealReason
	}
	if r.CheckedAt != nil {
		resp.CheckedAt = r.CheckedAt.Format(time.RFC3339)
	}
	return resp
}
