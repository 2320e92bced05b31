package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
)

// ── 请假/申诉模块业务错误 ──

var (
	ErrInvalidVote   = errors.New("投票选项无效，仅支持 YES 或 NO")
	ErrVotingClosed  = errors.New("当前未开启投票")
	ErrEmptyEvidence = errors.New("请提供证明材料")
)

// ExcuseService 公假材料、申诉与课堂投票。
// 三类提交均只写台账字段，审批一律走 M3 的人工改写。
type ExcuseService interface {
	// SubmitEvidence 提交公假材料：状态改为待审（即使此前已批准），
	// 材料引用覆盖写入，不会被清除。
	SubmitEvidence(ctx context.Context, sessionID, studentID, proofRef string) (*dto.AttendanceResponse, error)
	// FileAppeal 提交申诉理由，不改动考勤状态
	FileAppeal(ctx context.Context, sessionID, studentID, reason string) (*dto.AttendanceResponse, error)
	// CastVote 课堂投票应答，课次须处于投票开启状态
	CastVote(ctx context.Context, sessionID, studentID, response string) (*dto.AttendanceResponse, error)
}

type excuseService struct {
	attendance *attendanceService
	repo       *repository.Repository
	audit      *AuditRecorder
	logger     *zap.Logger
}

// NewExcuseService 创建 ExcuseService 实例
func NewExcuseService(repo *repository.Repository, audit *AuditRecorder, logger *zap.Logger) ExcuseService {
	return &excuseService{
		attendance: &attendanceService{repo: repo, audit: audit, logger: logger},
		repo:       repo,
		audit:      audit,
		logger:     logger,
	}
}

// ────────────────────── SubmitEvidence ──────────────────────

func (s *excuseService) SubmitEvidence(ctx context.Context, sessionID, studentID, proofRef string) (*dto.AttendanceResponse, error) {
	if proofRef == "" {
		return nil, ErrEmptyEvidence
	}
	if err := s.requireEnrolledSession(ctx, sessionID, studentID); err != nil {
		return nil, err
	}

	record, err := s.attendance.upsertRecord(ctx, sessionID, studentID, func(r *model.AttendanceRecord) {
		// 重新提交即撤销旧审批结果，回到待审
		r.Status = model.StatusExcusedPending
		r.ProofReference = &proofRef
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(studentID, "attendance", record.AttendanceID, "submit_evidence", proofRef)
	return toAttendanceResponse(record), nil
}

// ────────────────────── FileAppeal ──────────────────────

func (s *excuseService) FileAppeal(ctx context.Context, sessionID, studentID, reason string) (*dto.AttendanceResponse, error) {
	if err := s.requireEnrolledSession(ctx, sessionID, studentID); err != nil {
		return nil, err
	}

	record, err := s.attendance.upsertRecord(ctx, sessionID, studentID, func(r *model.AttendanceRecord) {
		r.AppealReason = &reason
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(studentID, "attendance", record.AttendanceID, "file_appeal", reason)
	return toAttendanceResponse(record), nil
}

// ────────────────────── CastVote ──────────────────────

func (s *excuseService) CastVote(ctx context.Context, sessionID, studentID, response string) (*dto.AttendanceResponse, error) {
	if response != model.PollYes && response != model.PollNo {
		return nil, ErrInvalidVote
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsPolling {
		return nil, ErrVotingClosed
	}
	if err := s.requireEnrolled(ctx, studentID, session.CourseID); err != nil {
		return nil, err
	}

	record, err := s.attendance.upsertRecord(ctx, sessionID, studentID, func(r *model.AttendanceRecord) {
		r.PollResponse = &response
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(studentID, "attendance", record.AttendanceID, "cast_vote", response)
	return toAttendanceResponse(record), nil
}

// ── 内部辅助方法 ──

func (s *excuseService) getSession(ctx context.Context, sessionID string) (*model.ClassSession, error) {
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

func (s *excuseService) requireEnrolled(ctx context.Context, studentID, courseID string) error {
	enrolled, err := s.repo.Enrollment.Exists(ctx, studentID, courseID)
	if err != nil {
		s.logger.Error("查询选课关系失败", zap.Error(err))
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}

func (s *excuseService) requireEnrolledSession(ctx context.Context, sessionID, studentID string) error {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.requireEnrolled(ctx, studentID, session.CourseID)
}
