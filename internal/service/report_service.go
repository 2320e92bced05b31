package service

import (
	"context"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
)

// 连续迟到 riskLateStreak 次、或折算缺席达 riskConvertedLimit 次列入预警
const (
	riskConvertedLimit = 3
	riskLateStreak     = 2
	lateToAbsentRatio  = 3
)

// ReportService 统计分析接口，只读不写台账
type ReportService interface {
	// LiveStat 实时出席统计：N/M 人 + 当前验证码
	LiveStat(ctx context.Context, sessionID string, caller Principal) (*dto.LiveStatResponse, error)
	// WeeklyRates 按周序的逐次出席率
	WeeklyRates(ctx context.Context, courseID string, caller Principal) ([]dto.WeeklyRateEntry, error)
	// ApprovalRate 公假批准率：批准数 / 提交材料数。
	// 仅统计提交过证明材料的记录，教师手工批准且未附材料的不计入分子分母。
	ApprovalRate(ctx context.Context, courseID string, caller Principal) (*dto.ApprovalRateResponse, error)
	// RiskReport 预警名单：按折算缺席数降序，同分保持名册顺序
	RiskReport(ctx context.Context, courseID string, caller Principal) ([]dto.RiskEntry, error)
	// CourseReport 全员出勤报表
	CourseReport(ctx context.Context, courseID string, caller Principal) (*dto.CourseReportResponse, error)
	// StudentReport 单个学生的课程出勤统计
	StudentReport(ctx context.Context, courseID, studentID string, caller Principal) (*dto.StudentReport, error)
	// StudentDashboard 学生本人所选各课程的出勤概览
	StudentDashboard(ctx context.Context, studentID string) ([]dto.StudentDashboardEntry, error)
}

type reportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

// ────────────────────── LiveStat ──────────────────────

func (s *reportService) LiveStat(ctx context.Context, sessionID string, caller Principal) (*dto.LiveStatResponse, error) {
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

	total, err := s.repo.Enrollment.CountByCourse(ctx, session.CourseID)
	if err != nil {
		s.logger.Error("统计选课人数失败", zap.Error(err))
		return nil, err
	}
	attended, err := s.repo.Attendance.CountAttendedBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("统计出席人数失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.LiveStatResponse{Total: int(total), Attended: int(attended)}
	if session.AuthCode != nil {
		resp.AuthCode = *session.AuthCode
	}
	return resp, nil
}

// ────────────────────── WeeklyRates ──────────────────────

func (s *reportService) WeeklyRates(ctx context.Context, courseID string, caller Principal) ([]dto.WeeklyRateEntry, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := Gate(caller, ActionViewRoster, course); err != nil {
		return nil, err
	}

	sessions, err := s.repo.Session.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课次列表失败", zap.Error(err))
		return nil, err
	}
	total, err := s.repo.Enrollment.CountByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("统计选课人数失败", zap.Error(err))
		return nil, err
	}
	records, err := s.repo.Attendance.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	attendedBySession := make(map[string]int)
	for i := range records {
		if attendedStatus(records[i].Status) {
			attendedBySession[records[i].SessionID]++
		}
	}

	result := make([]dto.WeeklyRateEntry, 0, len(sessions))
	for i := range sessions {
		sess := &sessions[i]
		attended := attendedBySession[sess.SessionID]
		result = append(result, dto.WeeklyRateEntry{
			WeekNumber:  sess.WeekNumber,
			SessionDate: sess.SessionDate.Format("2006-01-02"),
			IsHoliday:   sess.IsHoliday,
			Attended:    attended,
			Total:       int(total),
			Rate:        percentage(attended, int(total)),
		})
	}
	return result, nil
}

// ────────────────────── ApprovalRate ──────────────────────

func (s *reportService) ApprovalRate(ctx context.Context, courseID string, caller Principal) (*dto.ApprovalRateResponse, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := Gate(caller, ActionViewRoster, course); err != nil {
		return nil, err
	}

	records, err := s.repo.Attendance.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	// 分母为提交过材料的记录，分子为其中已批准的
	requests, approved := 0, 0
	for i := range records {
		if records[i].ProofReference == nil {
			continue
		}
		requests++
		if records[i].Status == model.StatusExcusedApproved {
			approved++
		}
	}
	return &dto.ApprovalRateResponse{
		TotalRequests: requests,
		Approved:      approved,
		Rate:          percentage(approved, requests),
	}, nil
}

// ────────────────────── RiskReport ──────────────────────

func (s *reportService) RiskReport(ctx context.Context, courseID string, caller Principal) ([]dto.RiskEntry, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := Gate(caller, ActionViewRoster, course); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, err
	}
	// 记录已按 student_id、week_number 排好序，逐学生扫描即按周序扫描
	records, err := s.repo.Attendance.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	recordsByStudent := make(map[string][]*model.AttendanceRecord)
	for i := range records {
		r := &records[i]
		recordsByStudent[r.StudentID] = append(recordsByStudent[r.StudentID], r)
	}

	result := make([]dto.RiskEntry, 0, len(enrollments))
	for _, e := range enrollments {
		entry := dto.RiskEntry{StudentID: e.UserID}
		if e.Student != nil {
			entry.StudentName = e.Student.Name
		}

		streak := 0
		for _, r := range recordsByStudent[e.UserID] {
			switch r.Status {
			case model.StatusAbsent:
				entry.AbsentCount++
				streak = 0
			case model.StatusLate:
				entry.LateCount++
				streak++
				if streak > entry.MaxConsecutiveLate {
					entry.MaxConsecutiveLate = streak
				}
			default:
				// 任何非迟到状态打断连续迟到
				streak = 0
			}
		}

		entry.ConvertedAbsences = entry.AbsentCount + entry.LateCount/lateToAbsentRatio
		entry.IsAtRisk = entry.ConvertedAbsences >= riskConvertedLimit ||
			entry.MaxConsecutiveLate >= riskLateStreak
		result = append(result, entry)
	}

	// 同分保持名册顺序
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ConvertedAbsences > result[j].ConvertedAbsences
	})
	return result, nil
}

// ────────────────────── CourseReport ──────────────────────

func (s *reportService) CourseReport(ctx context.Context, courseID string, caller Principal) (*dto.CourseReportResponse, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := Gate(caller, ActionViewRoster, course); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.Error(err))
		return nil, err
	}
	sessions, err := s.repo.Session.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课次列表失败", zap.Error(err))
		return nil, err
	}
	records, err := s.repo.Attendance.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	attendedByStudent := make(map[string]int)
	for i := range records {
		if attendedStatus(records[i].Status) {
			attendedByStudent[records[i].StudentID]++
		}
	}

	reports := make([]dto.StudentReport, 0, len(enrollments))
	for _, e := range enrollments {
		r := dto.StudentReport{
			StudentID:     e.UserID,
			TotalSessions: len(sessions),
			AttendedCount: attendedByStudent[e.UserID],
		}
		if e.Student != nil {
			r.StudentName = e.Student.Name
		}
		r.AttendanceRate = percentage(r.AttendedCount, r.TotalSessions)
		reports = append(reports, r)
	}
	return &dto.CourseReportResponse{CourseTitle: course.Title, Reports: reports}, nil
}

// ────────────────────── StudentReport ──────────────────────

func (s *reportService) StudentReport(ctx context.Context, courseID, studentID string, caller Principal) (*dto.StudentReport, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	// 学生只能查本人，教师/管理员走门控
	if caller.ID != studentID {
		if err := Gate(caller, ActionViewRoster, course); err != nil {
			return nil, err
		}
	}

	report, err := s.buildStudentReport(ctx, courseID, studentID)
	if err != nil {
		return nil, err
	}
	if student, err := s.repo.User.GetByID(ctx, studentID); err == nil {
		report.StudentName = student.Name
	}
	return report, nil
}

// ────────────────────── StudentDashboard ──────────────────────

func (s *reportService) StudentDashboard(ctx context.Context, studentID string) ([]dto.StudentDashboardEntry, error) {
	enrollments, err := s.repo.Enrollment.ListByUser(ctx, studentID)
	if err != nil {
		s.logger.Error("查询选课列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.StudentDashboardEntry, 0, len(enrollments))
	for _, e := range enrollments {
		report, err := s.buildStudentReport(ctx, e.CourseID, studentID)
		if err != nil {
			return nil, err
		}
		entry := dto.StudentDashboardEntry{
			CourseID:       e.CourseID,
			TotalSessions:  report.TotalSessions,
			AttendedCount:  report.AttendedCount,
			AttendanceRate: report.AttendanceRate,
		}
		if e.Course != nil {
			entry.CourseTitle = e.Course.Title
			entry.Semester = e.Course.Semester
		}
		result = append(result, entry)
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *reportService) getCourse(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return nil, err
	}
	return course, nil
}

func (s *reportService) buildStudentReport(ctx context.Context, courseID, studentID string) (*dto.StudentReport, error) {
	sessions, err := s.repo.Session.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课次列表失败", zap.Error(err))
		return nil, err
	}
	records, err := s.repo.Attendance.ListByCourseAndStudent(ctx, courseID, studentID)
	if err != nil {
		s.logger.Error("查询考勤记录失败", zap.Error(err))
		return nil, err
	}

	attended := 0
	for i := range records {
		if attendedStatus(records[i].Status) {
			attended++
		}
	}
	return &dto.StudentReport{
		StudentID:      studentID,
		TotalSessions:  len(sessions),
		AttendedCount:  attended,
		AttendanceRate: percentage(attended, len(sessions)),
	}, nil
}

// attendedStatus 出席口径：实到或公假已批准
func attendedStatus(s model.AttendanceStatus) bool {
	return s == model.StatusPresent || s == model.StatusExcusedApproved
}

// percentage 百分比，保留 1 位小数；分母为 0 时返回 0
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
