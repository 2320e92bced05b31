package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
)

// ── 测试辅助 ──

type reportFixture struct {
	svc            ReportService
	course         *model.Course
	sessionRepo    *mockSessionRepo
	enrollmentRepo *mockEnrollmentRepo
	attendanceRepo *mockAttendanceRepo
}

func setupTestReportService() *reportFixture {
	sessionRepo := newMockSessionRepo()
	courseRepo := newMockCourseRepo()
	enrollmentRepo := newMockEnrollmentRepo()
	attendanceRepo := newMockAttendanceRepo(sessionRepo)
	repo := &repository.Repository{
		User:       newMockUserRepo(),
		Course:     courseRepo,
		Enrollment: enrollmentRepo,
		Session:    sessionRepo,
		Attendance: attendanceRepo,
		Audit:      newMockAuditRepo(),
	}
	course := &model.Course{
		CourseID:     "course-1",
		Title:        "操作系统",
		Semester:     "2025-秋",
		InstructorID: "teacher-1",
	}
	courseRepo.courses["course-1"] = course
	return &reportFixture{
		svc:            NewReportService(repo, zap.NewNop()),
		course:         course,
		sessionRepo:    sessionRepo,
		enrollmentRepo: enrollmentRepo,
		attendanceRepo: attendanceRepo,
	}
}

// addSessions 为 course-1 预置第 1..n 周课次，课次 ID 为 sess-<周次>
func (f *reportFixture) addSessions(n int) {
	for week := 1; week <= n; week++ {
		f.sessionRepo.sessions[fmt.Sprintf("sess-%d", week)] = &model.ClassSession{
			SessionID:   fmt.Sprintf("sess-%d", week),
			CourseID:    "course-1",
			WeekNumber:  week,
			SessionDate: time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC).AddDate(0, 0, 7*(week-1)),
			Course:      f.course,
		}
	}
}

func (f *reportFixture) enroll(studentID, name string) {
	f.enrollmentRepo.enrollments = append(f.enrollmentRepo.enrollments, &model.Enrollment{
		EnrollmentID: "enroll-" + studentID,
		UserID:       studentID,
		CourseID:     "course-1",
		Student:      &model.User{UserID: studentID, Name: name},
		Course:       f.course,
	})
}

// markWeeks 按周序写入某学生的状态序列，第 i 个状态落在第 i+1 周
func (f *reportFixture) markWeeks(studentID string, statuses ...model.AttendanceStatus) {
	for i, st := range statuses {
		f.attendanceRepo.records = append(f.attendanceRepo.records, &model.AttendanceRecord{
			AttendanceID: fmt.Sprintf("att-%s-%d", studentID, i+1),
			SessionID:    fmt.Sprintf("sess-%d", i+1),
			StudentID:    studentID,
			Status:       st,
		})
	}
}

// ── RiskReport 测试 ──

// 迟到 3 次折 1 次缺席，且连续 3 次迟到超过预警线
func TestReportService_RiskReport_LateStreak(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(4)
	f.enroll("student-1", "张三")
	f.markWeeks("student-1",
		model.StatusLate, model.StatusLate, model.StatusLate, model.StatusPresent)

	entries, err := f.svc.RiskReport(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("RiskReport 应成功: %v", err)
	}
	e := entries[0]
	if e.LateCount != 3 || e.AbsentCount != 0 {
		t.Errorf("计数有误: late=%d absent=%d", e.LateCount, e.AbsentCount)
	}
	if e.ConvertedAbsences != 1 {
		t.Errorf("期望折算缺席=1，实际=%d", e.ConvertedAbsences)
	}
	if e.MaxConsecutiveLate != 3 {
		t.Errorf("期望最长连续迟到=3，实际=%d", e.MaxConsecutiveLate)
	}
	if !e.IsAtRisk {
		t.Error("连续迟到 3 次应列入预警")
	}
}

// 缺席打断连续迟到，但连续 2 次迟到已达预警线
func TestReportService_RiskReport_StreakBrokenByAbsent(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(3)
	f.enroll("student-1", "张三")
	f.markWeeks("student-1", model.StatusLate, model.StatusLate, model.StatusAbsent)

	entries, err := f.svc.RiskReport(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("RiskReport 应成功: %v", err)
	}
	e := entries[0]
	if e.ConvertedAbsences != 1 { // 1 缺席 + 2/3 迟到（整除为 0）
		t.Errorf("期望折算缺席=1，实际=%d", e.ConvertedAbsences)
	}
	if e.MaxConsecutiveLate != 2 {
		t.Errorf("期望最长连续迟到=2，实际=%d", e.MaxConsecutiveLate)
	}
	if !e.IsAtRisk {
		t.Error("连续迟到 2 次应列入预警")
	}
}

func TestReportService_RiskReport_NotAtRisk(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(5)
	f.enroll("student-1", "张三")
	// 迟到从不连续，折算缺席 1+0 < 3
	f.markWeeks("student-1",
		model.StatusLate, model.StatusPresent, model.StatusLate,
		model.StatusPresent, model.StatusAbsent)

	entries, err := f.svc.RiskReport(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("RiskReport 应成功: %v", err)
	}
	e := entries[0]
	if e.ConvertedAbsences != 1 || e.MaxConsecutiveLate != 1 {
		t.Errorf("计数有误: converted=%d streak=%d", e.ConvertedAbsences, e.MaxConsecutiveLate)
	}
	if e.IsAtRisk {
		t.Error("不应列入预警")
	}
}

// 折算缺席降序；同分保持名册顺序
func TestReportService_RiskReport_SortStable(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(4)
	f.enroll("student-1", "张三")
	f.enroll("student-2", "李四")
	f.enroll("student-3", "王五")
	f.markWeeks("student-1", model.StatusAbsent)
	f.markWeeks("student-2",
		model.StatusAbsent, model.StatusAbsent, model.StatusAbsent)
	f.markWeeks("student-3", model.StatusAbsent)

	entries, err := f.svc.RiskReport(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("RiskReport 应成功: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("期望 3 条，实际=%d", len(entries))
	}
	order := []string{entries[0].StudentID, entries[1].StudentID, entries[2].StudentID}
	want := []string{"student-2", "student-1", "student-3"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("排序有误: %v", order)
		}
	}
	if !entries[0].IsAtRisk {
		t.Error("折算缺席 3 次应列入预警")
	}
}

func TestReportService_RiskReport_StudentForbidden(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(1)

	student := Principal{ID: "student-1", Role: model.RoleStudent}
	_, err := f.svc.RiskReport(context.Background(), "course-1", student)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("期望 ErrForbidden，实际: %v", err)
	}
}

// ── WeeklyRates 测试 ──

func TestReportService_WeeklyRates(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(2)
	f.enroll("student-1", "张三")
	f.enroll("student-2", "李四")
	f.enroll("student-3", "王五")
	f.markWeeks("student-1", model.StatusPresent, model.StatusPresent)
	f.markWeeks("student-2", model.StatusExcusedApproved, model.StatusAbsent)
	f.markWeeks("student-3", model.StatusLate) // 迟到不计入出席

	rates, err := f.svc.WeeklyRates(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("WeeklyRates 应成功: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("期望 2 周，实际=%d", len(rates))
	}
	if rates[0].Attended != 2 || rates[0].Total != 3 {
		t.Errorf("第 1 周计数有误: %d/%d", rates[0].Attended, rates[0].Total)
	}
	if rates[0].Rate != 66.7 {
		t.Errorf("第 1 周期望 66.7，实际=%v", rates[0].Rate)
	}
	if rates[1].Attended != 1 || rates[1].Rate != 33.3 {
		t.Errorf("第 2 周计数有误: attended=%d rate=%v", rates[1].Attended, rates[1].Rate)
	}
}

func TestReportService_WeeklyRates_NoEnrollment(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(1)

	rates, err := f.svc.WeeklyRates(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("WeeklyRates 应成功: %v", err)
	}
	if rates[0].Rate != 0 {
		t.Errorf("无人选课时出席率应为 0，实际=%v", rates[0].Rate)
	}
}

// ── ApprovalRate 测试 ──

func TestReportService_ApprovalRate(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(3)
	f.enroll("student-1", "张三")
	proof1, proof2 := "note-1.pdf", "note-2.pdf"
	f.attendanceRepo.records = append(f.attendanceRepo.records,
		&model.AttendanceRecord{
			AttendanceID: "att-1", SessionID: "sess-1", StudentID: "student-1",
			Status: model.StatusExcusedApproved, ProofReference: &proof1,
		},
		&model.AttendanceRecord{
			AttendanceID: "att-2", SessionID: "sess-2", StudentID: "student-1",
			Status: model.StatusExcusedPending, ProofReference: &proof2,
		},
		// 教师直批、无材料：不计入分母
		&model.AttendanceRecord{
			AttendanceID: "att-3", SessionID: "sess-3", StudentID: "student-1",
			Status: model.StatusExcusedApproved,
		},
	)

	resp, err := f.svc.ApprovalRate(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("ApprovalRate 应成功: %v", err)
	}
	if resp.TotalRequests != 2 || resp.Approved != 1 {
		t.Errorf("计数有误: %d/%d", resp.Approved, resp.TotalRequests)
	}
	if resp.Rate != 50.0 {
		t.Errorf("期望 50.0，实际=%v", resp.Rate)
	}
}

func TestReportService_ApprovalRate_NoRequests(t *testing.T) {
	f := setupTestReportService()

	resp, err := f.svc.ApprovalRate(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("ApprovalRate 应成功: %v", err)
	}
	if resp.Rate != 0 || resp.TotalRequests != 0 {
		t.Errorf("无提交时应为 0: %+v", resp)
	}
}

// ── LiveStat 测试 ──

func TestReportService_LiveStat(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(1)
	code := "0427"
	f.sessionRepo.sessions["sess-1"].AuthCode = &code
	f.enroll("student-1", "张三")
	f.enroll("student-2", "李四")
	f.markWeeks("student-1", model.StatusPresent)

	stat, err := f.svc.LiveStat(context.Background(), "sess-1", instructorCaller)
	if err != nil {
		t.Fatalf("LiveStat 应成功: %v", err)
	}
	if stat.Attended != 1 || stat.Total != 2 {
		t.Errorf("期望 1/2，实际=%d/%d", stat.Attended, stat.Total)
	}
	if stat.AuthCode != "0427" {
		t.Errorf("验证码未返回: %q", stat.AuthCode)
	}
}

// ── CourseReport / StudentReport / StudentDashboard 测试 ──

func TestReportService_CourseReport(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(4)
	f.enroll("student-1", "张三")
	f.enroll("student-2", "李四")
	f.markWeeks("student-1",
		model.StatusPresent, model.StatusPresent, model.StatusExcusedApproved)
	f.markWeeks("student-2", model.StatusAbsent)

	resp, err := f.svc.CourseReport(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("CourseReport 应成功: %v", err)
	}
	if resp.CourseTitle != "操作系统" {
		t.Errorf("课程名有误: %q", resp.CourseTitle)
	}
	if len(resp.Reports) != 2 {
		t.Fatalf("期望 2 条，实际=%d", len(resp.Reports))
	}
	first := resp.Reports[0]
	if first.AttendedCount != 3 || first.TotalSessions != 4 {
		t.Errorf("计数有误: %d/%d", first.AttendedCount, first.TotalSessions)
	}
	if first.AttendanceRate != 75.0 {
		t.Errorf("期望 75.0，实际=%v", first.AttendanceRate)
	}
	if resp.Reports[1].AttendanceRate != 0 {
		t.Errorf("全缺席应为 0，实际=%v", resp.Reports[1].AttendanceRate)
	}
}

// 学生可查本人报表，查他人则被拒
func TestReportService_StudentReport_SelfAccess(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(2)
	f.enroll("student-1", "张三")
	f.markWeeks("student-1", model.StatusPresent)

	self := Principal{ID: "student-1", Role: model.RoleStudent}
	report, err := f.svc.StudentReport(context.Background(), "course-1", "student-1", self)
	if err != nil {
		t.Fatalf("本人查询应成功: %v", err)
	}
	if report.AttendedCount != 1 || report.TotalSessions != 2 {
		t.Errorf("计数有误: %d/%d", report.AttendedCount, report.TotalSessions)
	}
	if report.AttendanceRate != 50.0 {
		t.Errorf("期望 50.0，实际=%v", report.AttendanceRate)
	}

	if _, err := f.svc.StudentReport(context.Background(), "course-1", "student-2", self); !errors.Is(err, ErrForbidden) {
		t.Errorf("查他人期望 ErrForbidden，实际: %v", err)
	}
}

func TestReportService_StudentDashboard(t *testing.T) {
	f := setupTestReportService()
	f.addSessions(2)
	f.enroll("student-1", "张三")
	f.markWeeks("student-1", model.StatusPresent, model.StatusAbsent)

	entries, err := f.svc.StudentDashboard(context.Background(), "student-1")
	if err != nil {
		t.Fatalf("StudentDashboard 应成功: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("期望 1 门课程，实际=%d", len(entries))
	}
	e := entries[0]
	if e.CourseTitle != "操作系统" || e.Semester != "2025-秋" {
		t.Errorf("课程信息有误: %+v", e)
	}
	if e.AttendedCount != 1 || e.TotalSessions != 2 || e.AttendanceRate != 50.0 {
		t.Errorf("统计有误: %+v", e)
	}
}
