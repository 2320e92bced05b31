package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"attendease/backend/config"
	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
)

// ── 测试辅助 ──

type scheduleFixture struct {
	svc         ScheduleService
	sessionRepo *mockSessionRepo
	courseRepo  *mockCourseRepo
}

func setupTestScheduleService(holidays ...string) *scheduleFixture {
	cfg := &config.AttendanceConfig{
		TermWeeks:      17,
		AuthCodeDigits: 4,
		Holidays:       holidays,
	}
	sessionRepo := newMockSessionRepo()
	courseRepo := newMockCourseRepo()
	repo := &repository.Repository{
		User:       newMockUserRepo(),
		Course:     courseRepo,
		Enrollment: newMockEnrollmentRepo(),
		Session:    sessionRepo,
		Attendance: newMockAttendanceRepo(sessionRepo),
		Audit:      newMockAuditRepo(),
	}
	courseRepo.courses["course-1"] = &model.Course{
		CourseID:     "course-1",
		Title:        "操作系统",
		Semester:     "2025-2",
		InstructorID: "teacher-1",
	}
	logger := zap.NewNop()
	audit := NewAuditRecorder(repo, logger)
	return &scheduleFixture{
		svc:         NewScheduleService(cfg, repo, audit, logger),
		sessionRepo: sessionRepo,
		courseRepo:  courseRepo,
	}
}

var instructorCaller = Principal{ID: "teacher-1", Role: model.RoleInstructor}

// ── GenerateSessions 测试 ──

func TestScheduleService_GenerateSessions_FullTerm(t *testing.T) {
	f := setupTestScheduleService()

	// 2025-09-01 是周一
	req := &dto.GenerateSessionsRequest{
		TermStart:    "2025-09-01",
		Weekday:      1,
		MeetingCount: 17,
		StartHour:    9,
	}

	sessions, err := f.svc.GenerateSessions(context.Background(), "course-1", req, instructorCaller)
	if err != nil {
		t.Fatalf("GenerateSessions 应成功: %v", err)
	}
	if len(sessions) != 17 {
		t.Fatalf("期望生成 17 个课次，实际=%d", len(sessions))
	}

	first, _ := time.Parse(time.RFC3339, sessions[0].SessionDate)
	if got := first.Format("2006-01-02"); got != "2025-09-01" {
		t.Errorf("首次上课日期望 2025-09-01，实际=%s", got)
	}
	if first.Hour() != 9 {
		t.Errorf("期望上课时刻 9 点，实际=%d", first.Hour())
	}

	last, _ := time.Parse(time.RFC3339, sessions[16].SessionDate)
	if got := last.Format("2006-01-02"); got != "2025-12-22" {
		t.Errorf("末次上课日期望 2025-12-22，实际=%s", got)
	}
	if sessions[16].WeekNumber != 17 {
		t.Errorf("期望末次周次=17，实际=%d", sessions[16].WeekNumber)
	}
}

func TestScheduleService_GenerateSessions_WeekdayOffset(t *testing.T) {
	f := setupTestScheduleService()

	// 2025-09-03 是周三，目标周一 → 顺延到 2025-09-08
	req := &dto.GenerateSessionsRequest{
		TermStart:    "2025-09-03",
		Weekday:      1,
		MeetingCount: 2,
	}

	sessions, err := f.svc.GenerateSessions(context.Background(), "course-1", req, instructorCaller)
	if err != nil {
		t.Fatalf("GenerateSessions 应成功: %v", err)
	}
	first, _ := time.Parse(time.RFC3339, sessions[0].SessionDate)
	if got := first.Format("2006-01-02"); got != "2025-09-08" {
		t.Errorf("首次上课日期望顺延到 2025-09-08，实际=%s", got)
	}
}

func TestScheduleService_GenerateSessions_HolidayFlag(t *testing.T) {
	// 第 5 周的周一（2025-09-29）落在国庆假期
	f := setupTestScheduleService("2025-09-29", "2025-10-06")

	req := &dto.GenerateSessionsRequest{
		TermStart:    "2025-09-01",
		Weekday:      1,
		MeetingCount: 8,
	}

	sessions, err := f.svc.GenerateSessions(context.Background(), "course-1", req, instructorCaller)
	if err != nil {
		t.Fatalf("GenerateSessions 应成功: %v", err)
	}
	if !sessions[4].IsHoliday {
		t.Error("第 5 周课次应标记为假期")
	}
	if !sessions[5].IsHoliday {
		t.Error("第 6 周课次应标记为假期")
	}
	if sessions[0].IsHoliday || sessions[6].IsHoliday {
		t.Error("非假期课次不应带假期标记")
	}
}

func TestScheduleService_GenerateSessions_InvalidCount(t *testing.T) {
	f := setupTestScheduleService()

	req := &dto.GenerateSessionsRequest{
		TermStart:    "2025-09-01",
		Weekday:      1,
		MeetingCount: -1,
	}

	_, err := f.svc.GenerateSessions(context.Background(), "course-1", req, instructorCaller)
	if !errors.Is(err, ErrInvalidScheduleRequest) {
		t.Errorf("期望 ErrInvalidScheduleRequest，实际: %v", err)
	}
}

func TestScheduleService_GenerateSessions_BadDate(t *testing.T) {
	f := setupTestScheduleService()

	req := &dto.GenerateSessionsRequest{
		TermStart:    "09/01/2025",
		Weekday:      1,
		MeetingCount: 17,
	}

	_, err := f.svc.GenerateSessions(context.Background(), "course-1", req, instructorCaller)
	if !errors.Is(err, ErrScheduleDateInvalid) {
		t.Errorf("期望 ErrScheduleDateInvalid，实际: %v", err)
	}
}

func TestScheduleService_GenerateSessions_CourseNotFound(t *testing.T) {
	f := setupTestScheduleService()

	req := &dto.GenerateSessionsRequest{
		TermStart:    "2025-09-01",
		Weekday:      1,
		MeetingCount: 17,
	}

	_, err := f.svc.GenerateSessions(context.Background(), "course-x", req, instructorCaller)
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}

func TestScheduleService_GenerateSessions_NotOwner(t *testing.T) {
	f := setupTestScheduleService()

	req := &dto.GenerateSessionsRequest{
		TermStart:    "2025-09-01",
		Weekday:      1,
		MeetingCount: 17,
	}

	other := Principal{ID: "teacher-2", Role: model.RoleInstructor}
	_, err := f.svc.GenerateSessions(context.Background(), "course-1", req, other)
	if !errors.Is(err, ErrNotCourseOwner) {
		t.Errorf("期望 ErrNotCourseOwner，实际: %v", err)
	}

	student := Principal{ID: "student-1", Role: model.RoleStudent}
	_, err = f.svc.GenerateSessions(context.Background(), "course-1", req, student)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("期望 ErrForbidden，实际: %v", err)
	}
}

// ── CreateSession 测试 ──

func TestScheduleService_CreateSession_Success(t *testing.T) {
	f := setupTestScheduleService()

	req := &dto.CreateSessionRequest{
		WeekNumber:  1,
		SessionDate: "2025-09-01T09:00:00+08:00",
	}

	session, err := f.svc.CreateSession(context.Background(), "course-1", req, instructorCaller)
	if err != nil {
		t.Fatalf("CreateSession 应成功: %v", err)
	}
	if session.AttendanceMethod != model.MethodElectronic {
		t.Errorf("默认签到方式应为 ELECTRONIC，实际=%s", session.AttendanceMethod)
	}
	if session.IsOpen {
		t.Error("新建课次窗口应默认关闭")
	}
}

func TestScheduleService_CreateSession_WeekTaken(t *testing.T) {
	f := setupTestScheduleService()

	req := &dto.CreateSessionRequest{
		WeekNumber:  1,
		SessionDate: "2025-09-01T09:00:00+08:00",
	}

	if _, err := f.svc.CreateSession(context.Background(), "course-1", req, instructorCaller); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	_, err := f.svc.CreateSession(context.Background(), "course-1", req, instructorCaller)
	if !errors.Is(err, ErrWeekNumberTaken) {
		t.Errorf("期望 ErrWeekNumberTaken，实际: %v", err)
	}
}
