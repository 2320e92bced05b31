package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
)

// ── 测试辅助 ──

var adminCaller = Principal{ID: "admin-1", Role: model.RoleAdmin}

type courseFixture struct {
	svc            CourseService
	userRepo       *mockUserRepo
	courseRepo     *mockCourseRepo
	enrollmentRepo *mockEnrollmentRepo
}

func setupTestCourseService() *courseFixture {
	userRepo := newMockUserRepo()
	courseRepo := newMockCourseRepo()
	enrollmentRepo := newMockEnrollmentRepo()
	sessionRepo := newMockSessionRepo()
	repo := &repository.Repository{
		User:       userRepo,
		Course:     courseRepo,
		Enrollment: enrollmentRepo,
		Session:    sessionRepo,
		Attendance: newMockAttendanceRepo(sessionRepo),
		Audit:      newMockAuditRepo(),
	}
	userRepo.users["teacher-1"] = &model.User{
		UserID: "teacher-1",
		Name:   "王老师",
		Email:  "wang@test.com",
		Role:   model.RoleInstructor,
	}
	logger := zap.NewNop()
	audit := NewAuditRecorder(repo, logger)
	return &courseFixture{
		svc:            NewCourseService(repo, audit, logger),
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// ── Create 测试 ──

func TestCourseService_Create_Success(t *testing.T) {
	f := setupTestCourseService()

	resp, err := f.svc.Create(context.Background(), &dto.CreateCourseRequest{
		Title:        "操作系统",
		Semester:     "2025-秋",
		InstructorID: "teacher-1",
	}, adminCaller)

	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Title != "操作系统" || resp.Semester != "2025-秋" {
		t.Errorf("课程信息有误: %+v", resp)
	}
	if resp.InstructorName != "王老师" {
		t.Errorf("期望教师名=王老师，实际=%s", resp.InstructorName)
	}
}

func TestCourseService_Create_InstructorNotFound(t *testing.T) {
	f := setupTestCourseService()

	_, err := f.svc.Create(context.Background(), &dto.CreateCourseRequest{
		Title:        "操作系统",
		Semester:     "2025-秋",
		InstructorID: "teacher-x",
	}, adminCaller)

	if !errors.Is(err, ErrInstructorNotFound) {
		t.Errorf("期望 ErrInstructorNotFound，实际: %v", err)
	}
}

func TestCourseService_Create_NotInstructorRole(t *testing.T) {
	f := setupTestCourseService()
	f.userRepo.users["student-1"] = &model.User{
		UserID: "student-1", Name: "张三", Role: model.RoleStudent,
	}

	_, err := f.svc.Create(context.Background(), &dto.CreateCourseRequest{
		Title:        "操作系统",
		Semester:     "2025-秋",
		InstructorID: "student-1",
	}, adminCaller)

	if !errors.Is(err, ErrNotInstructorRole) {
		t.Errorf("期望 ErrNotInstructorRole，实际: %v", err)
	}
}

// 建课仅限管理员，教师也不行
func TestCourseService_Create_InstructorForbidden(t *testing.T) {
	f := setupTestCourseService()

	_, err := f.svc.Create(context.Background(), &dto.CreateCourseRequest{
		Title:        "操作系统",
		Semester:     "2025-秋",
		InstructorID: "teacher-1",
	}, instructorCaller)

	if !errors.Is(err, ErrForbidden) {
		t.Errorf("期望 ErrForbidden，实际: %v", err)
	}
}

// ── Enroll 测试 ──

func TestCourseService_Enroll_Success(t *testing.T) {
	f := setupTestCourseService()
	f.courseRepo.courses["course-1"] = &model.Course{
		CourseID: "course-1", Title: "操作系统", InstructorID: "teacher-1",
	}

	if err := f.svc.Enroll(context.Background(), "course-1", "student-1"); err != nil {
		t.Fatalf("Enroll 应成功: %v", err)
	}
	if len(f.enrollmentRepo.enrollments) != 1 {
		t.Fatalf("期望 1 条选课记录，实际=%d", len(f.enrollmentRepo.enrollments))
	}
}

func TestCourseService_Enroll_Duplicate(t *testing.T) {
	f := setupTestCourseService()
	f.courseRepo.courses["course-1"] = &model.Course{
		CourseID: "course-1", Title: "操作系统", InstructorID: "teacher-1",
	}

	if err := f.svc.Enroll(context.Background(), "course-1", "student-1"); err != nil {
		t.Fatalf("首次选课应成功: %v", err)
	}
	err := f.svc.Enroll(context.Background(), "course-1", "student-1")
	if !errors.Is(err, ErrAlreadyEnrolled) {
		t.Errorf("重复选课期望 ErrAlreadyEnrolled，实际: %v", err)
	}
}

func TestCourseService_Enroll_CourseNotFound(t *testing.T) {
	f := setupTestCourseService()

	err := f.svc.Enroll(context.Background(), "course-x", "student-1")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}

// ── Roster 测试 ──

func TestCourseService_Roster(t *testing.T) {
	f := setupTestCourseService()
	f.courseRepo.courses["course-1"] = &model.Course{
		CourseID: "course-1", Title: "操作系统", InstructorID: "teacher-1",
	}
	f.enrollmentRepo.enrollments = append(f.enrollmentRepo.enrollments, &model.Enrollment{
		EnrollmentID: "enroll-1",
		UserID:       "student-1",
		CourseID:     "course-1",
		Student:      &model.User{UserID: "student-1", Name: "张三", Email: "zhang@test.com"},
	})

	roster, err := f.svc.Roster(context.Background(), "course-1", instructorCaller)
	if err != nil {
		t.Fatalf("Roster 应成功: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("期望 1 条名册，实际=%d", len(roster))
	}
	if roster[0].StudentName != "张三" || roster[0].Email != "zhang@test.com" {
		t.Errorf("名册条目有误: %+v", roster[0])
	}
}

// 名册仅任课教师与管理员可见
func TestCourseService_Roster_NotOwner(t *testing.T) {
	f := setupTestCourseService()
	f.courseRepo.courses["course-1"] = &model.Course{
		CourseID: "course-1", Title: "操作系统", InstructorID: "teacher-1",
	}

	other := Principal{ID: "teacher-2", Role: model.RoleInstructor}
	_, err := f.svc.Roster(context.Background(), "course-1", other)
	if !errors.Is(err, ErrNotCourseOwner) {
		t.Errorf("期望 ErrNotCourseOwner，实际: %v", err)
	}
}

// ── ListMine 测试 ──

func TestCourseService_ListMine(t *testing.T) {
	f := setupTestCourseService()
	f.courseRepo.courses["course-1"] = &model.Course{
		CourseID: "course-1", Title: "操作系统", InstructorID: "teacher-1",
	}
	f.courseRepo.courses["course-2"] = &model.Course{
		CourseID: "course-2", Title: "编译原理", InstructorID: "teacher-2",
	}

	result, err := f.svc.ListMine(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("ListMine 应成功: %v", err)
	}
	if len(result) != 1 || result[0].Title != "操作系统" {
		t.Errorf("期望仅返回本人授课课程: %+v", result)
	}
}
