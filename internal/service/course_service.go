package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
	pkgerrors "attendease/backend/pkg/errors"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound     = errors.New("课程不存在")
	ErrInstructorNotFound = errors.New("指定的授课教师不存在")
	ErrNotInstructorRole  = errors.New("指定用户不是教师角色")
	ErrAlreadyEnrolled    = errors.New("已选该课程")
)

// CourseService 课程业务接口
type CourseService interface {
	Create(ctx context.Context, req *dto.CreateCourseRequest, caller Principal) (*dto.CourseResponse, error)
	GetByID(ctx context.Context, id string) (*dto.CourseResponse, error)
	List(ctx context.Context) ([]dto.CourseResponse, error)
	// ListMine 教师工作台：列出本人授课的课程
	ListMine(ctx context.Context, instructorID string) ([]dto.CourseResponse, error)
	Enroll(ctx context.Context, courseID, studentID string) error
	Roster(ctx context.Context, courseID string, caller Principal) ([]dto.RosterEntryResponse, error)
}

type courseService struct {
	repo   *repository.Repository
	audit  *AuditRecorder
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, audit *AuditRecorder, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, audit: audit, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *courseService) Create(ctx context.Context, req *dto.CreateCourseRequest, caller Principal) (*dto.CourseResponse, error) {
	if err := Gate(caller, ActionCreateCourse, nil); err != nil {
		return nil, err
	}

	instructor, err := s.repo.User.GetByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstructorNotFound
		}
		s.logger.Error("查询教师失败", zap.Error(err))
		return nil, err
	}
	if instructor.Role != model.RoleInstructor {
		return nil, ErrNotInstructorRole
	}

	course := &model.Course{
		Title:        req.Title,
		Semester:     req.Semester,
		InstructorID: req.InstructorID,
	}
	course.CreatedBy = &caller.ID
	course.UpdatedBy = &caller.ID

	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}

	s.audit.Record(caller.ID, "course", course.CourseID, "create", course.Title)

	resp := s.toCourseResponse(course)
	resp.InstructorName = instructor.Name
	return resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *courseService) GetByID(ctx context.Context, id string) (*dto.CourseResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toCourseResponse(course), nil
}

// ────────────────────── List ──────────────────────

func (s *courseService) List(ctx context.Context) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.List(ctx)
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, *s.toCourseResponse(&courses[i]))
	}
	return result, nil
}

// ────────────────────── ListMine ──────────────────────

func (s *courseService) ListMine(ctx context.Context, instructorID string) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.ListByInstructor(ctx, instructorID)
	if err != nil {
		s.logger.Error("列出授课课程失败", zap.String("instructor_id", instructorID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, *s.toCourseResponse(&courses[i]))
	}
	return result, nil
}

// ────────────────────── Enroll ──────────────────────

func (s *courseService) Enroll(ctx context.Context, courseID, studentID string) error {
	if _, err := s.repo.Course.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return err
	}

	enrollment := &model.Enrollment{
		UserID:   studentID,
		CourseID: courseID,
	}

	// 唯一约束兜底并发重复选课
	if err := s.repo.Enrollment.InsertIfAbsent(ctx, enrollment); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return ErrAlreadyEnrolled
		}
		s.logger.Error("选课失败", zap.Error(err))
		return err
	}

	s.audit.Record(studentID, "course", courseID, "enroll", "")
	return nil
}

// ────────────────────── Roster ──────────────────────

func (s *courseService) Roster(ctx context.Context, courseID string, caller Principal) ([]dto.RosterEntryResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", courseID), zap.Error(err))
		return nil, err
	}

	if err := Gate(caller, ActionViewRoster, course); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询名册失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.RosterEntryResponse, 0, len(enrollments))
	for _, e := range enrollments {
		entry := dto.RosterEntryResponse{
			StudentID: e.UserID,
			JoinedAt:  e.JoinedAt.Format(time.RFC3339),
		}
		if e.Student != nil {
			entry.StudentName = e.Student.Name
			entry.Email = e.Student.Email
		}
		result = append(result, entry)
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *courseService) toCourseResponse(course *model.Course) *dto.CourseResponse {
	resp := &dto.CourseResponse{
		ID:           course.CourseID,
		Title:        course.Title,
		Semester:     course.Semester,
		InstructorID: course.InstructorID,
		CreatedAt:    course.CreatedAt.Format(time.RFC3339),
	}
	if course.Instructor != nil {
		resp.InstructorName = course.Instructor.Name
	}
	return resp
}
