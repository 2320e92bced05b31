package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/service"
	"attendease/backend/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// CreateCourse 创建课程（管理员）
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// GetCourse 获取课程详情
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	course, err := h.courseSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// ListCourses 获取课程列表
// GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": courses})
}

// ListMyCourses 教师端看板：本人授课的课程
// GET /api/v1/courses/mine
func (h *CourseHandler) ListMyCourses(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	courses, err := h.courseSvc.ListMine(c.Request.Context(), callerID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": courses})
}

// Enroll 学生选课
// POST /api/v1/courses/:id/enroll
func (h *CourseHandler) Enroll(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.Enroll(c.Request.Context(), id, callerID); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, nil)
}

// GetRoster 获取课程名册（教师）
// GET /api/v1/courses/:id/roster
func (h *CourseHandler) GetRoster(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	roster, err := h.courseSvc.Roster(c.Request.Context(), id, caller)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": roster})
}

// handleCourseError 统一处理课程模块业务错误
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12001, "课程不存在")
	case errors.Is(err, service.ErrInstructorNotFound):
		response.BadRequest(c, 12002, "指定的授课教师不存在")
	case errors.Is(err, service.ErrNotInstructorRole):
		response.BadRequest(c, 12003, "指定用户不是教师角色")
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.Conflict(c, 12004, "已选该课程")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Forbidden(c, 12005, "非本课程授课教师")
	default:
		response.InternalError(c)
	}
}
