package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/model"
	"attendease/backend/internal/service"
	"attendease/backend/pkg/response"
)

// SessionHandler 课次模块 HTTP 处理器（排课 + 窗口管理）
type SessionHandler struct {
	scheduleSvc      service.ScheduleService
	sessionSvc       service.SessionService
	defaultTermWeeks int
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(scheduleSvc service.ScheduleService, sessionSvc service.SessionService, defaultTermWeeks int) *SessionHandler {
	return &SessionHandler{
		scheduleSvc:      scheduleSvc,
		sessionSvc:       sessionSvc,
		defaultTermWeeks: defaultTermWeeks,
	}
}

// GenerateSessions 按学期批量生成课次
// POST /api/v1/courses/:id/sessions/generate
func (h *SessionHandler) GenerateSessions(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.GenerateSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	// 未指定节数时按配置的学期周数生成
	if req.MeetingCount == 0 {
		req.MeetingCount = h.defaultTermWeeks
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	sessions, err := h.scheduleSvc.GenerateSessions(c.Request.Context(), courseID, &req, caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, gin.H{"list": sessions})
}

// CreateSession 单独创建课次
// POST /api/v1/courses/:id/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	session, err := h.scheduleSvc.CreateSession(c.Request.Context(), courseID, &req, caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// ListSessions 获取课程课次列表
// GET /api/v1/courses/:id/sessions
// 教师/管理员返回含验证码的完整视图，学生返回附本人状态的视图
func (h *SessionHandler) ListSessions(c *gin.Context) {
	courseID := c.Param("id")
	if courseID == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if caller.Role == model.RoleStudent {
		sessions, err := h.sessionSvc.ListForStudent(c.Request.Context(), courseID, caller.ID)
		if err != nil {
			h.handleSessionError(c, err)
			return
		}
		response.OK(c, gin.H{"list": sessions})
		return
	}

	sessions, err := h.sessionSvc.ListForInstructor(c.Request.Context(), courseID, caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	response.OK(c, gin.H{"list": sessions})
}

// SetSessionStatus 变更窗口开关与签到方式
// PUT /api/v1/sessions/:id/status
func (h *SessionHandler) SetSessionStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.SetSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	status, err := h.sessionSvc.SetStatus(c.Request.Context(), id, &req, caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, status)
}

// RescheduleSession 课次改期（假期停课的课次改期后恢复上课）
// PUT /api/v1/sessions/:id/date
func (h *SessionHandler) RescheduleSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.RescheduleSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Reschedule(c.Request.Context(), id, &req, caller)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// ToggleVoting 开关课堂投票
// PUT /api/v1/sessions/:id/voting
func (h *SessionHandler) ToggleVoting(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.ToggleVotingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.sessionSvc.ToggleVoting(c.Request.Context(), id, req.IsPolling, caller); err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSessionError 统一处理课次模块业务错误
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13001, "课次不存在")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12001, "课程不存在")
	case errors.Is(err, service.ErrInvalidScheduleRequest):
		response.BadRequest(c, 13002, "排课参数无效")
	case errors.Is(err, service.ErrScheduleDateInvalid):
		response.BadRequest(c, 13003, "日期格式无效")
	case errors.Is(err, service.ErrWeekNumberTaken):
		response.Conflict(c, 13004, "该周次的课次已存在")
	case errors.Is(err, service.ErrInvalidMethod):
		response.BadRequest(c, 13005, "签到方式无效")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Forbidden(c, 12005, "非本课程授课教师")
	default:
		response.InternalError(c)
	}
}
