package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"attendease/backend/internal/dto"
	"attendease/backend/internal/service"
	"attendease/backend/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器（签到 + 人工改写 + 请假/申诉/投票）
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	excuseSvc     service.ExcuseService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, excuseSvc service.ExcuseService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, excuseSvc: excuseSvc}
}

// CheckIn 学生自助签到
// POST /api/v1/sessions/:id/check-in
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.CheckInRequest
	// ELECTRONIC 方式允许空请求体
	_ = c.ShouldBindJSON(&req)

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.CheckIn(c.Request.Context(), id, callerID, req.Code)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// SetStatus 教师直接改写考勤状态
// PUT /api/v1/sessions/:id/attendance
func (h *AttendanceHandler) SetStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.ManualStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.SetStatusManual(c.Request.Context(), id, &req, caller)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// GetSessionRoster 获取课次点名册
// GET /api/v1/sessions/:id/attendance
func (h *AttendanceHandler) GetSessionRoster(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	roster, err := h.attendanceSvc.ListSessionRoster(c.Request.Context(), id, caller)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": roster})
}

// SubmitEvidence 提交公假材料
// POST /api/v1/sessions/:id/evidence
func (h *AttendanceHandler) SubmitEvidence(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.SubmitEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.excuseSvc.SubmitEvidence(c.Request.Context(), id, callerID, req.ProofReference)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// FileAppeal 提交考勤申诉
// POST /api/v1/sessions/:id/appeal
func (h *AttendanceHandler) FileAppeal(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.AppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.excuseSvc.FileAppeal(c.Request.Context(), id, callerID, req.Reason)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// CastVote 课堂投票应答
// POST /api/v1/sessions/:id/vote
func (h *AttendanceHandler) CastVote(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	record, err := h.excuseSvc.CastVote(c.Request.Context(), id, callerID, req.Response)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, record)
}

// handleAttendanceError 统一处理考勤模块业务错误
func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13001, "课次不存在")
	case errors.Is(err, service.ErrWindowClosed):
		response.BadRequest(c, 15001, "当前不在签到时间")
	case errors.Is(err, service.ErrMissingCode):
		response.BadRequest(c, 15002, "请输入验证码")
	case errors.Is(err, service.ErrCodeMismatch):
		response.BadRequest(c, 15003, "验证码错误")
	case errors.Is(err, service.ErrAlreadyChecked):
		response.Conflict(c, 15004, "已签到，请勿重复操作")
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, 15005, "未选该课程")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 15006, "考勤状态无效")
	case errors.Is(err, service.ErrEmptyEvidence):
		response.BadRequest(c, 16001, "请提供证明材料")
	case errors.Is(err, service.ErrInvalidVote):
		response.BadRequest(c, 16002, "投票选项无效")
	case errors.Is(err, service.ErrVotingClosed):
		response.BadRequest(c, 16003, "当前未开启投票")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Forbidden(c, 12005, "非本课程授课教师")
	default:
		response.InternalError(c)
	}
}
