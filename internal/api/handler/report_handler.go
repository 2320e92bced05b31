package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"attendease/backend/internal/service"
	"attendease/backend/pkg/response"
)

// ReportHandler 统计分析模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// GetLiveStat 实时出席统计
// GET /api/v1/sessions/:id/live
func (h *ReportHandler) GetLiveStat(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	stat, err := h.reportSvc.LiveStat(c.Request.Context(), id, caller)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, stat)
}

// GetWeeklyRates 逐周出席率
// GET /api/v1/courses/:id/reports/weekly
func (h *ReportHandler) GetWeeklyRates(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	rates, err := h.reportSvc.WeeklyRates(c.Request.Context(), id, caller)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, gin.H{"list": rates})
}

// GetApprovalRate 公假批准率
// GET /api/v1/courses/:id/reports/approval
func (h *ReportHandler) GetApprovalRate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	rate, err := h.reportSvc.ApprovalRate(c.Request.Context(), id, caller)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, rate)
}

// GetRiskReport 出勤预警名单
// GET /api/v1/courses/:id/reports/risk
func (h *ReportHandler) GetRiskReport(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	entries, err := h.reportSvc.RiskReport(c.Request.Context(), id, caller)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// GetCourseReport 课程全员出勤报表
// GET /api/v1/courses/:id/reports
func (h *ReportHandler) GetCourseReport(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	report, err := h.reportSvc.CourseReport(c.Request.Context(), id, caller)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// GetStudentReport 单个学生的课程出勤统计
// GET /api/v1/courses/:id/reports/students/:student_id
func (h *ReportHandler) GetStudentReport(c *gin.Context) {
	id := c.Param("id")
	studentID := c.Param("student_id")
	if id == "" || studentID == "" {
		response.BadRequest(c, 10001, "课程ID与学生ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	report, err := h.reportSvc.StudentReport(c.Request.Context(), id, studentID, caller)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, report)
}

// GetMyDashboard 学生端看板：本人所选各课程的出勤概览
// GET /api/v1/dashboard
func (h *ReportHandler) GetMyDashboard(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	entries, err := h.reportSvc.StudentDashboard(c.Request.Context(), callerID)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// handleReportError 统一处理统计模块业务错误
func (h *ReportHandler) handleReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 13001, "课次不存在")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12001, "课程不存在")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Forbidden(c, 12005, "非本课程授课教师")
	default:
		response.InternalError(c)
	}
}
