package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"attendease/backend/internal/service"
	"attendease/backend/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportRoster 导出课程出勤报表 (.xlsx)
// GET /api/v1/courses/:id/export/roster
func (h *ExportHandler) ExportRoster(c *gin.Context) {
	h.export(c, xlsxContentType, h.exportSvc.ExportCourseRoster)
}

// ExportRisk 导出预警名单 (.xlsx)
// GET /api/v1/courses/:id/export/risk
func (h *ExportHandler) ExportRisk(c *gin.Context) {
	h.export(c, xlsxContentType, h.exportSvc.ExportRiskReport)
}

// ExportCalendar 导出上课计划 (.ics)
// GET /api/v1/courses/:id/export/calendar
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	h.export(c, icsContentType, h.exportSvc.ExportCourseCalendar)
}

type exportFunc func(ctx context.Context, courseID string, caller service.Principal) (*bytes.Buffer, string, error)

func (h *ExportHandler) export(c *gin.Context, contentType string, fn exportFunc) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课程ID不能为空")
		return
	}

	caller, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	buf, filename, err := fn(c.Request.Context(), id, caller)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 12001, "课程不存在")
	case errors.Is(err, service.ErrExportNoSessions):
		response.BadRequest(c, 17001, "该课程暂无课次，无法导出")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, 10003, "无权执行该操作")
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Forbidden(c, 12005, "非本课程授课教师")
	default:
		response.InternalError(c)
	}
}
