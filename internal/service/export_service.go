package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendease/backend/internal/model"
	"attendease/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSessions   = errors.New("该课程暂无课次，无法导出")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// 课次默认时长，导出日历事件时使用
const sessionDuration = 2 * time.Hour

// ExportService 导出业务接口
//
// 设计说明：
//   - 点名册 / 预警名单导出为 Excel (.xlsx)
//   - 课程上课计划导出为 iCalendar (.ics)，可直接订阅导入日历客户端
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportCourseRoster 导出课程全员出勤报表为 Excel
	ExportCourseRoster(ctx context.Context, courseID string, caller Principal) (*bytes.Buffer, string, error)
	// ExportRiskReport 导出预警名单为 Excel
	ExportRiskReport(ctx context.Context, courseID string, caller Principal) (*bytes.Buffer, string, error)
	// ExportCourseCalendar 导出课程上课计划为 .ics 日历
	ExportCourseCalendar(ctx context.Context, courseID string, caller Principal) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	reports ReportService
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, reports ReportService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, reports: reports, logger: logger}
}

// ────────────────────── ExportCourseRoster ──────────────────────

func (s *exportService) ExportCourseRoster(ctx context.Context, courseID string, caller Principal) (*bytes.Buffer, string, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, "", err
	}
	if err := Gate(caller, ActionExportReport, course); err != nil {
		return nil, "", err
	}

	report, err := s.reports.CourseReport(ctx, courseID, caller)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "出勤报表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 38)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "E", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 出勤报表", course.Title))
	f.MergeCell(sheetName, "A1", "E1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	row := 2
	f.SetCellValue(sheetName, cell("A", row), "学号")
	f.SetCellValue(sheetName, cell("B", row), "姓名")
	f.SetCellValue(sheetName, cell("C", row), "总课次")
	f.SetCellValue(sheetName, cell("D", row), "出席次数")
	f.SetCellValue(sheetName, cell("E", row), "出勤率(%)")

	row = 3
	for _, r := range report.Reports {
		f.SetCellValue(sheetName, cell("A", row), r.StudentID)
		f.SetCellValue(sheetName, cell("B", row), r.StudentName)
		f.SetCellValue(sheetName, cell("C", row), r.TotalSessions)
		f.SetCellValue(sheetName, cell("D", row), r.AttendedCount)
		f.SetCellValue(sheetName, cell("E", row), r.AttendanceRate)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("出勤报表_%s.xlsx", course.Title), nil
}

// ────────────────────── ExportRiskReport ──────────────────────

func (s *exportService) ExportRiskReport(ctx context.Context, courseID string, caller Principal) (*bytes.Buffer, string, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, "", err
	}
	if err := Gate(caller, ActionExportReport, course); err != nil {
		return nil, "", err
	}

	entries, err := s.reports.RiskReport(ctx, courseID, caller)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "预警名单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 38)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "G", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C00000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 出勤预警名单", course.Title))
	f.MergeCell(sheetName, "A1", "G1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	row := 2
	f.SetCellValue(sheetName, cell("A", row), "学号")
	f.SetCellValue(sheetName, cell("B", row), "姓名")
	f.SetCellValue(sheetName, cell("C", row), "缺席次数")
	f.SetCellValue(sheetName, cell("D", row), "迟到次数")
	f.SetCellValue(sheetName, cell("E", row), "最长连续迟到")
	f.SetCellValue(sheetName, cell("F", row), "折算缺席")
	f.SetCellValue(sheetName, cell("G", row), "是否预警")

	row = 3
	for _, e := range entries {
		f.SetCellValue(sheetName, cell("A", row), e.StudentID)
		f.SetCellValue(sheetName, cell("B", row), e.StudentName)
		f.SetCellValue(sheetName, cell("C", row), e.AbsentCount)
		f.SetCellValue(sheetName, cell("D", row), e.LateCount)
		f.SetCellValue(sheetName, cell("E", row), e.MaxConsecutiveLate)
		f.SetCellValue(sheetName, cell("F", row), e.ConvertedAbsences)
		if e.IsAtRisk {
			f.SetCellValue(sheetName, cell("G", row), "是")
		} else {
			f.SetCellValue(sheetName, cell("G", row), "否")
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("预警名单_%s.xlsx", course.Title), nil
}

// ────────────────────── ExportCourseCalendar ──────────────────────

func (s *exportService) ExportCourseCalendar(ctx context.Context, courseID string, caller Principal) (*bytes.Buffer, string, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, "", err
	}
	if err := Gate(caller, ActionExportReport, course); err != nil {
		return nil, "", err
	}

	sessions, err := s.repo.Session.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课次列表失败", zap.Error(err))
		return nil, "", err
	}
	if len(sessions) == 0 {
		return nil, "", ErrExportNoSessions
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//attendease//course-calendar//CN")

	now := time.Now()
	for i := range sessions {
		sess := &sessions[i]
		evt := cal.AddEvent(fmt.Sprintf("%s@attendease", sess.SessionID))
		evt.SetCreatedTime(now)
		evt.SetDtStampTime(now)
		evt.SetStartAt(sess.SessionDate)
		evt.SetEndAt(sess.SessionDate.Add(sessionDuration))
		summary := fmt.Sprintf("%s 第%d周", course.Title, sess.WeekNumber)
		if sess.IsHoliday {
			summary += "（假期停课）"
		}
		evt.SetSummary(summary)
		evt.SetDescription(fmt.Sprintf("学期：%s / 签到方式：%s", course.Semester, sess.AttendanceMethod))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("上课计划_%s.ics", course.Title), nil
}

// ── 内部辅助方法 ──

func (s *exportService) getCourse(ctx context.Context, courseID string) (*model.Course, error) {
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

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
