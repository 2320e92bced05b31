package service

import (
	"errors"

	"attendease/backend/internal/model"
)

// ── 权限校验 ──

var (
	ErrForbidden      = errors.New("无权执行该操作")
	ErrNotCourseOwner = errors.New("非本课程授课教师")
)

// Principal 已认证的调用主体（身份协作方注入，核心不再验证凭据）
type Principal struct {
	ID   string
	Role string
}

// Action 受权限门控的操作
type Action string

const (
	ActionCreateCourse     Action = "course:create"
	ActionViewRoster       Action = "course:roster"
	ActionScheduleSessions Action = "session:schedule"
	ActionManageSession    Action = "session:manage"
	ActionOverrideRecord   Action = "attendance:override"
	ActionExportReport     Action = "report:export"
)

// Gate 统一能力门控：所有变更类核心操作在执行前调用一次。
// 规则：
//   - ADMIN 放行全部操作
//   - INSTRUCTOR 仅可操作本人授课的课程（course.instructor_id 匹配）
//   - STUDENT 不具备任何管理能力
//
// course 为操作归属课程；ActionCreateCourse 等无归属课程的操作传 nil。
func Gate(p Principal, action Action, course *model.Course) error {
	if p.Role == model.RoleAdmin {
		return nil
	}

	switch action {
	case ActionCreateCourse:
		// 仅管理员可开课
		return ErrForbidden
	case ActionScheduleSessions, ActionManageSession, ActionOverrideRecord,
		ActionViewRoster, ActionExportReport:
		if p.Role != model.RoleInstructor {
			return ErrForbidden
		}
		if course == nil || course.InstructorID != p.ID {
			return ErrNotCourseOwner
		}
		return nil
	}

	return ErrForbidden
}
