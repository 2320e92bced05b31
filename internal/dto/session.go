package dto

// GenerateSessionsRequest 按学期批量生成课次请求
type GenerateSessionsRequest struct {
	TermStart    string `json:"term_start"    binding:"required"`             // YYYY-MM-DD
	Weekday      int    `json:"weekday"       binding:"required,min=1,max=7"` // 1=周一 … 7=周日
	MeetingCount int    `json:"meeting_count"`                                // 0 时使用配置默认周数
	StartHour    int    `json:"start_hour"    binding:"min=0,max=23"`
	StartMinute  int    `json:"start_minute"  binding:"min=0,max=59"`
}

// CreateSessionRequest 单独创建课次请求（教师）
type CreateSessionRequest struct {
	WeekNumber       int    `json:"week_number"       binding:"required,min=1"`
	SessionDate      string `json:"session_date"      binding:"required"` // RFC 3339
	AttendanceMethod string `json:"attendance_method" binding:"omitempty,oneof=ELECTRONIC AUTH_CODE CALL"`
}

// SetSessionStatusRequest 变更窗口开关与签到方式请求
type SetSessionStatusRequest struct {
	IsOpen bool   `json:"is_open"`
	Method string `json:"method" binding:"required,oneof=ELECTRONIC AUTH_CODE CALL"`
}

// RescheduleSessionRequest 课次改期请求
type RescheduleSessionRequest struct {
	SessionDate string `json:"session_date" binding:"required"` // RFC 3339
}

// ToggleVotingRequest 开关课堂投票请求
type ToggleVotingRequest struct {
	IsPolling bool `json:"is_polling"`
}

// SessionResponse 课次响应
type SessionResponse struct {
	ID               string `json:"id"`
	CourseID         string `json:"course_id"`
	WeekNumber       int    `json:"week_number"`
	SessionDate      string `json:"session_date"`
	IsHoliday        bool   `json:"is_holiday"`
	AttendanceMethod string `json:"attendance_method"`
	AuthCode         string `json:"auth_code,omitempty"` // 仅教师视图返回
	IsOpen           bool   `json:"is_open"`
	IsPolling        bool   `json:"is_polling"`
}

// StudentSessionResponse 学生视图课次响应（附本人考勤状态）
type StudentSessionResponse struct {
	ID               string `json:"id"`
	WeekNumber       int    `json:"week_number"`
	SessionDate      string `json:"session_date"`
	IsHoliday        bool   `json:"is_holiday"`
	AttendanceMethod string `json:"attendance_method"`
	IsOpen           bool   `json:"is_open"`
	IsPolling        bool   `json:"is_polling"`
	MyStatus         int    `json:"my_status"` // 0:未定 1:出席 2:迟到 3:缺席 4:公假 5:待审核
}

// SessionStatusResponse 窗口状态变更响应
type SessionStatusResponse struct {
	ID       string `json:"id"`
	IsOpen   bool   `json:"is_open"`
	Method   string `json:"method"`
	AuthCode string `json:"auth_code,omitempty"`
}
