package dto

// LiveStatResponse 实时出席统计（N/M 人）
type LiveStatResponse struct {
	Total    int    `json:"total"`
	Attended int    `json:"attended"`
	AuthCode string `json:"auth_code,omitempty"`
}

// WeeklyRateEntry 单周出席率
type WeeklyRateEntry struct {
	WeekNumber  int     `json:"week_number"`
	SessionDate string  `json:"session_date"`
	IsHoliday   bool    `json:"is_holiday"`
	Attended    int     `json:"attended"`
	Total       int     `json:"total"`
	Rate        float64 `json:"rate"` // 百分比，保留 1 位小数
}

// ApprovalRateResponse 公假批准率
type ApprovalRateResponse struct {
	TotalRequests int     `json:"total_requests"`
	Approved      int     `json:"approved"`
	Rate          float64 `json:"rate"` // 百分比，保留 1 位小数
}

// RiskEntry 预警名单条目
type RiskEntry struct {
	StudentID          string `json:"student_id"`
	StudentName        string `json:"student_name"`
	AbsentCount        int    `json:"absent_count"`
	LateCount          int    `json:"late_count"`
	MaxConsecutiveLate int    `json:"max_consecutive_late"`
	ConvertedAbsences  int    `json:"converted_absences"` // 缺席 + 迟到/3（每 3 次迟到折 1 次缺席）
	IsAtRisk           bool   `json:"is_at_risk"`
}

// StudentReport 单个学生的课程出勤统计
type StudentReport struct {
	StudentID      string  `json:"student_id"`
	StudentName    string  `json:"student_name"`
	TotalSessions  int     `json:"total_sessions"`
	AttendedCount  int     `json:"attended_count"`
	AttendanceRate float64 `json:"attendance_rate"` // 百分比，保留 1 位小数
}

// CourseReportResponse 课程出勤报表
type CourseReportResponse struct {
	CourseTitle string          `json:"course_title"`
	Reports     []StudentReport `json:"reports"`
}

// StudentDashboardEntry 学生端看板条目：所选课程各自的出勤概览
type StudentDashboardEntry struct {
	CourseID       string  `json:"course_id"`
	CourseTitle    string  `json:"course_title"`
	Semester       string  `json:"semester"`
	TotalSessions  int     `json:"total_sessions"`
	AttendedCount  int     `json:"attended_count"`
	AttendanceRate float64 `json:"attendance_rate"` // 百分比，保留 1 位小数
}
