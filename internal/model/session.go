package model

import "time"

// ── 签到方式常量 ──

const (
	MethodElectronic = "ELECTRONIC" // 电子签到（一键签到）
	MethodAuthCode   = "AUTH_CODE"  // 验证码签到
	MethodCall       = "CALL"       // 口头点名
)

// ValidMethod 检查签到方式是否合法
func ValidMethod(m string) bool {
	switch m {
	case MethodElectronic, MethodAuthCode, MethodCall:
		return true
	}
	return false
}

// ClassSession 课次表（一次课堂会议及其签到窗口状态）— 对应 class_sessions
//
// 不变式：
//   - auth_code 仅在 AUTH_CODE 方式下开启过窗口后非空
//   - 一经签发的验证码不被覆盖，仅在切换到非 AUTH_CODE 方式时清除
//   - 关闭窗口不清除验证码（保留供课后核查）
type ClassSession struct {
	SessionID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"        json:"session_id"`
	CourseID         string    `gorm:"type:uuid;not null;uniqueIndex:uniq_course_week,priority:1" json:"course_id"`
	WeekNumber       int       `gorm:"type:smallint;not null;uniqueIndex:uniq_course_week,priority:2" json:"week_number"` // 1周次起
	SessionDate      time.Time `gorm:"not null"                                              json:"session_date"`
	IsHoliday        bool      `gorm:"not null;default:false"                                json:"is_holiday"`
	AttendanceMethod string    `gorm:"type:varchar(20);not null;default:'ELECTRONIC'"        json:"attendance_method"` // ELECTRONIC | AUTH_CODE | CALL
	AuthCode         *string   `gorm:"type:varchar(10)"                                      json:"auth_code,omitempty"`
	IsOpen           bool      `gorm:"not null;default:false"                                json:"is_open"`
	IsPolling        bool      `gorm:"not null;default:false"                                json:"is_polling"`
	BaseModel

	// 关联
	Course *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName 指定表名
func (ClassSession) TableName() string { return "class_sessions" }
