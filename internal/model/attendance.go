package model

import "time"

// ── 考勤状态枚举 ──
//
// 数值与存储一致，0 为缺省（尚无记录 / 已重置）

type AttendanceStatus int16

const (
	StatusUnset           AttendanceStatus = 0 // 未定
	StatusPresent         AttendanceStatus = 1 // 出席
	StatusLate            AttendanceStatus = 2 // 迟到
	StatusAbsent          AttendanceStatus = 3 // 缺席
	StatusExcusedApproved AttendanceStatus = 4 // 公假（已批准）
	StatusExcusedPending  AttendanceStatus = 5 // 公假（待审核）
)

// ValidStatus 检查考勤状态是否在定义范围内
func ValidStatus(s AttendanceStatus) bool {
	return s >= StatusUnset && s <= StatusExcusedPending
}

// ── 课堂投票选项 ──

const (
	PollYes = "YES"
	PollNo  = "NO"
)

// AttendanceRecord 考勤记录表 — 对应 attendances
//
// 每个 (课次, 学生) 至多一条记录，首次写入时惰性创建，此后原地更新。
// 唯一索引 uniq_session_student 是并发自助签到的最终裁决点。
// proof_reference 一经写入不再清除；status 可被教师直接改写。
type AttendanceRecord struct {
	AttendanceID   string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"                  json:"attendance_id"`
	SessionID      string           `gorm:"type:uuid;not null;uniqueIndex:uniq_session_student,priority:1"  json:"session_id"`
	StudentID      string           `gorm:"type:uuid;not null;uniqueIndex:uniq_session_student,priority:2"  json:"student_id"`
	Status         AttendanceStatus `gorm:"type:smallint;not null;default:0"                                json:"status"`
	ProofReference *string          `gorm:"type:varchar(255)"                                               json:"proof_reference,omitempty"`
	PollResponse   *string          `gorm:"type:varchar(3)"                                                 json:"poll_response,omitempty"` // YES | NO
	AppealReason   *string          `gorm:"type:text"                                                       json:"appeal_reason,omitempty"`
	CheckedAt      *time.Time       `json:"checked_at,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"                              json:"created_at"`
	UpdatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"                              json:"updated_at"`

	// 关联
	Session *ClassSession `gorm:"foreignKey:SessionID;references:SessionID" json:"session,omitempty"`
	Student *User         `gorm:"foreignKey:StudentID;references:UserID"    json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendances" }
