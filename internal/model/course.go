package model

import "time"

// Course 课程表 — 对应 courses
type Course struct {
	CourseID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Title        string `gorm:"type:varchar(100);not null"                     json:"title"`
	Semester     string `gorm:"type:varchar(20);not null"                      json:"semester"` // 例: "2025-2"
	InstructorID string `gorm:"type:uuid;not null"                             json:"instructor_id"`
	BaseModel

	// 关联
	Instructor *User `gorm:"foreignKey:InstructorID;references:UserID" json:"instructor,omitempty"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Enrollment 选课关系表 — 对应 enrollments
// (user_id, course_id) 唯一，重复选课由唯一约束拒绝
type Enrollment struct {
	EnrollmentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"       json:"enrollment_id"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:uniq_enroll,priority:1" json:"user_id"`
	CourseID     string    `gorm:"type:uuid;not null;uniqueIndex:uniq_enroll,priority:2" json:"course_id"`
	JoinedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                   json:"joined_at"`

	// 关联
	Student *User   `gorm:"foreignKey:UserID;references:UserID"     json:"student,omitempty"`
	Course  *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
