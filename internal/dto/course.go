package dto

// CreateCourseRequest 创建课程请求（管理员）
type CreateCourseRequest struct {
	Title        string `json:"title"         binding:"required,max=100"`
	Semester     string `json:"semester"      binding:"required,max=20"` // 例: "2025-2"
	InstructorID string `json:"instructor_id" binding:"required,uuid"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Semester       string `json:"semester"`
	InstructorID   string `json:"instructor_id"`
	InstructorName string `json:"instructor_name,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// RosterEntryResponse 课程名册条目
type RosterEntryResponse struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Email       string `json:"email"`
	JoinedAt    string `json:"joined_at"`
}
