package dto

// CheckInRequest 学生自助签到请求
type CheckInRequest struct {
	Code string `json:"code"` // AUTH_CODE 方式必填
}

// ManualStatusRequest 教师直接改写考勤状态请求
type ManualStatusRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	Status    int    `json:"status"     binding:"min=0,max=5"` // 0 表示重置为未定
}

// SubmitEvidenceRequest 公假材料提交请求
type SubmitEvidenceRequest struct {
	ProofReference string `json:"proof_reference" binding:"required,max=255"`
}

// AppealRequest 考勤申诉请求
type AppealRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CastVoteRequest 课堂投票请求
type CastVoteRequest struct {
	Response string `json:"response" binding:"required"` // YES | NO
}

// AttendanceResponse 单条考勤记录响应
type AttendanceResponse struct {
	ID             string `json:"id"`
	SessionID      string `json:"session_id"`
	StudentID      string `json:"student_id"`
	Status         int    `json:"status"`
	ProofReference string `json:"proof_reference,omitempty"`
	PollResponse   string `json:"poll_response,omitempty"`
	AppealReason   string `json:"appeal_reason,omitempty"`
	CheckedAt      string `json:"checked_at,omitempty"`
}

// SessionRosterEntry 课次点名册条目（名单 + 状态，无记录者状态为 0）
type SessionRosterEntry struct {
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name"`
	Email        string `json:"email"`
	Status       int    `json:"status"`
	AttendanceID string `json:"attendance_id,omitempty"`
	PollResponse string `json:"poll_response,omitempty"`
}
