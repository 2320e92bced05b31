package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"attendease/backend/internal/model"
	pkgerrors "attendease/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return pkgerrors.ErrDuplicateKey
		}
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	if course.CourseID == "" {
		course.CourseID = fmt.Sprintf("course-%d", len(m.courses)+1)
	}
	m.courses[course.CourseID] = course
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) List(_ context.Context) ([]model.Course, error) {
	var result []model.Course
	for _, c := range m.courses {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockCourseRepo) ListByInstructor(_ context.Context, instructorID string) ([]model.Course, error) {
	var result []model.Course
	for _, c := range m.courses {
		if c.InstructorID == instructorID {
			result = append(result, *c)
		}
	}
	return result, nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	enrollments []*model.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{}
}

func (m *mockEnrollmentRepo) InsertIfAbsent(_ context.Context, enrollment *model.Enrollment) error {
	for _, e := range m.enrollments {
		if e.UserID == enrollment.UserID && e.CourseID == enrollment.CourseID {
			return pkgerrors.ErrDuplicateKey
		}
	}
	if enrollment.EnrollmentID == "" {
		enrollment.EnrollmentID = fmt.Sprintf("enroll-%d", len(m.enrollments)+1)
	}
	m.enrollments = append(m.enrollments, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) Exists(_ context.Context, userID, courseID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) ListByCourse(_ context.Context, courseID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if e.CourseID == courseID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) ListByUser(_ context.Context, userID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if e.UserID == userID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) CountByCourse(_ context.Context, courseID string) (int64, error) {
	var count int64
	for _, e := range m.enrollments {
		if e.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	sessions map[string]*model.ClassSession
	seq      int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.ClassSession)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.ClassSession) error {
	for _, s := range m.sessions {
		if s.CourseID == session.CourseID && s.WeekNumber == session.WeekNumber {
			return pkgerrors.ErrDuplicateKey
		}
	}
	m.seq++
	if session.SessionID == "" {
		session.SessionID = fmt.Sprintf("sess-%d", m.seq)
	}
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessionRepo) CreateBatch(ctx context.Context, sessions []model.ClassSession) error {
	for i := range sessions {
		if err := m.Create(ctx, &sessions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.ClassSession, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) ListByCourse(_ context.Context, courseID string) ([]model.ClassSession, error) {
	var result []model.ClassSession
	for _, s := range m.sessions {
		if s.CourseID == courseID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekNumber < result[j].WeekNumber
	})
	return result, nil
}

func (m *mockSessionRepo) SetOpenAndMethod(_ context.Context, sessionID string, isOpen bool, method string) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.IsOpen = isOpen
	s.AttendanceMethod = method
	return nil
}

func (m *mockSessionRepo) ClearCode(_ context.Context, sessionID string) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.AuthCode = nil
	return nil
}

func (m *mockSessionRepo) SetCodeIfAbsent(_ context.Context, sessionID, code string) (bool, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if s.AuthCode != nil {
		return false, nil
	}
	s.AuthCode = &code
	return true, nil
}

func (m *mockSessionRepo) UpdateDate(_ context.Context, sessionID string, date time.Time) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.SessionDate = date
	s.IsHoliday = false
	return nil
}

func (m *mockSessionRepo) SetPolling(_ context.Context, sessionID string, isPolling bool) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.IsPolling = isPolling
	return nil
}

// ── Mock AttendanceRepository ──

// mockAttendanceRepo 持有 sessionRepo 引用：按课程查询时需借课次表
// 还原 (学生, 周次) 排序语义。
type mockAttendanceRepo struct {
	records  []*model.AttendanceRecord
	sessions *mockSessionRepo
	seq      int
}

func newMockAttendanceRepo(sessions *mockSessionRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{sessions: sessions}
}

func (m *mockAttendanceRepo) InsertIfAbsent(_ context.Context, record *model.AttendanceRecord) error {
	for _, r := range m.records {
		if r.SessionID == record.SessionID && r.StudentID == record.StudentID {
			return pkgerrors.ErrDuplicateKey
		}
	}
	m.seq++
	if record.AttendanceID == "" {
		record.AttendanceID = fmt.Sprintf("att-%d", m.seq)
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockAttendanceRepo) MarkPresentIfUnset(_ context.Context, attendanceID string, checkedAt time.Time) error {
	for _, r := range m.records {
		if r.AttendanceID == attendanceID && r.Status == model.StatusUnset {
			r.Status = model.StatusPresent
			r.CheckedAt = &checkedAt
			return nil
		}
	}
	return pkgerrors.ErrNoRowsAffected
}

func (m *mockAttendanceRepo) GetBySessionAndStudent(_ context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	for _, r := range m.records {
		if r.SessionID == sessionID && r.StudentID == studentID {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) Update(_ context.Context, record *model.AttendanceRecord) error {
	for i, r := range m.records {
		if r.AttendanceID == record.AttendanceID {
			m.records[i] = record
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListBySession(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.SessionID == sessionID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockAttendanceRepo) ListByCourse(_ context.Context, courseID string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if s, ok := m.sessions.sessions[r.SessionID]; ok && s.CourseID == courseID {
			result = append(result, *r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].StudentID != result[j].StudentID {
			return result[i].StudentID < result[j].StudentID
		}
		return m.weekOf(result[i].SessionID) < m.weekOf(result[j].SessionID)
	})
	return result, nil
}

func (m *mockAttendanceRepo) ListByCourseAndStudent(_ context.Context, courseID, studentID string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.StudentID != studentID {
			continue
		}
		if s, ok := m.sessions.sessions[r.SessionID]; ok && s.CourseID == courseID {
			result = append(result, *r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return m.weekOf(result[i].SessionID) < m.weekOf(result[j].SessionID)
	})
	return result, nil
}

func (m *mockAttendanceRepo) CountAttendedBySession(_ context.Context, sessionID string) (int64, error) {
	var count int64
	for _, r := range m.records {
		if r.SessionID == sessionID &&
			(r.Status == model.StatusPresent || r.Status == model.StatusExcusedApproved) {
			count++
		}
	}
	return count, nil
}

func (m *mockAttendanceRepo) weekOf(sessionID string) int {
	if s, ok := m.sessions.sessions[sessionID]; ok {
		return s.WeekNumber
	}
	return 0
}

// ── Mock AuditRepository ──

// 审计走异步 goroutine，mock 需自行加锁
type mockAuditRepo struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func newMockAuditRepo() *mockAuditRepo {
	return &mockAuditRepo{}
}

func (m *mockAuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}
