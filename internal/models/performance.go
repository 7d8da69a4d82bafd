package models

import "time"

// Attendance statuses.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// Grade is a single scored evaluation.
type Grade struct {
	ID          string  `json:"id" firestore:"-"`
	StudentID   string  `json:"studentId" firestore:"studentId"`
	StudentName string  `json:"studentName,omitempty" firestore:"studentName,omitempty"`
	Subject     string  `json:"subject" firestore:"subject"`
	Score       float64 `json:"score" firestore:"score"`
	MaxScore    float64 `json:"maxScore" firestore:"maxScore"`
	Type        string  `json:"type" firestore:"type"`
	Title       string  `json:"title,omitempty" firestore:"title,omitempty"`
	Date        string  `json:"date" firestore:"date"`
	Feedback    string  `json:"feedback,omitempty" firestore:"feedback,omitempty"`
	CourseID    string  `json:"courseId,omitempty" firestore:"courseId,omitempty"`
	ClassID     string  `json:"classId,omitempty" firestore:"classId,omitempty"`
	TeacherID   string  `json:"teacherId,omitempty" firestore:"teacherId,omitempty"`
	PeriodID    string  `json:"periodId,omitempty" firestore:"periodId,omitempty"`
	CategoryID  string  `json:"categoryId,omitempty" firestore:"categoryId,omitempty"`
}

func (g Grade) RecordID() string { return g.ID }
func (g *Grade) SetID(id string) { g.ID = id }

// Percentage returns score/maxScore*100, unclamped. A non-positive maxScore yields 0.
func (g Grade) Percentage() float64 {
	if g.MaxScore <= 0 {
		return 0
	}
	return g.Score / g.MaxScore * 100
}

// Attendance is one presence record for a student on a day.
type Attendance struct {
	ID            string `json:"id" firestore:"-"`
	StudentID     string `json:"studentId" firestore:"studentId"`
	StudentName   string `json:"studentName,omitempty" firestore:"studentName,omitempty"`
	Date          string `json:"date" firestore:"date"`
	Status        string `json:"status" firestore:"status"`
	ClassID       string `json:"classId,omitempty" firestore:"classId,omitempty"`
	CourseID      string `json:"courseId,omitempty" firestore:"courseId,omitempty"`
	Justification string `json:"justification,omitempty" firestore:"justification,omitempty"`
	IsJustified   bool   `json:"isJustified" firestore:"isJustified"`
}

func (a Attendance) RecordID() string { return a.ID }
func (a *Attendance) SetID(id string) { a.ID = id }

// Homework is an assignment due for a class.
type Homework struct {
	ID          string `json:"id" firestore:"-"`
	Title       string `json:"title" firestore:"title"`
	Subject     string `json:"subject" firestore:"subject"`
	Description string `json:"description,omitempty" firestore:"description,omitempty"`
	DueDate     string `json:"dueDate" firestore:"dueDate"`
	ClassID     string `json:"classId" firestore:"classId"`
	AssignedBy  string `json:"assignedBy" firestore:"assignedBy"`
}

func (h Homework) RecordID() string { return h.ID }
func (h *Homework) SetID(id string) { h.ID = id }

// TeacherComment is a teacher's remark on a student for one course and period.
// IsValidated marks the sign-off for the bulletin.
type TeacherComment struct {
	ID             string `json:"id" firestore:"-"`
	TeacherID      string `json:"teacherId" firestore:"teacherId"`
	TeacherName    string `json:"teacherName,omitempty" firestore:"teacherName,omitempty"`
	StudentID      string `json:"studentId" firestore:"studentId"`
	StudentName    string `json:"studentName,omitempty" firestore:"studentName,omitempty"`
	CourseID       string `json:"courseId" firestore:"courseId"`
	CourseName     string `json:"courseName,omitempty" firestore:"courseName,omitempty"`
	PeriodID       string `json:"periodId" firestore:"periodId"`
	PeriodName     string `json:"periodName,omitempty" firestore:"periodName,omitempty"`
	Comment        string `json:"comment" firestore:"comment"`
	IsValidated    bool   `json:"isValidated" firestore:"isValidated"`
	ValidationDate string `json:"validationDate,omitempty" firestore:"validationDate,omitempty"`
	CreatedAt      string `json:"createdAt" firestore:"createdAt"`
	UpdatedAt      string `json:"updatedAt" firestore:"updatedAt"`
}

func (c TeacherComment) RecordID() string { return c.ID }
func (c *TeacherComment) SetID(id string) { c.ID = id }

// GradeUpdate carries the fields of a grade correction. Nil fields are left untouched.
type GradeUpdate struct {
	Score    *float64 `json:"score,omitempty"`
	MaxScore *float64 `json:"maxScore,omitempty"`
	Feedback *string  `json:"feedback,omitempty"`
	Subject  *string  `json:"subject,omitempty"`
}

// ValidationAudit records one executed bulk validation.
type ValidationAudit struct {
	ID           string    `db:"id" json:"id"`
	TeacherID    string    `db:"teacher_id" json:"teacherId"`
	ClassID      string    `db:"class_id" json:"classId"`
	StudentID    *string   `db:"student_id" json:"studentId,omitempty"`
	PeriodID     string    `db:"period_id" json:"periodId"`
	Scope        string    `db:"scope" json:"scope"`
	CreatedCount int       `db:"created_count" json:"createdCount"`
	UpdatedCount int       `db:"updated_count" json:"updatedCount"`
	Failed       bool      `db:"failed" json:"failed"`
	ErrorMessage *string   `db:"error_message" json:"errorMessage,omitempty"`
	ExecutedAt   time.Time `db:"executed_at" json:"executedAt"`
}
