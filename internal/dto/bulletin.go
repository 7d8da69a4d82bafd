package dto

import "github.com/noah-isme/sma-bulletin-core/internal/models"

// Bulk validation statuses.
const (
	ValidationStatusSkipped              = "skipped"
	ValidationStatusAlreadyValidated     = "already_validated"
	ValidationStatusConfirmationRequired = "confirmation_required"
	ValidationStatusValidated            = "validated"
)

// Comment save actions.
const (
	CommentActionSkipped   = "skipped"
	CommentActionCreated   = "created"
	CommentActionUpdated   = "updated"
	CommentActionUnchanged = "unchanged"
)

// TripleState is the validation state of a (student, course, period) triple.
type TripleState string

const (
	StateNoActivity           TripleState = "no_activity"
	StateUncommented          TripleState = "uncommented"
	StateCommentedUnvalidated TripleState = "commented_unvalidated"
	StateValidated            TripleState = "validated"
)

// ClassValidationStats counts active pairs of a class and how many are validated.
type ClassValidationStats struct {
	ClassID  string `json:"classId"`
	PeriodID string `json:"periodId"`
	Total    int    `json:"total"`
	// Validated counts active pairs whose comment is validated.
	Validated int `json:"validated"`
}

// CourseAverage is one course line of a student's bulletin.
type CourseAverage struct {
	Course          models.Course          `json:"course"`
	GradeCount      int                    `json:"gradeCount"`
	Average         float64                `json:"average"`
	ExistingComment *models.TeacherComment `json:"existingComment,omitempty"`
	State           TripleState            `json:"state"`
}

// StudentBulletin is the teacher's view of one student for a period.
type StudentBulletin struct {
	StudentID         string          `json:"studentId"`
	StudentName       string          `json:"studentName"`
	PeriodID          string          `json:"periodId"`
	Courses           []CourseAverage `json:"courses"`
	OverallAverage    float64         `json:"overallAverage"`
	ValidationAllowed bool            `json:"validationAllowed"`
	ValidationOpensOn string          `json:"validationOpensOn,omitempty"`
}

// SaveCommentRequest creates or edits the comment of a triple. A nil
// Comment on an existing comment leaves it unchanged.
type SaveCommentRequest struct {
	StudentID string  `json:"studentId" validate:"required"`
	CourseID  string  `json:"courseId" validate:"required"`
	PeriodID  string  `json:"periodId" validate:"required"`
	Comment   *string `json:"comment"`
}

// SaveCommentResult reports what a save did.
type SaveCommentResult struct {
	Action    string `json:"action"`
	CommentID string `json:"commentId,omitempty"`
}

// ValidateRequest asks for a bulk validation. The caller confirms by
// echoing the count announced by a previous unconfirmed call.
type ValidateRequest struct {
	PeriodID      string `json:"periodId" validate:"required"`
	Confirmed     bool   `json:"confirmed"`
	ExpectedCount int    `json:"expectedCount" validate:"gte=0"`
}

// ValidationOutcome describes the result of a bulk validation.
type ValidationOutcome struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// ClassOverview is the director's view of one class for a period.
type ClassOverview struct {
	ClassID          string `json:"classId"`
	ClassName        string `json:"className"`
	Total            int    `json:"total"`
	Validated        int    `json:"validated"`
	IsFullyValidated bool   `json:"isFullyValidated"`
}

// PeriodOverview aggregates bulletin validation progress across classes.
type PeriodOverview struct {
	PeriodID         string          `json:"periodId"`
	Classes          []ClassOverview `json:"classes"`
	TotalClasses     int             `json:"totalClasses"`
	ValidatedClasses int             `json:"validatedClasses"`
	PendingClasses   int             `json:"pendingClasses"`
}

// RelevantPeriods lists the periods of the current academic year.
type RelevantPeriods struct {
	AcademicYear string                  `json:"academicYear,omitempty"`
	PeriodIDs    []string                `json:"periodIds"`
	Current      *models.AcademicPeriod  `json:"current,omitempty"`
	Periods      []models.AcademicPeriod `json:"periods"`
}
