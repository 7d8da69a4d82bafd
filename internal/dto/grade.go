package dto

// CreateGradeRequest records a new grade.
type CreateGradeRequest struct {
	StudentID string  `json:"studentId" validate:"required"`
	Subject   string  `json:"subject" validate:"required"`
	Score     float64 `json:"score" validate:"gte=0"`
	MaxScore  float64 `json:"maxScore" validate:"gt=0"`
	Type      string  `json:"type" validate:"required,oneof=exam homework participation evaluation"`
	Title     string  `json:"title"`
	Date      string  `json:"date" validate:"required"`
	Feedback  string  `json:"feedback"`
	CourseID  string  `json:"courseId"`
	ClassID   string  `json:"classId"`
}

// UpdateGradeRequest corrects an existing grade.
type UpdateGradeRequest struct {
	Score    *float64 `json:"score" validate:"omitempty,gte=0"`
	MaxScore *float64 `json:"maxScore" validate:"omitempty,gt=0"`
	Feedback *string  `json:"feedback"`
	Subject  *string  `json:"subject" validate:"omitempty,min=1"`
}

// GradeResult reports a grade write.
type GradeResult struct {
	ID       string `json:"id,omitempty"`
	PeriodID string `json:"periodId,omitempty"`
	Applied  bool   `json:"applied"`
}
