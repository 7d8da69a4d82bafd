package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/period"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

// GradeWriter persists grades.
type GradeWriter interface {
	Create(ctx context.Context, grade models.Grade) (string, error)
	Update(ctx context.Context, id string, update models.GradeUpdate) error
}

// GradeService records and corrects grades.
type GradeService struct {
	writer    GradeWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the service.
func NewGradeService(writer GradeWriter, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{writer: writer, validator: validate, logger: logger}
}

// AddGrade validates the payload, attaches the period containing the grade
// date and creates the record.
func (s *GradeService) AddGrade(ctx context.Context, view store.View, session models.Session, req dto.CreateGradeRequest) (dto.GradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GradeResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := requireLoaded(view, models.CollectionPeriods, models.CollectionUsers); err != nil {
		return dto.GradeResult{}, err
	}
	if err := checkScore(req.Score, req.MaxScore); err != nil {
		return dto.GradeResult{}, err
	}
	date, ok := models.ParseTime(req.Date)
	if !ok {
		return dto.GradeResult{}, appErrors.Clone(appErrors.ErrValidation, "invalid grade date")
	}
	p, ok := period.ForDate(view.Periods, date)
	if !ok {
		return dto.GradeResult{}, appErrors.ErrPeriodNotFound
	}

	grade := models.Grade{
		StudentID: req.StudentID,
		Subject:   req.Subject,
		Score:     req.Score,
		MaxScore:  req.MaxScore,
		Type:      req.Type,
		Title:     req.Title,
		Date:      req.Date,
		Feedback:  req.Feedback,
		CourseID:  req.CourseID,
		ClassID:   req.ClassID,
		TeacherID: session.UserID,
		PeriodID:  p.ID,
	}
	if student, ok := view.Student(req.StudentID); ok {
		grade.StudentName = student.Name
		if grade.ClassID == "" {
			grade.ClassID = student.ClassID
		}
	}

	id, err := s.writer.Create(ctx, grade)
	if err != nil {
		return dto.GradeResult{}, err
	}
	s.logger.Info("grade recorded", zap.String("student_id", req.StudentID), zap.String("period_id", p.ID))
	return dto.GradeResult{ID: id, PeriodID: p.ID, Applied: true}, nil
}

// UpdateScore corrects a grade. A grade missing from the view is a no-op.
func (s *GradeService) UpdateScore(ctx context.Context, view store.View, gradeID string, req dto.UpdateGradeRequest) (dto.GradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GradeResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := requireLoaded(view, models.CollectionGrades); err != nil {
		return dto.GradeResult{}, err
	}
	current, ok := view.Grade(gradeID)
	if !ok {
		return dto.GradeResult{ID: gradeID}, nil
	}

	score, maxScore := current.Score, current.MaxScore
	if req.Score != nil {
		score = *req.Score
	}
	if req.MaxScore != nil {
		maxScore = *req.MaxScore
	}
	if err := checkScore(score, maxScore); err != nil {
		return dto.GradeResult{}, err
	}

	update := models.GradeUpdate{Score: req.Score, MaxScore: req.MaxScore, Feedback: req.Feedback, Subject: req.Subject}
	if err := s.writer.Update(ctx, gradeID, update); err != nil {
		return dto.GradeResult{}, err
	}
	return dto.GradeResult{ID: gradeID, PeriodID: current.PeriodID, Applied: true}, nil
}

func checkScore(score, maxScore float64) error {
	if score < 0 || score > maxScore {
		return appErrors.Clone(appErrors.ErrValidation, "score must be between 0 and maxScore")
	}
	return nil
}
