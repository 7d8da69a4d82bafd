package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/middleware"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/service"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
	"github.com/noah-isme/sma-bulletin-core/pkg/response"
)

type bulletinService interface {
	ClassesFor(view store.View, session models.Session) []models.ClassGroup
	ClassValidationStats(view store.View, teacherID, classID, periodID string) dto.ClassValidationStats
	StudentCourseAverages(view store.View, teacherID, studentID, periodID string, now time.Time) dto.StudentBulletin
	SaveComment(ctx context.Context, view store.View, session models.Session, req dto.SaveCommentRequest, now time.Time) (dto.SaveCommentResult, error)
	ValidateComment(ctx context.Context, view store.View, session models.Session, commentID string, now time.Time) (bool, error)
	ValidateClass(ctx context.Context, view store.View, session models.Session, classID string, req dto.ValidateRequest, now time.Time) (dto.ValidationOutcome, error)
	ValidateStudent(ctx context.Context, view store.View, session models.Session, studentID string, req dto.ValidateRequest, now time.Time) (dto.ValidationOutcome, error)
	PeriodValidationOverview(view store.View, periodID string) dto.PeriodOverview
}

// BulletinHandler exposes comment entry and bulletin validation.
type BulletinHandler struct {
	bulletins bulletinService
	clock     Clock
}

// NewBulletinHandler constructs the handler.
func NewBulletinHandler(bulletins bulletinService, clock Clock) *BulletinHandler {
	return &BulletinHandler{bulletins: bulletins, clock: clock}
}

// Classes godoc
// @Summary Classes the caller validates bulletins for
// @Tags Bulletins
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bulletins/classes [get]
func (h *BulletinHandler) Classes(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	response.OK(c, h.bulletins.ClassesFor(model.View(), session), middleware.ExtractMeta(c))
}

// ClassStats godoc
// @Summary Validation progress of a class
// @Tags Bulletins
// @Produce json
// @Param classId path string true "Class ID"
// @Param periodId query string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /bulletins/classes/{classId}/stats [get]
func (h *BulletinHandler) ClassStats(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	periodID, ok := requiredQuery(c, "periodId")
	if !ok {
		return
	}
	stats := h.bulletins.ClassValidationStats(model.View(), service.CourseOwner(session), c.Param("classId"), periodID)
	response.OK(c, stats, middleware.ExtractMeta(c))
}

// Student godoc
// @Summary Course averages and comments of one student
// @Tags Bulletins
// @Produce json
// @Param studentId path string true "Student ID"
// @Param periodId query string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /bulletins/students/{studentId} [get]
func (h *BulletinHandler) Student(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	periodID, ok := requiredQuery(c, "periodId")
	if !ok {
		return
	}
	bulletin := h.bulletins.StudentCourseAverages(model.View(), service.CourseOwner(session), c.Param("studentId"), periodID, h.clock.now())
	response.OK(c, bulletin, middleware.ExtractMeta(c))
}

// ValidateClass godoc
// @Summary Validate every bulletin comment of a class
// @Description Without confirmation, or when expectedCount differs from the
// @Description pending count, nothing is written and 428 returns the count.
// @Tags Bulletins
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body dto.ValidateRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /bulletins/classes/{classId}/validate [post]
func (h *BulletinHandler) ValidateClass(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	var req dto.ValidateRequest
	if !bindJSON(c, &req) {
		return
	}
	outcome, err := h.bulletins.ValidateClass(c.Request.Context(), model.View(), session, c.Param("classId"), req, h.clock.now())
	respondOutcome(c, outcome, err)
}

// ValidateStudent godoc
// @Summary Validate every bulletin comment of a student
// @Tags Bulletins
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.ValidateRequest true "Confirmation"
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /bulletins/students/{studentId}/validate [post]
func (h *BulletinHandler) ValidateStudent(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	var req dto.ValidateRequest
	if !bindJSON(c, &req) {
		return
	}
	outcome, err := h.bulletins.ValidateStudent(c.Request.Context(), model.View(), session, c.Param("studentId"), req, h.clock.now())
	respondOutcome(c, outcome, err)
}

func respondOutcome(c *gin.Context, outcome dto.ValidationOutcome, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome.Status == dto.ValidationStatusConfirmationRequired {
		msg := fmt.Sprintf("confirm the validation of %d comments", outcome.Count)
		response.ErrorWithData(c, appErrors.Clone(appErrors.ErrConfirmationRequired, msg), outcome)
		return
	}
	response.OK(c, outcome, nil)
}

// SaveComment godoc
// @Summary Create or edit the comment of a student for a course and period
// @Tags Bulletins
// @Accept json
// @Produce json
// @Param payload body dto.SaveCommentRequest true "Comment"
// @Success 200 {object} response.Envelope
// @Router /bulletins/comments [post]
func (h *BulletinHandler) SaveComment(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	var req dto.SaveCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.bulletins.SaveComment(c.Request.Context(), model.View(), session, req, h.clock.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, nil)
}

// ValidateComment godoc
// @Summary Validate a single comment
// @Tags Bulletins
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Router /bulletins/comments/{id}/validate [post]
func (h *BulletinHandler) ValidateComment(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	applied, err := h.bulletins.ValidateComment(c.Request.Context(), model.View(), session, c.Param("id"), h.clock.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"commentId": c.Param("id"), "applied": applied}, nil)
}

// Overview godoc
// @Summary School-wide validation progress for a period
// @Tags Bulletins
// @Produce json
// @Param periodId query string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /bulletins/overview [get]
func (h *BulletinHandler) Overview(c *gin.Context) {
	_, model, ok := requestScope(c)
	if !ok {
		return
	}
	periodID, ok := requiredQuery(c, "periodId")
	if !ok {
		return
	}
	response.OK(c, h.bulletins.PeriodValidationOverview(model.View(), periodID), middleware.ExtractMeta(c))
}
