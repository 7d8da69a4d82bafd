package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	"github.com/noah-isme/sma-bulletin-core/pkg/response"
)

type gradeService interface {
	AddGrade(ctx context.Context, view store.View, session models.Session, req dto.CreateGradeRequest) (dto.GradeResult, error)
	UpdateScore(ctx context.Context, view store.View, gradeID string, req dto.UpdateGradeRequest) (dto.GradeResult, error)
}

// GradeHandler records and corrects grades.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Create godoc
// @Summary Record a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.CreateGradeRequest true "Grade"
// @Success 201 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	var req dto.CreateGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.grades.AddGrade(c.Request.Context(), model.View(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// Update godoc
// @Summary Correct a grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body dto.UpdateGradeRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /grades/{id} [patch]
func (h *GradeHandler) Update(c *gin.Context) {
	_, model, ok := requestScope(c)
	if !ok {
		return
	}
	var req dto.UpdateGradeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.grades.UpdateScore(c.Request.Context(), model.View(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, nil)
}
