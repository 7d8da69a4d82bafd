package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/middleware"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/service"
	"github.com/noah-isme/sma-bulletin-core/internal/stats"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	"github.com/noah-isme/sma-bulletin-core/pkg/response"
)

type dashboardService interface {
	Build(ctx context.Context, model *store.ReadModel, session models.Session, childID string, now time.Time) (*dto.Dashboard, bool, error)
	StudentStats(view store.View, studentID string) stats.StudentSummary
	AuthorizeStudent(view store.View, session models.Session, studentID string) error
}

type reportService interface {
	StudentReport(view store.View, studentID, format string, now time.Time) (*service.ExportFile, error)
}

// DashboardHandler serves the role dashboards and per-student figures.
type DashboardHandler struct {
	dashboards dashboardService
	reports    reportService
	clock      Clock
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboards dashboardService, reports reportService, clock Clock) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, reports: reports, clock: clock}
}

// Dashboard godoc
// @Summary Role-aware dashboard of the caller
// @Tags Dashboard
// @Produce json
// @Param childId query string false "Selected child (parents)"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	childID := strings.TrimSpace(c.Query("childId"))
	dashboard, hit, err := h.dashboards.Build(c.Request.Context(), model, session, childID, h.clock.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, dashboard, middleware.ExtractMeta(c))
}

// StudentStats godoc
// @Summary Integer-rounded summary of one student
// @Tags Dashboard
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/stats [get]
func (h *DashboardHandler) StudentStats(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	view := model.View()
	studentID := c.Param("id")
	if err := h.dashboards.AuthorizeStudent(view, session, studentID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.dashboards.StudentStats(view, studentID), middleware.ExtractMeta(c))
}

// StudentReport godoc
// @Summary Download the grade report of one student
// @Tags Dashboard
// @Produce application/pdf,text/csv
// @Param id path string true "Student ID"
// @Param format query string false "pdf (default) or csv"
// @Success 200 {file} file
// @Router /students/{id}/report [get]
func (h *DashboardHandler) StudentReport(c *gin.Context) {
	session, model, ok := requestScope(c)
	if !ok {
		return
	}
	view := model.View()
	studentID := c.Param("id")
	if err := h.dashboards.AuthorizeStudent(view, session, studentID); err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.reports.StudentReport(view, studentID, c.Query("format"), h.clock.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
