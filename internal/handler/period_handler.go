package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/middleware"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	"github.com/noah-isme/sma-bulletin-core/pkg/response"
)

type periodService interface {
	Relevant(view store.View, now time.Time) dto.RelevantPeriods
	Publish(ctx context.Context, view store.View, periodID string, now time.Time) (bool, error)
	Unpublish(ctx context.Context, view store.View, periodID string) (bool, error)
}

// PeriodHandler exposes the academic period endpoints.
type PeriodHandler struct {
	periods periodService
	clock   Clock
}

// NewPeriodHandler constructs the handler.
func NewPeriodHandler(periods periodService, clock Clock) *PeriodHandler {
	return &PeriodHandler{periods: periods, clock: clock}
}

// Relevant godoc
// @Summary Periods of the current academic year
// @Tags Periods
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /periods/relevant [get]
func (h *PeriodHandler) Relevant(c *gin.Context) {
	_, model, ok := requestScope(c)
	if !ok {
		return
	}
	response.OK(c, h.periods.Relevant(model.View(), h.clock.now()), middleware.ExtractMeta(c))
}

// Publish godoc
// @Summary Publish the bulletins of a period
// @Tags Periods
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /periods/{id}/publish [post]
func (h *PeriodHandler) Publish(c *gin.Context) {
	_, model, ok := requestScope(c)
	if !ok {
		return
	}
	applied, err := h.periods.Publish(c.Request.Context(), model.View(), c.Param("id"), h.clock.now())
	h.respond(c, applied, err)
}

// Unpublish godoc
// @Summary Withdraw the bulletins of a period
// @Tags Periods
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /periods/{id}/unpublish [post]
func (h *PeriodHandler) Unpublish(c *gin.Context) {
	_, model, ok := requestScope(c)
	if !ok {
		return
	}
	applied, err := h.periods.Unpublish(c.Request.Context(), model.View(), c.Param("id"))
	h.respond(c, applied, err)
}

func (h *PeriodHandler) respond(c *gin.Context, applied bool, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"periodId": c.Param("id"), "applied": applied}, nil)
}
