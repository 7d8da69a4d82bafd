package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/period"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
)

// PeriodWriter toggles the publication of a period.
type PeriodWriter interface {
	SetPublished(ctx context.Context, id string, published bool, publishDate string) error
}

// PeriodService resolves the current academic year and publishes bulletins.
type PeriodService struct {
	resolver *period.Resolver
	writer   PeriodWriter
	logger   *zap.Logger
}

// NewPeriodService constructs the service.
func NewPeriodService(resolver *period.Resolver, writer PeriodWriter, logger *zap.Logger) *PeriodService {
	if resolver == nil {
		resolver = period.NewResolver("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{resolver: resolver, writer: writer, logger: logger}
}

// Relevant lists the periods of the academic year resolved at now.
func (s *PeriodService) Relevant(view store.View, now time.Time) dto.RelevantPeriods {
	result := dto.RelevantPeriods{PeriodIDs: []string{}, Periods: []models.AcademicPeriod{}}
	target, ok := s.resolver.Target(view.Periods, now)
	if !ok {
		return result
	}
	result.AcademicYear = target.AcademicYear
	result.PeriodIDs = s.resolver.RelevantPeriodIDs(view.Periods, now)
	for _, p := range view.Periods {
		if p.AcademicYear == target.AcademicYear {
			result.Periods = append(result.Periods, p)
		}
	}
	if current, ok := period.ForDate(view.Periods, now); ok {
		result.Current = &current
	}
	return result
}

// Publish marks the period's bulletins as published today. Unknown periods are a no-op.
func (s *PeriodService) Publish(ctx context.Context, view store.View, periodID string, now time.Time) (bool, error) {
	return s.setPublished(ctx, view, periodID, true, models.DateKey(now))
}

// Unpublish withdraws the period's bulletins.
func (s *PeriodService) Unpublish(ctx context.Context, view store.View, periodID string) (bool, error) {
	return s.setPublished(ctx, view, periodID, false, "")
}

func (s *PeriodService) setPublished(ctx context.Context, view store.View, periodID string, published bool, date string) (bool, error) {
	if err := requireLoaded(view, models.CollectionPeriods); err != nil {
		return false, err
	}
	if _, ok := view.Period(periodID); !ok {
		return false, nil
	}
	if err := s.writer.SetPublished(ctx, periodID, published, date); err != nil {
		return false, err
	}
	s.logger.Info("period publication changed", zap.String("period_id", periodID), zap.Bool("published", published))
	return true, nil
}
