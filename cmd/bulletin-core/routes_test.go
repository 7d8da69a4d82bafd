package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/period"
	"github.com/noah-isme/sma-bulletin-core/internal/repository"
	"github.com/noah-isme/sma-bulletin-core/internal/service"
	"github.com/noah-isme/sma-bulletin-core/pkg/config"
)

const seed = `{
  "academicPeriods": [{"id": "p1", "name": "Trimestre 1", "academicYear": "2024-2025", "startDate": "2024-09-01", "endDate": "2024-12-20", "order": 1}],
  "users": [{"id": "d1", "name": "M. Sow", "role": "director"}, {"id": "t1", "name": "Mme Diallo", "role": "teacher"}]
}`

func newTestApp(t *testing.T) *application {
	t.Helper()
	source, err := repository.NewStaticSourceFromJSON([]byte(seed), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	metrics := service.NewMetricsService()
	resolver := period.NewResolver(config.TieBreakFirst)
	registry := service.NewWorkspaceRegistry(ctx, source, resolver, metrics, service.WorkspaceRegistryConfig{ReadyTimeout: time.Second}, nil)
	t.Cleanup(func() {
		registry.Close()
		cancel()
	})

	return &application{
		cfg:        &config.Config{Env: "test", APIPrefix: "/api/v1"},
		logger:     zap.NewNop(),
		metrics:    metrics,
		tokens:     service.NewTokenService("test-secret"),
		registry:   registry,
		periods:    service.NewPeriodService(resolver, repository.OfflineWriter{}, nil),
		grades:     service.NewGradeService(repository.OfflineGradeWriter{}, nil, nil),
		bulletins:  service.NewBulletinService(service.BulletinServiceParams{Comments: repository.OfflineWriter{}, Metrics: metrics}),
		dashboards: service.NewDashboardService(service.DashboardServiceParams{Metrics: metrics}),
		exports:    service.NewExportService(nil),
		probes:     readinessProbes(nil, nil),
	}
}

func bearer(t *testing.T, app *application, session models.Session) string {
	t.Helper()
	token, err := app.tokens.Sign(session, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func call(app http.Handler, method, target, auth string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	app.ServeHTTP(rec, req)
	return rec
}

func TestRouterAccessRules(t *testing.T) {
	app := newTestApp(t)
	r := app.router()
	director := bearer(t, app, models.Session{UserID: "d1", Role: models.RoleDirector})
	teacher := bearer(t, app, models.Session{UserID: "t1", Role: models.RoleTeacher})
	parent := bearer(t, app, models.Session{UserID: "pa1", Role: models.RoleParent})

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/dashboard", "").Code)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/periods/relevant", teacher).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/v1/periods/p1/publish", teacher).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/v1/periods/p1/publish", director).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/bulletins/classes", parent).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/dashboard", parent).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/api/v1/nowhere", director).Code)

	metrics := call(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "/api/v1/periods/:id/publish")
}
