package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/service"
	"github.com/noah-isme/sma-bulletin-core/internal/stats"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

type fakeDashboardSrv struct {
	hit       bool
	authErr   error
	lastChild string
	lastModel *store.ReadModel
}

func (f *fakeDashboardSrv) Build(_ context.Context, model *store.ReadModel, session models.Session, childID string, now time.Time) (*dto.Dashboard, bool, error) {
	f.lastChild, f.lastModel = childID, model
	return &dto.Dashboard{Role: session.Role, Date: models.DateKey(now)}, f.hit, nil
}

func (f *fakeDashboardSrv) StudentStats(_ store.View, studentID string) stats.StudentSummary {
	return stats.StudentSummary{AverageGrade: 71, AttendanceRate: 100, TotalGrades: 4}
}

func (f *fakeDashboardSrv) AuthorizeStudent(store.View, models.Session, string) error {
	return f.authErr
}

type fakeReportSrv struct {
	format string
}

func (f *fakeReportSrv) StudentReport(_ store.View, studentID, format string, _ time.Time) (*service.ExportFile, error) {
	f.format = format
	return &service.ExportFile{Filename: "bulletin_awa_ba_2024-10-15.csv", ContentType: "text/csv", Content: []byte("Bulletin de notes\n")}, nil
}

func TestDashboardReportsCacheHit(t *testing.T) {
	srv := &fakeDashboardSrv{hit: true}
	model := testModel()
	h := NewDashboardHandler(srv, &fakeReportSrv{}, fixedClock())
	parent := &models.Session{UserID: "pa1", Role: models.RoleParent}
	c, rec := newContext(http.MethodGet, "/dashboard?childId=s1", "", parent, model)

	h.Dashboard(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Meta["cacheHit"])
	assert.Contains(t, string(env.Data), `"date":"2024-10-15"`)
	assert.Equal(t, "s1", srv.lastChild)
	assert.Same(t, model, srv.lastModel)
}

func TestStudentStatsForbidden(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{authErr: appErrors.ErrForbidden}, &fakeReportSrv{}, fixedClock())
	c, rec := newContext(http.MethodGet, "/students/s2/stats", "", &models.Session{UserID: "s1", Role: models.RoleStudent}, testModel(), gin.Param{Key: "id", Value: "s2"})

	h.StudentStats(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStudentStats(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{}, &fakeReportSrv{}, fixedClock())
	c, rec := newContext(http.MethodGet, "/students/s1/stats", "", teacher, testModel(), gin.Param{Key: "id", Value: "s1"})

	h.StudentStats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"avgGrade":71,"attendanceRate":100,"totalGrades":4,"subjectPerformance":null}`, string(decode(t, rec).Data))
}

func TestStudentReportDownload(t *testing.T) {
	reports := &fakeReportSrv{}
	h := NewDashboardHandler(&fakeDashboardSrv{}, reports, fixedClock())
	c, rec := newContext(http.MethodGet, "/students/s1/report?format=csv", "", teacher, testModel(), gin.Param{Key: "id", Value: "s1"})

	h.StudentReport(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", reports.format)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="bulletin_awa_ba_2024-10-15.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Bulletin de notes\n", rec.Body.String())
}
