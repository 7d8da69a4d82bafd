package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

type fakeBulletinSrv struct {
	outcome    dto.ValidationOutcome
	err        error
	lastReq    dto.ValidateRequest
	lastOwner  string
	lastTarget string
	lastNow    time.Time
}

func (f *fakeBulletinSrv) ClassesFor(store.View, models.Session) []models.ClassGroup {
	return []models.ClassGroup{{ID: "c1", Name: "6e A"}}
}

func (f *fakeBulletinSrv) ClassValidationStats(_ store.View, teacherID, classID, periodID string) dto.ClassValidationStats {
	f.lastOwner, f.lastTarget = teacherID, classID
	return dto.ClassValidationStats{ClassID: classID, PeriodID: periodID, Total: 3, Validated: 1}
}

func (f *fakeBulletinSrv) StudentCourseAverages(_ store.View, teacherID, studentID, periodID string, now time.Time) dto.StudentBulletin {
	f.lastOwner, f.lastTarget, f.lastNow = teacherID, studentID, now
	return dto.StudentBulletin{StudentID: studentID, PeriodID: periodID, Courses: []dto.CourseAverage{}}
}

func (f *fakeBulletinSrv) SaveComment(context.Context, store.View, models.Session, dto.SaveCommentRequest, time.Time) (dto.SaveCommentResult, error) {
	return dto.SaveCommentResult{Action: dto.CommentActionCreated, CommentID: "cm9"}, f.err
}

func (f *fakeBulletinSrv) ValidateComment(_ context.Context, _ store.View, _ models.Session, id string, _ time.Time) (bool, error) {
	f.lastTarget = id
	return f.err == nil, f.err
}

func (f *fakeBulletinSrv) ValidateClass(_ context.Context, _ store.View, _ models.Session, classID string, req dto.ValidateRequest, _ time.Time) (dto.ValidationOutcome, error) {
	f.lastTarget, f.lastReq = classID, req
	return f.outcome, f.err
}

func (f *fakeBulletinSrv) ValidateStudent(_ context.Context, _ store.View, _ models.Session, studentID string, req dto.ValidateRequest, _ time.Time) (dto.ValidationOutcome, error) {
	f.lastTarget, f.lastReq = studentID, req
	return f.outcome, f.err
}

func (f *fakeBulletinSrv) PeriodValidationOverview(_ store.View, periodID string) dto.PeriodOverview {
	return dto.PeriodOverview{PeriodID: periodID, Classes: []dto.ClassOverview{}}
}

func TestValidateClassRequiresConfirmation(t *testing.T) {
	srv := &fakeBulletinSrv{outcome: dto.ValidationOutcome{Status: dto.ValidationStatusConfirmationRequired, Count: 4}}
	h := NewBulletinHandler(srv, fixedClock())
	c, rec := newContext(http.MethodPost, "/bulletins/classes/c1/validate", `{"periodId":"p1"}`, teacher, testModel(), gin.Param{Key: "classId", Value: "c1"})

	h.ValidateClass(c)

	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrConfirmationRequired.Code, env.Error.Code)
	var outcome dto.ValidationOutcome
	require.NoError(t, json.Unmarshal(env.Data, &outcome))
	assert.Equal(t, 4, outcome.Count)
	assert.Equal(t, "c1", srv.lastTarget)
	assert.False(t, srv.lastReq.Confirmed)
}

func TestValidateStudentConfirmed(t *testing.T) {
	srv := &fakeBulletinSrv{outcome: dto.ValidationOutcome{Status: dto.ValidationStatusValidated, Count: 2, Created: 1, Updated: 1}}
	h := NewBulletinHandler(srv, fixedClock())
	c, rec := newContext(http.MethodPost, "/bulletins/students/s1/validate", `{"periodId":"p1","confirmed":true,"expectedCount":2}`, teacher, testModel(), gin.Param{Key: "studentId", Value: "s1"})

	h.ValidateStudent(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.ValidateRequest{PeriodID: "p1", Confirmed: true, ExpectedCount: 2}, srv.lastReq)
	assert.Contains(t, string(decode(t, rec).Data), `"status":"validated"`)
}

func TestValidateClassGateError(t *testing.T) {
	srv := &fakeBulletinSrv{err: appErrors.Clone(appErrors.ErrValidationNotOpen, "bulletin validation opens on 2025-01-06")}
	h := NewBulletinHandler(srv, fixedClock())
	c, rec := newContext(http.MethodPost, "/bulletins/classes/c1/validate", `{"periodId":"p2","confirmed":true}`, teacher, testModel(), gin.Param{Key: "classId", Value: "c1"})

	h.ValidateClass(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode(t, rec).Error.Message, "2025-01-06")
}

func TestValidateClassRejectsMalformedBody(t *testing.T) {
	h := NewBulletinHandler(&fakeBulletinSrv{}, fixedClock())
	c, rec := newContext(http.MethodPost, "/bulletins/classes/c1/validate", `{"periodId":`, teacher, testModel(), gin.Param{Key: "classId", Value: "c1"})

	h.ValidateClass(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassStatsScopesTeacherCourses(t *testing.T) {
	srv := &fakeBulletinSrv{}
	h := NewBulletinHandler(srv, fixedClock())

	c, rec := newContext(http.MethodGet, "/bulletins/classes/c1/stats?periodId=p1", "", teacher, testModel(), gin.Param{Key: "classId", Value: "c1"})
	h.ClassStats(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", srv.lastOwner)

	c, _ = newContext(http.MethodGet, "/bulletins/classes/c1/stats?periodId=p1", "", director, testModel(), gin.Param{Key: "classId", Value: "c1"})
	h.ClassStats(c)
	assert.Empty(t, srv.lastOwner)
}

func TestClassStatsRequiresPeriod(t *testing.T) {
	h := NewBulletinHandler(&fakeBulletinSrv{}, fixedClock())
	c, rec := newContext(http.MethodGet, "/bulletins/classes/c1/stats", "", teacher, testModel(), gin.Param{Key: "classId", Value: "c1"})

	h.ClassStats(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Error.Message, "periodId")
}

func TestStudentBulletinUsesClock(t *testing.T) {
	srv := &fakeBulletinSrv{}
	h := NewBulletinHandler(srv, fixedClock())
	c, rec := newContext(http.MethodGet, "/bulletins/students/s1?periodId=p1", "", teacher, testModel(), gin.Param{Key: "studentId", Value: "s1"})

	h.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", srv.lastTarget)
	assert.True(t, testNow.Equal(srv.lastNow))
}

func TestSaveAndValidateComment(t *testing.T) {
	srv := &fakeBulletinSrv{}
	h := NewBulletinHandler(srv, fixedClock())

	c, rec := newContext(http.MethodPost, "/bulletins/comments", `{"studentId":"s1","courseId":"k1","periodId":"p1","comment":"Bon trimestre"}`, teacher, testModel())
	h.SaveComment(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"action":"created"`)

	c, rec = newContext(http.MethodPost, "/bulletins/comments/cm1/validate", "", teacher, testModel(), gin.Param{Key: "id", Value: "cm1"})
	h.ValidateComment(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cm1", srv.lastTarget)
	assert.JSONEq(t, `{"commentId":"cm1","applied":true}`, string(decode(t, rec).Data))
}

func TestBulletinRequiresSessionAndWorkspace(t *testing.T) {
	h := NewBulletinHandler(&fakeBulletinSrv{}, fixedClock())

	c, rec := newContext(http.MethodGet, "/bulletins/classes", "", nil, testModel())
	h.Classes(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodGet, "/bulletins/classes", "", teacher, nil)
	h.Classes(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOverview(t *testing.T) {
	h := NewBulletinHandler(&fakeBulletinSrv{}, fixedClock())
	c, rec := newContext(http.MethodGet, "/bulletins/overview?periodId=p1", "", director, testModel())

	h.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"periodId":"p1"`)
}
