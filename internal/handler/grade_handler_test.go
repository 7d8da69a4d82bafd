package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

type fakeGradeSrv struct {
	created dto.CreateGradeRequest
	teacher string
	update  dto.UpdateGradeRequest
	err     error
}

func (f *fakeGradeSrv) AddGrade(_ context.Context, _ store.View, session models.Session, req dto.CreateGradeRequest) (dto.GradeResult, error) {
	f.created, f.teacher = req, session.UserID
	if f.err != nil {
		return dto.GradeResult{}, f.err
	}
	return dto.GradeResult{ID: "g9", PeriodID: "p1", Applied: true}, nil
}

func (f *fakeGradeSrv) UpdateScore(_ context.Context, _ store.View, id string, req dto.UpdateGradeRequest) (dto.GradeResult, error) {
	f.update = req
	return dto.GradeResult{ID: id, Applied: true}, f.err
}

func TestCreateGrade(t *testing.T) {
	srv := &fakeGradeSrv{}
	h := NewGradeHandler(srv)
	body := `{"studentId":"s1","subject":"Physique","score":14,"maxScore":20,"type":"exam","date":"2024-10-10"}`
	c, rec := newContext(http.MethodPost, "/grades", body, teacher, testModel())

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 14.0, srv.created.Score)
	assert.Equal(t, "t1", srv.teacher)
	assert.JSONEq(t, `{"id":"g9","periodId":"p1","applied":true}`, string(decode(t, rec).Data))
}

func TestCreateGradeOutsidePeriods(t *testing.T) {
	h := NewGradeHandler(&fakeGradeSrv{err: appErrors.ErrPeriodNotFound})
	c, rec := newContext(http.MethodPost, "/grades", `{"studentId":"s1"}`, teacher, testModel())

	h.Create(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateGrade(t *testing.T) {
	srv := &fakeGradeSrv{}
	h := NewGradeHandler(srv)
	c, rec := newContext(http.MethodPatch, "/grades/g1", `{"score":18}`, teacher, testModel(), gin.Param{Key: "id", Value: "g1"})

	h.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, srv.update.Score) {
		assert.Equal(t, 18.0, *srv.update.Score)
	}
	assert.Nil(t, srv.update.MaxScore)
}
