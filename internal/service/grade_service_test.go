package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-core/internal/dto"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

func validGradeRequest() dto.CreateGradeRequest {
	return dto.CreateGradeRequest{
		StudentID: "s2",
		Subject:   "Physique",
		Score:     13,
		MaxScore:  20,
		Type:      "exam",
		Date:      "2024-11-04",
		CourseID:  "k2",
	}
}

func TestAddGradeAttachesPeriodAndStudent(t *testing.T) {
	writer := &fakeGradeWriter{}
	svc := NewGradeService(writer, nil, nil)

	res, err := svc.AddGrade(context.Background(), schoolView(), teacherSession, validGradeRequest())

	require.NoError(t, err)
	assert.Equal(t, dto.GradeResult{ID: "grade1", PeriodID: "p1", Applied: true}, res)
	require.Len(t, writer.created, 1)
	g := writer.created[0]
	assert.Equal(t, "Moussa Fall", g.StudentName)
	assert.Equal(t, "c1", g.ClassID)
	assert.Equal(t, "t1", g.TeacherID)
	assert.Equal(t, "p1", g.PeriodID)
}

func TestAddGradeRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CreateGradeRequest)
		code   string
	}{
		{"score above max", func(r *dto.CreateGradeRequest) { r.Score = 21 }, appErrors.ErrValidation.Code},
		{"negative score", func(r *dto.CreateGradeRequest) { r.Score = -1 }, appErrors.ErrValidation.Code},
		{"unknown type", func(r *dto.CreateGradeRequest) { r.Type = "quiz" }, appErrors.ErrValidation.Code},
		{"missing student", func(r *dto.CreateGradeRequest) { r.StudentID = "" }, appErrors.ErrValidation.Code},
		{"bad date", func(r *dto.CreateGradeRequest) { r.Date = "04/11/2024" }, appErrors.ErrValidation.Code},
		{"between periods", func(r *dto.CreateGradeRequest) { r.Date = "2024-12-28" }, appErrors.ErrPeriodNotFound.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &fakeGradeWriter{}
			req := validGradeRequest()
			tt.mutate(&req)

			_, err := NewGradeService(writer, nil, nil).AddGrade(context.Background(), schoolView(), teacherSession, req)

			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, tt.code), err.Error())
			assert.Empty(t, writer.created)
		})
	}
}

func TestAddGradePropagatesWriteErrors(t *testing.T) {
	writer := &fakeGradeWriter{err: errors.New("unavailable")}

	_, err := NewGradeService(writer, nil, nil).AddGrade(context.Background(), schoolView(), teacherSession, validGradeRequest())

	assert.EqualError(t, err, "unavailable")
}

func TestUpdateScoreChecksMergedValues(t *testing.T) {
	writer := &fakeGradeWriter{}
	svc := NewGradeService(writer, nil, nil)
	view := schoolView()

	_, err := svc.UpdateScore(context.Background(), view, "g1", dto.UpdateGradeRequest{Score: floatPtr(25)})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	res, err := svc.UpdateScore(context.Background(), view, "g1", dto.UpdateGradeRequest{Score: floatPtr(25), MaxScore: floatPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, dto.GradeResult{ID: "g1", Applied: true}, res)
	assert.Equal(t, 40.0, *writer.updates["g1"].MaxScore)
	assert.Nil(t, writer.updates["g1"].Feedback)
}

func TestUpdateScoreOfUnknownGradeIsNoop(t *testing.T) {
	writer := &fakeGradeWriter{}

	res, err := NewGradeService(writer, nil, nil).UpdateScore(context.Background(), schoolView(), "missing", dto.UpdateGradeRequest{Score: floatPtr(10)})

	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Empty(t, writer.updates)
}

func TestGradeWritesWaitForLoadedSnapshots(t *testing.T) {
	writer := &fakeGradeWriter{}
	svc := NewGradeService(writer, nil, nil)
	view := schoolView()
	view.Versions.Periods = 0
	view.Versions.Grades = 0

	_, err := svc.AddGrade(context.Background(), view, teacherSession, validGradeRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotReady.Code))

	_, err = svc.UpdateScore(context.Background(), view, "g1", dto.UpdateGradeRequest{Score: floatPtr(10)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotReady.Code))

	assert.Empty(t, writer.created)
	assert.Empty(t, writer.updates)
}
