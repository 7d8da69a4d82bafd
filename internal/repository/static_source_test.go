package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
)

const seed = `{
  "users": [
    {"id": "s1", "name": "Awa", "role": "student", "classId": "c1", "parentId": "p1"},
    {"id": "s2", "name": "Moussa", "role": "student", "classId": "c2"},
    {"id": "t1", "name": "M. Ndiaye", "role": "teacher", "classIds": ["c1", "c2"]}
  ],
  "grades": [
    {"id": "g1", "studentId": "s1", "subject": "Maths", "score": 15, "maxScore": 20, "periodId": "p-1"},
    {"studentId": "s2", "subject": "Maths", "score": 9, "maxScore": 20, "periodId": "p-0"}
  ]
}`

func listenOnce(t *testing.T, src *StaticSource, filter models.QueryFilter) []store.Document {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var got []store.Document
	done := make(chan error, 1)
	go func() {
		done <- src.Listen(ctx, filter, func(docs []store.Document) error {
			got = docs
			cancel()
			return nil
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listen did not return after cancel")
	}
	return got
}

func TestStaticSourceFilters(t *testing.T) {
	src, err := NewStaticSourceFromJSON([]byte(seed), nil)
	require.NoError(t, err)

	docs := listenOnce(t, src, models.Where(models.CollectionUsers, models.Eq("role", "student")))
	assert.Len(t, docs, 2)

	docs = listenOnce(t, src, models.Where(models.CollectionUsers, models.In("classId", []string{"c2"})))
	require.Len(t, docs, 1)
	assert.Equal(t, "s2", docs[0].ID())

	docs = listenOnce(t, src, models.Where(models.CollectionUsers, models.Contains("classIds", "c1")))
	require.Len(t, docs, 1)
	assert.Equal(t, "t1", docs[0].ID())

	docs = listenOnce(t, src, models.Where(models.CollectionGrades, models.In("periodId", []string{"p-1"})))
	require.Len(t, docs, 1)
	var g models.Grade
	require.NoError(t, docs[0].DataTo(&g))
	assert.Equal(t, 15.0, g.Score)

	all := listenOnce(t, src, models.Where(models.CollectionGrades))
	require.Len(t, all, 2)
	assert.NotEmpty(t, all[1].ID(), "generated id")

	assert.Empty(t, listenOnce(t, src, models.Where(models.CollectionEvents)))
	assert.Empty(t, listenOnce(t, src, models.Where(models.CollectionUsers, models.Condition{Field: "role", Op: ">", Value: "a"})))
}

func TestStaticSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	src, err := NewStaticSource(path, nil)
	require.NoError(t, err)
	assert.Len(t, listenOnce(t, src, models.Where(models.CollectionUsers)), 3)

	_, err = NewStaticSource(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)

	empty, err := NewStaticSource("", nil)
	require.NoError(t, err)
	assert.Empty(t, listenOnce(t, empty, models.Where(models.CollectionUsers)))
}

func TestGradeUpdates(t *testing.T) {
	score := 14.5
	feedback := "Bon travail"
	updates := gradeUpdates(models.GradeUpdate{Score: &score, Feedback: &feedback})
	require.Len(t, updates, 2)
	assert.Equal(t, "score", updates[0].Path)
	assert.Equal(t, 14.5, updates[0].Value)
	assert.Equal(t, "feedback", updates[1].Path)
	assert.Empty(t, gradeUpdates(models.GradeUpdate{}))
}

func TestOfflineWritersAreNoops(t *testing.T) {
	ctx := context.Background()
	id, err := OfflineWriter{}.Create(ctx, models.TeacherComment{Comment: "x"})
	assert.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, OfflineWriter{}.BatchCreate(ctx, []models.TeacherComment{{}}))
	assert.NoError(t, OfflineWriter{}.SetPublished(ctx, "p1", true, "2025-01-01"))
	_, err = OfflineGradeWriter{}.Create(ctx, models.Grade{})
	assert.NoError(t, err)
}
