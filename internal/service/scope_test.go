package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
)

func TestScopeForStudent(t *testing.T) {
	session := models.Session{UserID: "s1", Role: models.RoleStudent, ClassID: "c1"}

	scope := filtersByCollection(ScopeForRole(session, []string{"p1", "p2"}))

	assert.Equal(t, []models.QueryFilter{
		models.Where(models.CollectionGrades, models.Eq("studentId", "s1"), models.In("periodId", []string{"p1", "p2"})),
	}, scope[models.CollectionGrades])
	assert.Equal(t, []models.QueryFilter{
		models.Where(models.CollectionHomeworks, models.Eq("classId", "c1")),
	}, scope[models.CollectionHomeworks])
	assert.Len(t, scope[models.CollectionUsers], 2)
	assert.Len(t, scope[models.CollectionMessages], 2)
	assert.NotContains(t, scope, models.CollectionPeriods)
}

func TestScopeForParentCoversEveryChild(t *testing.T) {
	session := models.Session{UserID: "pa1", Role: models.RoleParent, ChildrenIDs: []string{"s1", "s2"}, ClassIDs: []string{"c1"}}

	scope := filtersByCollection(ScopeForRole(session, []string{"p1"}))

	assert.Len(t, scope[models.CollectionAttendance], 2)
	assert.Len(t, scope[models.CollectionGrades], 2)
	assert.Len(t, scope[models.CollectionComments], 2)
	assert.Equal(t, []models.QueryFilter{
		models.Where(models.CollectionEvents, models.In("classId", []string{"c1"})),
	}, scope[models.CollectionEvents])
}

func TestScopeForTeacherChunksClasses(t *testing.T) {
	classes := make([]string, 65)
	for i := range classes {
		classes[i] = fmt.Sprintf("c%d", i)
	}
	session := models.Session{UserID: "t1", Role: models.RoleTeacher, ClassIDs: classes}

	scope := filtersByCollection(ScopeForRole(session, []string{"p1"}))

	users := scope[models.CollectionUsers]
	require.Len(t, users, 5)
	assert.Len(t, users[0].Conditions[0].Value, 30)
	assert.Len(t, users[2].Conditions[0].Value, 5)
	assert.Equal(t, []models.QueryFilter{
		models.Where(models.CollectionComments, models.Eq("teacherId", "t1"), models.In("periodId", []string{"p1"})),
	}, scope[models.CollectionComments])
	assert.Equal(t, []models.QueryFilter{models.Where(models.CollectionAttendance)}, scope[models.CollectionAttendance])
}

func TestScopeWithoutRelevantPeriodsSkipsGrades(t *testing.T) {
	scope := filtersByCollection(ScopeForRole(directorSession, nil))

	assert.NotContains(t, scope, models.CollectionGrades)
	assert.NotContains(t, scope, models.CollectionComments)
	assert.Equal(t, []models.QueryFilter{models.Where(models.CollectionUsers)}, scope[models.CollectionUsers])
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk(nil, 30))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunk([]string{"a", "b", "c"}, 2))
}
