package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-core/internal/middleware"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
)

var testNow = time.Date(2024, 10, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() Clock { return func() time.Time { return testNow } }

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func testModel() *store.ReadModel {
	m := store.NewReadModel()
	m.Academics.Periods.Publish([]models.AcademicPeriod{
		{ID: "p1", AcademicYear: "2024-2025", StartDate: "2024-09-01", EndDate: "2024-12-20"},
	})
	m.Users.Users.Publish([]models.User{{ID: "s1", Name: "Awa Ba", Role: models.RoleStudent, ClassID: "c1"}})
	return m
}

// newContext builds a request context as the JWT and Workspace middlewares leave it.
func newContext(method, target, body string, session *models.Session, model *store.ReadModel, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	c.Params = params
	if session != nil {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{
			UserID:      session.UserID,
			Role:        session.Role,
			FullName:    session.Name,
			ClassID:     session.ClassID,
			ClassIDs:    session.ClassIDs,
			ChildrenIDs: session.ChildrenIDs,
		})
	}
	if model != nil {
		c.Set(middleware.ContextModelKey, model)
	}
	return c, rec
}

var (
	teacher  = &models.Session{UserID: "t1", Role: models.RoleTeacher, ClassIDs: []string{"c1"}}
	director = &models.Session{UserID: "d1", Role: models.RoleDirector}
)
