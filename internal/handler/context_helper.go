package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-core/internal/middleware"
	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
	"github.com/noah-isme/sma-bulletin-core/pkg/response"
)

// Clock returns the current time. Handlers take it so tests can pin dates.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// requestScope returns the caller and its read model, responding with an
// error and false when either is missing.
func requestScope(c *gin.Context) (models.Session, *store.ReadModel, bool) {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Session{}, nil, false
	}
	model, ok := middleware.ModelFromContext(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "workspace not attached"))
		return models.Session{}, nil, false
	}
	return session, model, true
}

func requiredQuery(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" is required"))
		return "", false
	}
	return value, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return false
	}
	return true
}
