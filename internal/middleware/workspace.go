package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
	"github.com/noah-isme/sma-bulletin-core/pkg/response"
)

// ContextModelKey is the gin context key storing the caller's read model.
const ContextModelKey = "readModel"

type workspaceAcquirer interface {
	AcquireModel(ctx context.Context, session models.Session) (*store.ReadModel, error)
}

// Workspace attaches the caller's synced read model to the request. It must
// run after JWT.
func Workspace(acquirer workspaceAcquirer) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		model, err := acquirer.AcquireModel(c.Request.Context(), session)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "workspace unavailable"))
			return
		}
		c.Set(ContextModelKey, model)
		c.Next()
	}
}

// ModelFromContext returns the read model attached by Workspace.
func ModelFromContext(c *gin.Context) (*store.ReadModel, bool) {
	value, exists := c.Get(ContextModelKey)
	if !exists {
		return nil, false
	}
	model, ok := value.(*store.ReadModel)
	return model, ok && model != nil
}
