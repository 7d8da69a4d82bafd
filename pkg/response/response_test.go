package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-bulletin-core/pkg/errors"
)

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrValidationNotOpen, "validation opens on 2025-01-06"))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_NOT_OPEN", body.Error.Code)
	assert.Equal(t, "validation opens on 2025-01-06", body.Error.Message)
	assert.True(t, c.IsAborted())
}

func TestUnknownErrorBecomesInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestOKCarriesMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	OK(c, gin.H{"total": 3}, map[string]interface{}{"cache_hit": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"total":3},"meta":{"cache_hit":true}}`, w.Body.String())
}

func TestErrorWithDataKeepsPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorWithData(c, appErrors.ErrConfirmationRequired, gin.H{"count": 4})

	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	var body struct {
		Data  map[string]int  `json:"data"`
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Data["count"])
	assert.Equal(t, "CONFIRMATION_REQUIRED", body.Error.Code)
}

func TestLoadingWorkspaceIsUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrNotReady, "workspace is still loading, retry shortly"))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "WORKSPACE_NOT_READY")
}
