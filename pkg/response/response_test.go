package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/parkops/parkops-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/approve/inventory/req-1", nil)
	return c, w
}

func TestProcessedSetsLocationForAlreadyProcessed(t *testing.T) {
	c, w := newContext()

	Processed(c, appErrors.Clone(appErrors.ErrAlreadyProcessed, "inventory request already APPROVED"), "/api/v1/approvals")

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "/api/v1/approvals", w.Header().Get("Location"))
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "ALREADY_PROCESSED", body.Error.Code)
}

func TestProcessedLeavesOtherErrorsAlone(t *testing.T) {
	c, w := newContext()

	Processed(c, appErrors.ErrForbidden, "/api/v1/approvals")

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
}

func TestErrorMarksRetryableStoreFailures(t *testing.T) {
	c, w := newContext()

	Error(c, appErrors.Unavailable(assert.AnError))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), `"retryable":true`)
}

func TestJSONDropsEmptyMeta(t *testing.T) {
	c, w := newContext()

	JSON(c, http.StatusOK, gin.H{"ok": true}, nil, map[string]interface{}{})

	assert.NotContains(t, w.Body.String(), "meta")
}
