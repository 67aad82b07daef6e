package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/api"
	"github.com/mautops/backoffice-gin/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func checkHealth(t *testing.T, hc *api.HealthController) (int, healthBody) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", hc.Check)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthController_Healthy(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	code, body := checkHealth(t, api.NewHealthController(db))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
}

func TestHealthController_NoDatabase(t *testing.T) {
	code, body := checkHealth(t, api.NewHealthController(nil))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "not configured", body.Checks["database"])
}

func TestHealthController_FailingCheck(t *testing.T) {
	hc := api.NewHealthController(nil)
	hc.Register("token_store", func(ctx context.Context) error {
		return errors.New("dial tcp: connection refused")
	})

	code, body := checkHealth(t, hc)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy: dial tcp: connection refused", body.Checks["token_store"])
}
