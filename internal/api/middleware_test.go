package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/api"
	"github.com/mautops/backoffice-gin/internal/config"
	"github.com/mautops/backoffice-gin/internal/service"
	"github.com/stretchr/testify/assert"
)

func newRouter(middleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware...)
	router.GET("/test", func(c *gin.Context) {
		api.Success(c, gin.H{"message": "success"})
	})
	return router
}

func serve(router *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestCORSMiddleware_AllowedOrigin 测试允许的源
func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	router := newRouter(api.CORSMiddleware(config.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000", "https://example.com"},
	}))

	w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "http://localhost:3000"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

// TestCORSMiddleware_DisallowedOrigin 测试不在允许列表中的源
func TestCORSMiddleware_DisallowedOrigin(t *testing.T) {
	router := newRouter(api.CORSMiddleware(config.CORSConfig{
		AllowedOrigins: []string{"https://example.com"},
	}))

	w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "https://evil.example"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// TestCORSMiddleware_Wildcard 通配符不下发 credentials
func TestCORSMiddleware_Wildcard(t *testing.T) {
	router := newRouter(api.CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"*"}}))

	w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "https://any.example"})

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

// TestCORSMiddleware_OptionsRequest 测试预检请求
func TestCORSMiddleware_OptionsRequest(t *testing.T) {
	router := newRouter(api.CORSMiddleware(config.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
	}))

	w := serve(router, http.MethodOptions, "/test", map[string]string{"Origin": "http://localhost:3000"})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Token")
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestRateLimitMiddleware(t *testing.T) {
	router := newRouter(api.RateLimitMiddleware(config.RateLimitConfig{RPS: 1, Burst: 2}))

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/test", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/test", nil).Code)

	w := serve(router, http.MethodGet, "/test", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	router := newRouter(api.RateLimitMiddleware(config.RateLimitConfig{}))

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/test", nil).Code)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w := serve(newRouter(api.SecurityHeadersMiddleware(false)), http.MethodGet, "/test", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = serve(newRouter(api.SecurityHeadersMiddleware(true)), http.MethodGet, "/test", nil)
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.RequestIDMiddleware())

	var fromContext string
	router.GET("/test", func(c *gin.Context) {
		fromContext = service.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("reuses client id", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", map[string]string{"X-Request-ID": "req-123"})
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "req-123", fromContext)
	})

	t.Run("generates id", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", nil)
		assert.Len(t, w.Header().Get("X-Request-ID"), 36)
		assert.Equal(t, w.Header().Get("X-Request-ID"), fromContext)
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/test", map[string]string{"X-Request-ID": strings.Repeat("x", 65)})
		assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	})
}
