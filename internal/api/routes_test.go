package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/api"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/mautops/backoffice-gin/internal/config"
	"github.com/mautops/backoffice-gin/internal/container"
	"github.com/mautops/backoffice-gin/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code       int                 `json:"code"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Pagination *api.PaginationInfo `json:"pagination"`
}

// testServer 基于内存 SQLite 和内存令牌存储的完整路由
type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	tokens := auth.NewMemoryTokenStore(auth.NewSigner("test-secret", time.Hour))

	ctr := container.Build(cfg, db, tokens)
	t.Cleanup(func() { _ = ctr.Close() })

	return &testServer{t: t, router: api.SetupRoutes(cfg, ctr.Controllers(), ctr.TokenStore())}
}

func (s *testServer) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

// mustDo 请求并断言状态码,返回解码后的 data
func (s *testServer) mustDo(method, path string, body interface{}, status int, out interface{}) envelope {
	s.t.Helper()
	w, env := s.do(method, path, body)
	require.Equal(s.t, status, w.Code, w.Body.String())
	if out != nil {
		require.NoError(s.t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (s *testServer) login(username, password string) {
	s.t.Helper()
	s.mustDo(http.MethodPost, "/api/v1/auth/register", gin.H{"username": username, "password": password}, http.StatusCreated, nil)

	var token auth.Token
	s.mustDo(http.MethodPost, "/api/v1/auth/login", gin.H{"username": username, "password": password}, http.StatusOK, &token)
	require.NotEmpty(s.t, token.Value)
	s.token = token.Value
}

type idOnly struct {
	ID string `json:"id"`
}

func TestRoutes_Public(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/currents", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found", env.Message)
}

func TestRoutes_Auth(t *testing.T) {
	s := newTestServer(t)
	s.login("Alice", "password123")

	// 用户名统一为小写,重复注册冲突
	w, _ := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{"username": "alice", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"username": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid username or password", env.Message)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/register", gin.H{"username": "bob", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.mustDo(http.MethodPost, "/api/v1/auth/logout", nil, http.StatusOK, nil)

	w, _ = s.do(http.MethodGet, "/api/v1/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutes_CurrentActivities(t *testing.T) {
	s := newTestServer(t)
	s.login("alice", "password123")

	var current idOnly
	s.mustDo(http.MethodPost, "/api/v1/currents", gin.H{"name": "ACME Ltd"}, http.StatusCreated, &current)

	w, _ := s.do(http.MethodPost, "/api/v1/currents", gin.H{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, balance := range []float64{100, -30, 50} {
		s.mustDo(http.MethodPost, "/api/v1/currents/"+current.ID+"/activities", gin.H{
			"date":    day.AddDate(0, 0, i),
			"balance": balance,
		}, http.StatusCreated, nil)
	}

	var activities []struct {
		Balance           float64 `json:"balance"`
		CumulativeBalance float64 `json:"cumulative_balance"`
	}
	env := s.mustDo(http.MethodGet, "/api/v1/currents/"+current.ID+"/activities?page=2&page_size=2", nil, http.StatusOK, &activities)
	require.Len(t, activities, 1)
	assert.Equal(t, 120.0, activities[0].CumulativeBalance)
	assert.Equal(t, int64(3), env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.TotalPage)

	var balances []struct {
		CurrentID string  `json:"current_id"`
		Balance   float64 `json:"balance"`
	}
	s.mustDo(http.MethodGet, "/api/v1/currents/balances", nil, http.StatusOK, &balances)
	require.Len(t, balances, 1)
	assert.Equal(t, 120.0, balances[0].Balance)

	w, _ = s.do(http.MethodDelete, "/api/v1/currents/"+current.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/activities/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_OrderTaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.login("alice", "password123")

	var current, stock idOnly
	s.mustDo(http.MethodPost, "/api/v1/currents", gin.H{"name": "ACME Ltd"}, http.StatusCreated, &current)
	s.mustDo(http.MethodPost, "/api/v1/stocks", gin.H{"name": "Steel plate"}, http.StatusCreated, &stock)

	var order struct {
		ID       string  `json:"id"`
		TotalFee float64 `json:"total_fee"`
	}
	s.mustDo(http.MethodPost, "/api/v1/orders", gin.H{
		"current_id": current.ID,
		"total_fee":  999,
		"items": []gin.H{
			{"stock_id": stock.ID, "amount": 2, "price": 100, "tax_rate": 0.18},
			{"stock_id": stock.ID, "amount": 1, "price": 10},
		},
	}, http.StatusCreated, &order)
	assert.InDelta(t, 246.0, order.TotalFee, 1e-9)

	w, _ := s.do(http.MethodPost, "/api/v1/orders", gin.H{
		"current_id": current.ID,
		"items":      []gin.H{{"stock_id": "missing", "amount": 1, "price": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var task struct {
		ID            string  `json:"id"`
		State         string  `json:"state"`
		Closed        bool    `json:"closed"`
		CurrentStepID *string `json:"current_step_id"`
		Steps         []struct {
			ID  string `json:"id"`
			Row int    `json:"row"`
		} `json:"steps"`
	}
	s.mustDo(http.MethodPost, "/api/v1/tasks", gin.H{
		"order_id": order.ID,
		"assigned_steps": []gin.H{
			{"name": "Ship", "responsible_username": "alice", "row": 2},
			{"name": "Cut", "responsible_username": "alice", "row": 1},
		},
	}, http.StatusCreated, &task)
	require.Len(t, task.Steps, 2)
	assert.Equal(t, "active", task.State)
	require.NotNil(t, task.CurrentStepID)
	assert.Equal(t, task.Steps[0].ID, *task.CurrentStepID)

	w, _ = s.do(http.MethodPost, "/api/v1/tasks", gin.H{
		"order_id":       order.ID,
		"assigned_steps": []gin.H{{"name": "Again", "responsible_username": "alice"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	env := s.mustDo(http.MethodGet, "/api/v1/tasks", nil, http.StatusOK, nil)
	assert.Equal(t, int64(1), env.Pagination.Total)

	w, _ = s.do(http.MethodGet, "/api/v1/tasks?state=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	taskPath := "/api/v1/tasks/" + task.ID
	s.mustDo(http.MethodPost, taskPath+"/complete-step", nil, http.StatusOK, &task)
	require.NotNil(t, task.CurrentStepID)
	assert.Equal(t, task.Steps[1].ID, *task.CurrentStepID)

	s.mustDo(http.MethodPost, taskPath+"/complete-step", gin.H{"description": "shipped"}, http.StatusOK, &task)
	assert.Equal(t, "completed", task.State)
	assert.True(t, task.Closed)
	assert.Nil(t, task.CurrentStepID)

	w, _ = s.do(http.MethodPost, taskPath+"/complete-step", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	s.mustDo(http.MethodPost, taskPath+"/reopen", nil, http.StatusOK, &task)
	assert.Equal(t, "active", task.State)
	assert.Equal(t, task.Steps[0].ID, *task.CurrentStepID)

	w, _ = s.do(http.MethodDelete, "/api/v1/orders/"+order.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var dashboard struct {
		ActiveTaskCount int64 `json:"active_task_count"`
	}
	s.mustDo(http.MethodGet, "/api/v1/dashboard", nil, http.StatusOK, &dashboard)
	assert.Equal(t, int64(1), dashboard.ActiveTaskCount)

	var logs []struct {
		Action string `json:"action"`
	}
	s.mustDo(http.MethodGet, "/api/v1/audit-logs?resource_type=task&resource_id="+task.ID, nil, http.StatusOK, &logs)
	assert.NotEmpty(t, logs)

	s.mustDo(http.MethodDelete, taskPath, nil, http.StatusOK, nil)
	w, _ = s.do(http.MethodGet, taskPath, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_OrderItems(t *testing.T) {
	s := newTestServer(t)
	s.login("alice", "password123")

	var current, stock idOnly
	s.mustDo(http.MethodPost, "/api/v1/currents", gin.H{"name": "ACME Ltd"}, http.StatusCreated, &current)
	s.mustDo(http.MethodPost, "/api/v1/stocks", gin.H{"name": "Bolt"}, http.StatusCreated, &stock)

	var order idOnly
	s.mustDo(http.MethodPost, "/api/v1/orders", gin.H{"current_id": current.ID}, http.StatusCreated, &order)

	var added struct {
		Item struct {
			ID  string `json:"id"`
			Row int    `json:"row"`
		} `json:"item"`
		TotalFee float64 `json:"total_fee"`
	}
	s.mustDo(http.MethodPost, "/api/v1/orders/"+order.ID+"/items", gin.H{
		"stock_id": stock.ID, "amount": 3, "price": 5,
	}, http.StatusCreated, &added)
	assert.Equal(t, 1, added.Item.Row)
	assert.InDelta(t, 15.0, added.TotalFee, 1e-9)

	var updated struct {
		TotalFee float64 `json:"total_fee"`
	}
	s.mustDo(http.MethodPut, "/api/v1/order-items/"+added.Item.ID, gin.H{
		"stock_id": stock.ID, "amount": 4, "price": 5,
	}, http.StatusOK, &updated)
	assert.InDelta(t, 20.0, updated.TotalFee, 1e-9)

	s.mustDo(http.MethodDelete, "/api/v1/order-items/"+added.Item.ID, nil, http.StatusOK, &updated)
	assert.InDelta(t, 0.0, updated.TotalFee, 1e-9)
}
