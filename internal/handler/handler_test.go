package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"slotsystem/internal/config"
	"slotsystem/internal/model"
	"slotsystem/internal/pricing"
	"slotsystem/pkg/response"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "handler_test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Account{},
		&model.CapacityAccount{},
		&model.UnlockRecord{},
		&model.PointTransaction{},
		&model.OutboxMessage{},
	))

	cfg := &config.Config{
		Business: config.BusinessConfig{UnlockMaxRetries: 3, MaxRetryCount: 3},
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{CapacityUnlocked: "capacity-unlocked", PointsGranted: "points-granted"},
		},
	}

	// redis 传 nil：测试环境退化为纯乐观锁
	return SetupRouter(db, nil, cfg, pricing.Default())
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *response.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func TestUnlockFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	// 发点
	resp := doJSON(t, router, http.MethodPost, "/api/v1/points/grant",
		map[string]interface{}{"account_id": 42, "amount": 250})
	assert.Equal(t, response.CodeSuccess, resp.Code)

	// 初始状态：partner 9 格，下一档 100 点
	resp = doJSON(t, router, http.MethodGet, "/api/v1/capacity/state?account_id=42&kind=PARTNER", nil)
	require.Equal(t, response.CodeSuccess, resp.Code)
	state := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(9), state["current_max"])
	assert.Equal(t, float64(100), state["next_tier_cost"])

	// 第一次解锁成功
	resp = doJSON(t, router, http.MethodPost, "/api/v1/capacity/unlock",
		map[string]interface{}{"account_id": 42, "kind": "PARTNER"})
	require.Equal(t, response.CodeSuccess, resp.Code)
	result := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(10), result["new_max"])
	assert.Equal(t, float64(100), result["cost_paid"])
	assert.Equal(t, float64(150), result["new_balance"])

	// 第二次余额不够
	resp = doJSON(t, router, http.MethodPost, "/api/v1/capacity/unlock",
		map[string]interface{}{"account_id": 42, "kind": "PARTNER"})
	assert.Equal(t, response.CodeInsufficientPoints, resp.Code)

	// 解锁历史一条
	resp = doJSON(t, router, http.MethodGet, "/api/v1/capacity/records?account_id=42&kind=PARTNER", nil)
	require.Equal(t, response.CodeSuccess, resp.Code)
	records := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), records["total"])
}

func TestPreviewOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/capacity/preview?account_id=7&kind=USER&count=2", nil)
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	tiers := data["tiers"].([]interface{})
	require.Len(t, tiers, 2)
	first := tiers[0].(map[string]interface{})
	assert.Equal(t, float64(2), first["tier"])
	assert.Equal(t, float64(50), first["cost"])
}

func TestBadParams(t *testing.T) {
	router := newTestRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/capacity/state?account_id=abc&kind=USER", nil)
	assert.Equal(t, response.CodeParamError, resp.Code)

	resp = doJSON(t, router, http.MethodGet, "/api/v1/capacity/state?account_id=1&kind=ADMIN", nil)
	assert.Equal(t, response.CodeUnknownKind, resp.Code)

	resp = doJSON(t, router, http.MethodPost, "/api/v1/capacity/unlock",
		map[string]interface{}{"account_id": 1, "kind": "ADMIN"})
	assert.Equal(t, response.CodeUnknownKind, resp.Code)
}
