package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	config "hourly-forecast-api/configs"
	"hourly-forecast-api/pkg/handlers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// テスト環境の設定
	gin.SetMode(gin.TestMode)

	// .envファイルを読み込み（テスト環境では存在しない場合もある）
	_ = godotenv.Load("../../.env")

	os.Exit(m.Run())
}

func TestBuildRouterWithoutHistory(t *testing.T) {
	cfg := &config.Config{Port: "8080", Timezone: "UTC"}
	r := handlers.BuildRouter(cfg)
	require.NotNil(t, r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 履歴が空なら最新日の予測はできない
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/forecast", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuildRouterPreloadsHistoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	csv := "date,0,1,2\n2024-05-01,10,20,30\n2024-05-02,12,22,35\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	cfg := &config.Config{Port: "8080", Timezone: "UTC", HistoryFile: path}
	r := handlers.BuildRouter(cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/forecast?date=2024-05-02", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"last_observed_hour":2`)
}

func TestBuildRouterMissingHistoryFile(t *testing.T) {
	cfg := &config.Config{Port: "8080", Timezone: "UTC", HistoryFile: "does-not-exist.csv"}
	r := handlers.BuildRouter(cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
