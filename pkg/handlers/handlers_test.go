package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	config "hourly-forecast-api/configs"
	"hourly-forecast-api/pkg/models"
	"hourly-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(cfg config.Config) *gin.Engine {
	history := services.NewHistoryService()
	deps := Dependencies{
		HistoryService:    history,
		ImportService:     services.NewHistoryImportService(),
		ForecastService:   services.NewForecastService(history, services.ForecastOptions{}),
		MonitoringService: services.NewMonitoringService(nil),
	}
	return SetupRouter(&cfg, deps)
}

func linearRecord(date string) models.DailyRecord {
	r := models.DailyRecord{Date: date}
	for h := 0; h < models.HoursPerDay; h++ {
		r.Hours[h] = models.Count(100 + 20*float64(h))
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestForecastFlow(t *testing.T) {
	r := newTestRouter(config.Config{})

	w := doJSON(t, r, http.MethodPut, "/api/v1/history", models.HistoryReplaceRequest{
		Records: []models.DailyRecord{
			linearRecord("2024-05-01"),
			linearRecord("2024-05-02"),
			linearRecord("2024-05-03"),
			linearRecord("2024/05/03"),
			{Date: "invalid"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary models.HistoryImportSummary
	decodeData(t, w, &summary)
	assert.Equal(t, 5, summary.RowsRead)
	assert.Equal(t, 3, summary.RecordsImported)
	assert.Equal(t, 1, summary.RowsSkipped)
	assert.Equal(t, 1, summary.Duplicates)

	w = doJSON(t, r, http.MethodGet, "/api/v1/forecast?date=2024-05-04", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var forecast models.ForecastResult
	decodeData(t, w, &forecast)
	assert.Equal(t, -1, forecast.LastObservedHour)
	assert.Len(t, forecast.Values, models.HoursPerDay)

	w = doJSON(t, r, http.MethodGet, "/api/v1/stats?date=2024-05-03", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"mode":"recent"`)
	var stats models.StatsSummary
	decodeData(t, w, &stats)
	assert.Equal(t, 560.0, stats.TodayTotal)

	w = doJSON(t, r, http.MethodGet, "/api/v1/stats?date=2024-05-03&from=2024-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/history?from=2024-05-02&to=2024-05-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []models.DailyRecord
	decodeData(t, w, &records)
	assert.Len(t, records, 2)
}

func TestBacktestEndpoints(t *testing.T) {
	r := newTestRouter(config.Config{})
	doJSON(t, r, http.MethodPut, "/api/v1/history", models.HistoryReplaceRequest{
		Records: []models.DailyRecord{linearRecord("2024-05-01"), linearRecord("2024-05-02")},
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/backtest", gin.H{"date": "2024-05-02", "cutoff_hour": 12})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result models.BacktestResult
	decodeData(t, w, &result)
	assert.True(t, result.Sufficient)
	assert.Equal(t, 11, result.ScoredHours)

	w = doJSON(t, r, http.MethodPost, "/api/v1/backtest", gin.H{"date": "2024-05-02"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/backtest", gin.H{"date": "2024-06-01", "cutoff_hour": 12})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/backtest/summary?cutoffs=6,x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/backtest/summary?cutoffs=6,12", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary models.BacktestSummary
	decodeData(t, w, &summary)
	assert.Len(t, summary.Cutoffs, 2)
}

func uploadCSV(t *testing.T, r *gin.Engine, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/history/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestImportFile(t *testing.T) {
	r := newTestRouter(config.Config{})

	w := uploadCSV(t, r, "history.csv", "date,0,1,2\n2024-05-01,10,20,30\n2024-05-02,12,24,36\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary models.HistoryImportSummary
	decodeData(t, w, &summary)
	assert.Equal(t, 2, summary.RecordsImported)
	assert.Equal(t, "2024-05-02", summary.LastDate)

	w = uploadCSV(t, r, "history.txt", "date,0\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/admin/health-status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"historyRecords":2`)
	assert.Contains(t, w.Body.String(), `"latestDate":"2024-05-02"`)
}

func TestMaintenanceBlocksUpdates(t *testing.T) {
	r := newTestRouter(config.Config{AdminUsername: "admin", AdminPassword: "pass"})
	t.Cleanup(func() { isMaintenanceMode.Store(false) })
	credentials := AdminCredentials{Username: "admin", Password: "pass"}

	w := doJSON(t, r, http.MethodPost, "/api/v1/admin/maintenance/start", credentials)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = uploadCSV(t, r, "history.csv", "date,0\n2024-05-01,1\n")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/admin/maintenance/stop", credentials)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaintenanceRequiresCredentials(t *testing.T) {
	t.Cleanup(func() { isMaintenanceMode.Store(false) })

	// 管理者アカウント未設定なら誰も切り替えられない
	unconfigured := newTestRouter(config.Config{})
	w := doJSON(t, unconfigured, http.MethodPost, "/api/v1/admin/maintenance/start", AdminCredentials{Username: "", Password: ""})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, isMaintenanceMode.Load())

	r := newTestRouter(config.Config{AdminUsername: "admin", AdminPassword: "pass"})

	w = doJSON(t, r, http.MethodPost, "/api/v1/admin/maintenance/start", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/admin/maintenance/start", AdminCredentials{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, isMaintenanceMode.Load())
}

func TestAPIKeyRequired(t *testing.T) {
	r := newTestRouter(config.Config{APIKey: "secret"})

	w := doJSON(t, r, http.MethodGet, "/api/v1/history", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("X-API-KEY", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// ヘルスチェックは認証不要
	w = doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMonitoringLogs(t *testing.T) {
	r := newTestRouter(config.Config{})
	doJSON(t, r, http.MethodGet, "/api/v1/forecast", nil)

	w := doJSON(t, r, http.MethodGet, "/api/v1/monitoring/logs?period=1h", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data services.DashboardData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Len(t, data.RequestsOverTime, 1)
	assert.Equal(t, 1, data.StatusCodes["4xx Client Error"])

	w = doJSON(t, r, http.MethodGet, "/api/v1/monitoring/logs?period=2w", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePeriodHours(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"", 24, true},
		{"1h", 1, true},
		{"6H", 6, true},
		{"24h", 24, true},
		{"3d", 72, true},
		{"7d", 168, true},
		{"8d", 0, false},
		{"0h", 0, false},
		{"h", 0, false},
		{"24", 0, false},
	}

	for _, tt := range tests {
		got, err := parsePeriodHours(tt.raw)
		if !tt.ok {
			assert.Error(t, err, "period %q", tt.raw)
			continue
		}
		require.NoError(t, err, "period %q", tt.raw)
		assert.Equal(t, tt.want, got, "period %q", tt.raw)
	}
}

func TestParseCutoffs(t *testing.T) {
	cutoffs, err := parseCutoffs(" 6, 12 ,18")
	require.NoError(t, err)
	assert.Equal(t, []int{6, 12, 18}, cutoffs)

	cutoffs, err = parseCutoffs("")
	require.NoError(t, err)
	assert.Nil(t, cutoffs)
}
