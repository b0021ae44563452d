package services

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// maxLogEntries 保持するリクエストログの上限
	maxLogEntries = 10000
	// logTrimTarget 上限を超えたときに古いものから破棄して残す件数
	logTrimTarget = 9000
)

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService はAPIのリクエストログを保持し、集計します。
type MonitoringService struct {
	logs     []LogEntry
	mu       sync.RWMutex
	location *time.Location
	now      func() time.Time
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService(location *time.Location) *MonitoringService {
	if location == nil {
		location = time.UTC
	}
	return &MonitoringService{
		logs:     make([]LogEntry, 0),
		location: location,
		now:      time.Now,
	}
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		kept := make([]LogEntry, logTrimTarget, maxLogEntries+1)
		copy(kept, s.logs[len(s.logs)-logTrimTarget:])
		s.logs = kept
	}
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		// モニタリング自身とメトリクス取得は除外
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/monitoring") || path == "/metrics" {
			return
		}

		s.LogRequest(LogEntry{
			ID:           requestID,
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: s.now().Sub(start),
		})
	}
}

// HourlyRequestCount 1時間ごとのリクエスト数
type HourlyRequestCount struct {
	Time     string `json:"time"`
	Requests int    `json:"requests"`
}

// EndpointStat エンドポイントごとの件数と平均応答時間
type EndpointStat struct {
	Endpoint      string `json:"endpoint"`
	Requests      int    `json:"requests"`
	AvgResponseMs int64  `json:"avg_response_ms"`
	ClientErrors  int    `json:"client_errors"`
	ServerErrors  int    `json:"server_errors"`
}

// DashboardData はダッシュボードに表示するための集計済みデータです。
type DashboardData struct {
	RequestsOverTime []HourlyRequestCount `json:"requestsOverTime"`
	Endpoints        []EndpointStat       `json:"endpoints"`
	StatusCodes      map[string]int       `json:"statusCodes"`
	RecentErrors     []LogEntry           `json:"recentErrors"`
}

// GetDashboardData は指定された期間のログを集計してダッシュボード用データを返します。
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().In(s.location)
	since := now.Add(-time.Duration(periodHours) * time.Hour)

	filtered := make([]LogEntry, 0)
	for _, entry := range s.logs {
		if entry.Timestamp.After(since) {
			filtered = append(filtered, entry)
		}
	}

	// 時間バケットは過去から現在の順
	overTime := make([]HourlyRequestCount, periodHours)
	bucketIdx := make(map[int64]int, periodHours)
	for i := 0; i < periodHours; i++ {
		t := now.Add(-time.Duration(periodHours-1-i) * time.Hour).Truncate(time.Hour)
		overTime[i] = HourlyRequestCount{Time: t.Format("15:00")}
		bucketIdx[t.Unix()] = i
	}

	statusCodes := map[string]int{
		"2xx Success":      0,
		"4xx Client Error": 0,
		"5xx Server Error": 0,
	}
	stats := make(map[string]*EndpointStat)
	totalTime := make(map[string]time.Duration)

	for _, entry := range filtered {
		if i, ok := bucketIdx[entry.Timestamp.In(s.location).Truncate(time.Hour).Unix()]; ok {
			overTime[i].Requests++
		}

		st, ok := stats[entry.Path]
		if !ok {
			st = &EndpointStat{Endpoint: entry.Path}
			stats[entry.Path] = st
		}
		st.Requests++
		totalTime[entry.Path] += entry.ResponseTime

		switch {
		case entry.StatusCode >= 500:
			statusCodes["5xx Server Error"]++
			st.ServerErrors++
		case entry.StatusCode >= 400:
			statusCodes["4xx Client Error"]++
			st.ClientErrors++
		case entry.StatusCode >= 200 && entry.StatusCode < 300:
			statusCodes["2xx Success"]++
		}
	}

	endpoints := make([]EndpointStat, 0, len(stats))
	for path, st := range stats {
		st.AvgResponseMs = totalTime[path].Milliseconds() / int64(st.Requests)
		endpoints = append(endpoints, *st)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Requests > endpoints[j].Requests })

	// 直近のサーバーエラー（新しい順に最大10件）
	recentErrors := make([]LogEntry, 0)
	for i := len(filtered) - 1; i >= 0 && len(recentErrors) < 10; i-- {
		if filtered[i].StatusCode >= 500 {
			recentErrors = append(recentErrors, filtered[i])
		}
	}

	return DashboardData{
		RequestsOverTime: overTime,
		Endpoints:        endpoints,
		StatusCodes:      statusCodes,
		RecentErrors:     recentErrors,
	}
}
