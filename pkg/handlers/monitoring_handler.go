package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hourly-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

const (
	defaultPeriodHours = 24
	maxPeriodHours     = 24 * 7
)

var errInvalidPeriod = errors.New("period は 1h〜168h または 1d〜7d で指定してください")

// MonitoringHandler はリクエストログの集計を返すハンドラです。
type MonitoringHandler struct {
	service *services.MonitoringService
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{service: service}
}

// GetLogs は指定期間（既定24h）のダッシュボード集計を返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	hours, err := parsePeriodHours(c.Query("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.service.GetDashboardData(hours))
}

// parsePeriodHours "6h" / "3d" を時間数に変換（空なら24時間、上限7日）
func parsePeriodHours(raw string) (int, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return defaultPeriodHours, nil
	}

	unit := 1
	switch {
	case strings.HasSuffix(raw, "h"):
		raw = strings.TrimSuffix(raw, "h")
	case strings.HasSuffix(raw, "d"):
		raw = strings.TrimSuffix(raw, "d")
		unit = 24
	default:
		return 0, errInvalidPeriod
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n*unit > maxPeriodHours {
		return 0, errInvalidPeriod
	}
	return n * unit, nil
}
