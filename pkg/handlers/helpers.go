package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"hourly-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// respondError サービスのエラーをHTTPステータスに対応付けて返す
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrRecordNotFound), errors.Is(err, services.ErrEmptyHistory):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrInvalidDateRange),
		errors.Is(err, services.ErrInvalidCutoff),
		errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, services.ErrNoDateColumn),
		errors.Is(err, services.ErrNoHourColumns):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// respondData 成功レスポンス
func respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// parseCutoffs "6,12,18" をカットオフ時刻の配列に変換
func parseCutoffs(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var cutoffs []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, services.ErrInvalidCutoff
		}
		cutoffs = append(cutoffs, n)
	}
	return cutoffs, nil
}
