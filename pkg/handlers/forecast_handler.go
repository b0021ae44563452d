package handlers

import (
	"log"
	"net/http"

	"hourly-forecast-api/pkg/models"
	"hourly-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// ForecastHandler 時間別予測・統計・バックテストのハンドラー
type ForecastHandler struct {
	forecastService *services.ForecastService
}

// NewForecastHandler 新しい予測ハンドラーを作成
func NewForecastHandler(forecastService *services.ForecastService) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService}
}

// GetForecast 指定日（省略時は最新日）の24時間予測を返す
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	result, err := h.forecastService.Forecast(c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, result)
}

// GetStats 指定日のサマリー指標。from と to を両方指定すると範囲モード
func (h *ForecastHandler) GetStats(c *gin.Context) {
	date := c.Query("date")
	from := c.Query("from")
	to := c.Query("to")

	summary, err := h.forecastService.Stats(date, from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	mode := "recent"
	if from != "" || to != "" {
		mode = "range"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"mode":    mode,
		"data":    summary,
	})
}

// RunBacktest 過去日の後半を隠して予測精度を評価する
func (h *ForecastHandler) RunBacktest(c *gin.Context) {
	var request models.BacktestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "リクエストの解析に失敗しました: " + err.Error(),
		})
		return
	}

	result, err := h.forecastService.Backtest(request.Date, *request.CutoffHour)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Sufficient {
		log.Printf("⚠️ [バックテスト] %s（カットオフ%d時）は評価できる時間がありません", result.Date, result.CutoffHour)
	}
	respondData(c, result)
}

// GetBacktestSummary 履歴全体をカットオフ時刻ごとに再生して平均誤差を返す
func (h *ForecastHandler) GetBacktestSummary(c *gin.Context) {
	cutoffs, err := parseCutoffs(c.Query("cutoffs"))
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := h.forecastService.BacktestSummary(cutoffs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, summary)
}
