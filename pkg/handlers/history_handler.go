package handlers

import (
	"log"
	"net/http"

	"hourly-forecast-api/internal/metrics"
	"hourly-forecast-api/pkg/models"
	"hourly-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 10 << 20 // 10MB

// HistoryHandler 履歴データの取り込み・参照のハンドラー
type HistoryHandler struct {
	historyService *services.HistoryService
	importService  *services.HistoryImportService
}

// NewHistoryHandler 新しい履歴ハンドラーを作成
func NewHistoryHandler(historyService *services.HistoryService, importService *services.HistoryImportService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		importService:  importService,
	}
}

// ImportFile CSV/Excelファイルをアップロードして履歴を差し替える
func (h *HistoryHandler) ImportFile(c *gin.Context) {
	if isMaintenanceMode.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "メンテナンス中のため更新できません"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "ファイルの取得に失敗しました。"})
		return
	}
	defer file.Close()

	records, summary, err := h.importService.Parse(fileHeader.Filename, file)
	if err != nil {
		metrics.HistoryImportsTotal.WithLabelValues("error").Inc()
		log.Printf("❌ [取り込み] %s: %v", fileHeader.Filename, err)
		respondError(c, err)
		return
	}

	h.historyService.Replace(records)
	metrics.HistoryImportsTotal.WithLabelValues("success").Inc()
	respondData(c, summary)
}

// ReplaceHistory JSONで受け取ったレコードで履歴を差し替える
func (h *HistoryHandler) ReplaceHistory(c *gin.Context) {
	if isMaintenanceMode.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "メンテナンス中のため更新できません"})
		return
	}

	var request models.HistoryReplaceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "リクエストの解析に失敗しました: " + err.Error(),
		})
		return
	}

	store := h.historyService.Replace(request.Records)
	metrics.HistoryImportsTotal.WithLabelValues("success").Inc()

	// 日付が不正な行はスキップ、同じ日付の2件目以降は重複（後勝ちで統合）
	valid := 0
	for _, r := range request.Records {
		if _, ok := services.NormalizeDate(r.Date); ok {
			valid++
		}
	}
	summary := models.HistoryImportSummary{
		RowsRead:        len(request.Records),
		RecordsImported: store.Len(),
		RowsSkipped:     len(request.Records) - valid,
		Duplicates:      valid - store.Len(),
	}
	if store.Len() > 0 {
		records := store.Records()
		summary.FirstDate = records[0].Date
		summary.LastDate = records[len(records)-1].Date
	}
	respondData(c, summary)
}

// GetHistory 履歴を返す。from/to 指定時はその期間のみ
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	store := h.historyService.Snapshot()
	from, to := c.Query("from"), c.Query("to")

	if from == "" && to == "" {
		respondData(c, store.Records())
		return
	}

	f, okFrom := services.NormalizeDate(from)
	t, okTo := services.NormalizeDate(to)
	if !okFrom || !okTo {
		respondError(c, services.ErrInvalidDate)
		return
	}
	if f > t {
		respondError(c, services.ErrInvalidDateRange)
		return
	}

	records := store.Range(f, t)
	if records == nil {
		records = []models.DailyRecord{}
	}
	respondData(c, records)
}
