package handlers

import (
	"log"

	config "hourly-forecast-api/configs"
	"hourly-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// BuildRouter 設定からサービス群を初期化してルーターを構築する。
// HISTORY_FILE が指定されていれば起動時に読み込む（失敗しても空の履歴で起動する）
func BuildRouter(cfg *config.Config) *gin.Engine {
	loc := cfg.Location()

	historyService := services.NewHistoryService()
	importService := services.NewHistoryImportService()
	preloadHistory(cfg.HistoryFile, importService, historyService)

	forecastService := services.NewForecastService(historyService, services.ForecastOptions{
		GrowthWindowDays:  cfg.GrowthWindowDays,
		StatsWindowDays:   cfg.StatsWindowDays,
		CeilingWindowDays: cfg.CeilingWindowDays,
		Location:          loc,
	})

	return SetupRouter(cfg, Dependencies{
		HistoryService:    historyService,
		ImportService:     importService,
		ForecastService:   forecastService,
		MonitoringService: services.NewMonitoringService(loc),
	})
}

func preloadHistory(path string, importService *services.HistoryImportService, historyService *services.HistoryService) {
	if path == "" {
		return
	}
	records, summary, err := importService.LoadFile(path)
	if err != nil {
		log.Printf("⚠️ [起動] 履歴ファイルを読み込めませんでした: %v", err)
		return
	}
	historyService.Replace(records)
	log.Printf("✅ [起動] %s から %d日分を読み込みました（%s〜%s）",
		path, summary.RecordsImported, summary.FirstDate, summary.LastDate)
}
