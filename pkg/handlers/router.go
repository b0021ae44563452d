package handlers

import (
	"log"
	"net/http"

	config "hourly-forecast-api/configs"
	"hourly-forecast-api/internal/metrics"
	"hourly-forecast-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies ルーターが使うサービス群
type Dependencies struct {
	HistoryService    *services.HistoryService
	ImportService     *services.HistoryImportService
	ForecastService   *services.ForecastService
	MonitoringService *services.MonitoringService
}

// SetupRouter Ginルーターを構築してルートを登録する
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// ミドルウェアの登録
	r.Use(deps.MonitoringService.LoggingMiddleware())
	r.Use(metrics.Middleware())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("X-API-KEY")
	r.Use(cors.New(corsConfig))

	historyHandler := NewHistoryHandler(deps.HistoryService, deps.ImportService)
	forecastHandler := NewForecastHandler(deps.ForecastService)
	adminHandler := NewAdminHandler(cfg, deps.HistoryService)
	monitoringHandler := NewMonitoringHandler(deps.MonitoringService)

	// ヘルスチェック・メトリクス
	r.GET("/health", HealthCheck)
	r.GET("/metrics", metrics.Handler())

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(apiKeyMiddleware(cfg.APIKey))
	{
		// 管理者向けAPI
		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}

		// 履歴データAPI
		history := v1.Group("/history")
		{
			history.GET("", historyHandler.GetHistory)
			history.PUT("", historyHandler.ReplaceHistory)
			history.POST("/import", historyHandler.ImportFile)
		}

		// 予測・統計API
		v1.GET("/forecast", forecastHandler.GetForecast)
		v1.GET("/stats", forecastHandler.GetStats)

		// オフライン検証API（予測処理とは独立）
		backtest := v1.Group("/backtest")
		{
			backtest.POST("", forecastHandler.RunBacktest)
			backtest.GET("/summary", forecastHandler.GetBacktestSummary)
		}
	}

	return r
}

// apiKeyMiddleware API_KEY が設定されている場合のみ X-API-KEY ヘッダーを検証
func apiKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			log.Printf("⚠️ [認証] 不正なAPI Key: %s %s", c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
