package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	config "hourly-forecast-api/configs"
	"hourly-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// isMaintenanceMode はサーバーがメンテナンスモードかどうかを示します。
// メンテナンス中は履歴の更新を受け付けません。
var isMaintenanceMode atomic.Bool

// AdminHandler は管理者向け操作のハンドラです。
type AdminHandler struct {
	historyService *services.HistoryService
	adminUsername  string
	adminPassword  string
}

// NewAdminHandler は新しいAdminHandlerを生成します。
func NewAdminHandler(cfg *config.Config, historyService *services.HistoryService) *AdminHandler {
	return &AdminHandler{
		historyService: historyService,
		adminUsername:  cfg.AdminUsername,
		adminPassword:  cfg.AdminPassword,
	}
}

// AdminCredentials は管理者認証のためのリクエストボディです。
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StartMaintenance はメンテナンスモードを開始します。
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	isMaintenanceMode.Store(true)
	log.Printf("🔧 [管理] メンテナンスモードを開始しました")
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

// StopMaintenance はメンテナンスモードを停止します。
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	isMaintenanceMode.Store(false)
	log.Printf("🔧 [管理] メンテナンスモードを停止しました")
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}

// authorize は管理者の資格情報を検証します。
// ADMIN_USERNAME / ADMIN_PASSWORD が未設定の場合は操作自体を受け付けません。
func (h *AdminHandler) authorize(c *gin.Context) bool {
	if h.adminUsername == "" || h.adminPassword == "" {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "管理者アカウントが設定されていません"})
		return false
	}

	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and password are required"})
		return false
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(h.adminUsername)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(input.Password), []byte(h.adminPassword)) == 1
	if !usernameOK || !passwordOK {
		log.Printf("⚠️ [管理] 認証に失敗しました: %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return false
	}
	return true
}

// GetHealthStatus は現在のサーバーと履歴スナップショットの状態を返します。
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	store := h.historyService.Snapshot()
	status := gin.H{
		"isMaintenanceMode": isMaintenanceMode.Load(),
		"historyRecords":    store.Len(),
	}
	if updated := h.historyService.UpdatedAt(); !updated.IsZero() {
		status["historyUpdatedAt"] = updated.Format(time.RFC3339)
	}
	if latest, ok := store.Latest(); ok {
		status["latestDate"] = latest.Date
	}
	c.JSON(http.StatusOK, status)
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
func HealthCheck(c *gin.Context) {
	if isMaintenanceMode.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
