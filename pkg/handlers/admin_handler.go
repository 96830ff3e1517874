package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// isMaintenanceMode はサーバーがメンテナンスモードかどうかを示します。
var isMaintenanceMode atomic.Bool

// startedAt はヘルスチェックで返す起動時刻です。
var startedAt = time.Now()

// AdminHandler は管理者向け操作のハンドラです。
type AdminHandler struct {
	AdminUsername string
	AdminPassword string
}

// NewAdminHandler は新しいAdminHandlerを生成します。
func NewAdminHandler(cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
	}
}

// AdminCredentials は管理者認証のためのリクエストボディです。
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// authorize は資格情報を検証し、失敗した場合はレスポンスを書き込んでfalseを返します。
// パスワードが未設定の場合、管理APIは無効です。
func (h *AdminHandler) authorize(c *gin.Context) bool {
	if h.AdminPassword == "" {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "管理APIは無効です（ADMIN_PASSWORD未設定）"})
		return false
	}
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "usernameとpasswordが必要です"})
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(h.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(input.Password), []byte(h.AdminPassword)) == 1
	if !userOK || !passOK {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "認証に失敗しました"})
		return false
	}
	return true
}

// StartMaintenance はメンテナンスモードを開始します。
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	isMaintenanceMode.Store(true)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "メンテナンスモードを開始しました"})
}

// StopMaintenance はメンテナンスモードを停止します。
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	isMaintenanceMode.Store(false)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "メンテナンスモードを停止しました"})
}

// GetHealthStatus は現在のサーバーの状態を返します。
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"isMaintenanceMode": isMaintenanceMode.Load(),
		"uptimeSeconds":     int64(time.Since(startedAt).Seconds()),
	})
}

// MaintenanceGuard はメンテナンス中に計算・描画APIへのリクエストを503で拒否します。
// 管理APIとモニタリングAPIは対象外です。
func MaintenanceGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if isMaintenanceMode.Load() &&
			!strings.HasPrefix(path, "/api/v1/admin") &&
			!strings.HasPrefix(path, "/api/v1/monitoring") {
			services.MarkErrorKind(c, "maintenance")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "メンテナンス中です"})
			return
		}
		c.Next()
	}
}

// HealthCheck は外部のヘルスチェッカー（例: ロードバランサー）からのリクエストに応答します。
func HealthCheck(c *gin.Context) {
	if isMaintenanceMode.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "stats-lab-api",
		"colormaps": services.ColorMapNames(),
	})
}
