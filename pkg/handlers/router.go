package handlers

import (
	"log"
	"net/http"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// APIKeyAuth はX-API-KEYヘッダーを検証するミドルウェアです。キーが未設定なら認証しません。
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			services.MarkErrorKind(c, "unauthorized")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// SetupRouter はサービスとハンドラーを初期化し、全てのルートを登録したGinエンジンを返します。
// サーバー（cmd/server）とVercel関数（api）で共通です。
func SetupRouter(cfg *config.Config, presets *config.RenderPresets) *gin.Engine {
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService(0)
	statisticsService := services.NewStatisticsService(cfg.ParallelThreshold)
	visualizationService := services.NewVisualizationService(statisticsService, cfg.Render)
	visualizationService.SetMonitor(monitoringService)

	// ハンドラーの初期化
	correlationHandler := NewCorrelationHandler(statisticsService, cfg)
	statisticsHandler := NewStatisticsHandler(statisticsService, cfg)
	visualizationHandler := NewVisualizationHandler(visualizationService, statisticsService, presets, cfg)
	adminHandler := NewAdminHandler(cfg)
	monitoringHandler := NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-API-KEY")
	corsConfig.ExposeHeaders = []string{"X-Artifact-ID", "X-Artifact-Kind", "X-Image-Size", "X-Variables"}
	r.Use(cors.New(corsConfig))

	// ヘルスチェックエンドポイント
	r.GET("/health", HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(APIKeyAuth(cfg.APIKey))
	v1.Use(MaintenanceGuard())
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

		// 相関API
		correlation := v1.Group("/correlation")
		{
			correlation.POST("/matrix", correlationHandler.ComputeMatrix)
			correlation.POST("/top-k", correlationHandler.TopK)
			correlation.GET("/synthetic", correlationHandler.Synthetic)
			correlation.GET("/nonlinear", correlationHandler.NonLinear)
		}

		// 記述統計API
		statistics := v1.Group("/statistics")
		{
			statistics.POST("/describe", statisticsHandler.Describe)
			statistics.GET("/impurity", statisticsHandler.Impurity)
		}

		// 可視化API（PNG）
		visualization := v1.Group("/visualization")
		{
			visualization.POST("/pairwise", visualizationHandler.Pairwise)
			visualization.POST("/heatmap", visualizationHandler.Heatmap)
			visualization.GET("/synthetic", visualizationHandler.Synthetic)
			visualization.GET("/impurity", visualizationHandler.Impurity)
			visualization.GET("/presets", visualizationHandler.Presets)
		}
	}

	log.Printf("🟢 ルーターを初期化しました（並列計算しきい値: %d変数, 既定カラーマップ: %s）", cfg.ParallelThreshold, cfg.Render.DefaultColorMap)
	return r
}
