package handlers

import (
	"net/http"

	"stats-lab-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler はモニタリング関連の操作のハンドラです。
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler は新しいMonitoringHandlerを生成します。
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{
		Service: service,
	}
}

// periodHours は期間の指定を時間数に変換します。不明な指定は24時間として扱います。
func periodHours(period string) int {
	switch period {
	case "1h":
		return 1
	case "6h":
		return 6
	case "7d":
		return 24 * 7
	default:
		return 24
	}
}

// GetLogs はリクエストと描画の集計データを返します。
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	data := h.Service.GetDashboardData(periodHours(c.DefaultQuery("period", "24h")))
	c.JSON(http.StatusOK, data)
}
