package handlers

import (
	"net/http"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/models"
	"stats-lab-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// StatisticsHandler 記述統計と不純度曲線のAPI
type StatisticsHandler struct {
	stats       *services.StatisticsService
	maxUploadMB int
	defaultBins int
	maxBins     int
	maxPoints   int
}

// NewStatisticsHandler 新しいStatisticsHandlerを作成
func NewStatisticsHandler(stats *services.StatisticsService, cfg *config.Config) *StatisticsHandler {
	return &StatisticsHandler{
		stats:       stats,
		maxUploadMB: cfg.MaxUploadMB,
		defaultBins: cfg.Render.HistogramBins,
		maxBins:     limitOrDefault(cfg.Render.MaxHistogramBins, services.DefaultMaxHistogramBins),
		maxPoints:   limitOrDefault(cfg.MaxImpurityPoints, services.DefaultMaxImpurityPoints),
	}
}

// Describe 各列の記述統計・箱ひげ図・ヒストグラムを返す
func (h *StatisticsHandler) Describe(c *gin.Context) {
	ds, _, err := readDataset(c, h.maxUploadMB)
	if err != nil {
		respondError(c, err)
		return
	}
	bins, err := intParam(c, "bins", h.defaultBins)
	if err != nil {
		respondError(c, err)
		return
	}
	if bins < 1 {
		respondError(c, badRequest("bins は1以上を指定してください（%d）", bins))
		return
	}
	if err := checkLimit("bins", bins, h.maxBins); err != nil {
		respondError(c, err)
		return
	}

	summaries, err := h.stats.DescribeDataset(ds, bins)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DescribeResponse{
		Success: true,
		Rows:    ds.Len(),
		Columns: summaries,
	})
}

// Impurity ジニ不純度とエントロピーの曲線を返す
func (h *StatisticsHandler) Impurity(c *gin.Context) {
	points, err := impurityPointsParam(c, h.maxPoints)
	if err != nil {
		respondError(c, err)
		return
	}
	curves, err := h.stats.ImpurityCurves(points)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, curves)
}

// impurityPointsParam points を読み取り、上限を確かめる
func impurityPointsParam(c *gin.Context, maxPoints int) (int, error) {
	points, err := intParam(c, "points", services.DefaultImpurityPoints)
	if err != nil {
		return 0, err
	}
	if err := checkLimit("points", points, maxPoints); err != nil {
		return 0, err
	}
	return points, nil
}
