package handlers

import (
	"net/http"
	"strconv"
	"strings"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// VisualizationHandler 散布図行列・ヒートマップなどの画像を返すAPI
type VisualizationHandler struct {
	viz                 *services.VisualizationService
	stats               *services.StatisticsService
	presets             *config.RenderPresets
	maxUploadMB         int
	syntheticSampleSize int
	maxSampleSize       int
	maxPoints           int
}

// NewVisualizationHandler 新しいVisualizationHandlerを作成
func NewVisualizationHandler(viz *services.VisualizationService, stats *services.StatisticsService, presets *config.RenderPresets, cfg *config.Config) *VisualizationHandler {
	n := cfg.SyntheticSampleSize
	if n < 2 {
		n = services.DefaultSyntheticSampleSize
	}
	return &VisualizationHandler{
		viz:                 viz,
		stats:               stats,
		presets:             presets,
		maxUploadMB:         cfg.MaxUploadMB,
		syntheticSampleSize: n,
		maxSampleSize:       limitOrDefault(cfg.MaxSampleSize, services.DefaultMaxSampleSize),
		maxPoints:           limitOrDefault(cfg.MaxImpurityPoints, services.DefaultMaxImpurityPoints),
	}
}

// Pairwise 散布図行列のPNGを返す
func (h *VisualizationHandler) Pairwise(c *gin.Context) {
	ds, _, err := readDataset(c, h.maxUploadMB)
	if err != nil {
		respondError(c, err)
		return
	}
	opts, err := renderOptions(c, h.presets)
	if err != nil {
		respondError(c, err)
		return
	}
	opts.TopK = resolveTopK(opts.TopK, ds)

	artifact, err := h.viz.RenderPairwiseMatrix(ds, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	writePNG(c, artifact)
}

// Heatmap 相関行列のヒートマップのPNGを返す
func (h *VisualizationHandler) Heatmap(c *gin.Context) {
	ds, _, err := readDataset(c, h.maxUploadMB)
	if err != nil {
		respondError(c, err)
		return
	}
	opts, err := renderOptions(c, h.presets)
	if err != nil {
		respondError(c, err)
		return
	}

	var matrix *services.CorrelationMatrix
	if sel := resolveTopK(opts.TopK, ds); sel != nil {
		matrix, err = h.stats.ComputeTopKMatrix(ds, sel.Target, sel.Count)
	} else {
		matrix, err = h.stats.ComputeCorrelationMatrix(ds)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	opts.TopK = nil

	artifact, err := h.viz.RenderHeatmap(matrix, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	writePNG(c, artifact)
}

// Synthetic 疑似データの散布図のPNGを返す
func (h *VisualizationHandler) Synthetic(c *gin.Context) {
	pair, err := syntheticPairFromQuery(c, h.stats, h.syntheticSampleSize, h.maxSampleSize)
	if err != nil {
		respondError(c, err)
		return
	}
	artifact, err := h.viz.RenderSyntheticScatter(pair)
	if err != nil {
		respondError(c, err)
		return
	}
	writePNG(c, artifact)
}

// Impurity 不純度曲線のPNGを返す
func (h *VisualizationHandler) Impurity(c *gin.Context) {
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
	artifact, err := h.viz.RenderImpurityCurves(curves)
	if err != nil {
		respondError(c, err)
		return
	}
	writePNG(c, artifact)
}

// Presets 使用できる描画プリセットとカラーマップの一覧
func (h *VisualizationHandler) Presets(c *gin.Context) {
	presets := make(map[string]config.RenderPreset)
	for _, name := range h.presets.Names() {
		p, _ := h.presets.Lookup(name)
		presets[name] = p
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"presets":   presets,
		"colormaps": services.ColorMapNames(),
	})
}

func writePNG(c *gin.Context, artifact *services.RenderedArtifact) {
	c.Header("X-Artifact-ID", artifact.ID)
	c.Header("X-Artifact-Kind", artifact.Kind)
	c.Header("X-Image-Size", strconv.Itoa(artifact.Width)+"x"+strconv.Itoa(artifact.Height))
	c.Header("X-Variables", strings.Join(artifact.Variables, ","))
	c.Data(http.StatusOK, "image/png", artifact.PNG)
}
