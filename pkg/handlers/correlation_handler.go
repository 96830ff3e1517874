package handlers

import (
	"log"
	"net/http"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/models"
	"stats-lab-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// CorrelationHandler 相関係数・相関行列のAPI
type CorrelationHandler struct {
	stats               *services.StatisticsService
	maxUploadMB         int
	syntheticSampleSize int
	maxSampleSize       int
}

// NewCorrelationHandler 新しいCorrelationHandlerを作成
func NewCorrelationHandler(stats *services.StatisticsService, cfg *config.Config) *CorrelationHandler {
	n := cfg.SyntheticSampleSize
	if n < 2 {
		n = services.DefaultSyntheticSampleSize
	}
	return &CorrelationHandler{
		stats:               stats,
		maxUploadMB:         cfg.MaxUploadMB,
		syntheticSampleSize: n,
		maxSampleSize:       limitOrDefault(cfg.MaxSampleSize, services.DefaultMaxSampleSize),
	}
}

// ComputeMatrix 相関行列とペアごとの要約を返す。targetを指定するとtop_k個の変数に絞り込む
func (h *CorrelationHandler) ComputeMatrix(c *gin.Context) {
	ds, _, err := readDataset(c, h.maxUploadMB)
	if err != nil {
		respondError(c, err)
		return
	}

	target := param(c, "target")
	var matrix *services.CorrelationMatrix
	if target != "" {
		count, err := intParam(c, "top_k", allVariables)
		if err != nil {
			respondError(c, err)
			return
		}
		sel := resolveTopK(&services.TopKSelection{Target: target, Count: count}, ds)
		matrix, err = h.stats.ComputeTopKMatrix(ds, sel.Target, sel.Count)
		if err != nil {
			respondError(c, err)
			return
		}
	} else {
		matrix, err = h.stats.ComputeCorrelationMatrix(ds)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	resp := models.CorrelationMatrixResponse{
		Success:    true,
		Variables:  matrix.Names(),
		Matrix:     matrix.Rows(),
		SampleSize: ds.Len(),
		Pairs:      h.stats.SummarizePairs(matrix, ds.Len()),
		Target:     target,
	}
	if matrix.Size() < 2 {
		resp.Message = "変数が2つ未満のため、ペアはありません"
	}
	log.Printf("✅ [相関行列] %d変数 × %d行", matrix.Size(), ds.Len())
	c.JSON(http.StatusOK, resp)
}

// TopK 基準変数と相関が強い変数を選び、その相関行列を返す
func (h *CorrelationHandler) TopK(c *gin.Context) {
	ds, _, err := readDataset(c, h.maxUploadMB)
	if err != nil {
		respondError(c, err)
		return
	}
	count, err := intParam(c, "count", 0)
	if err != nil {
		respondError(c, err)
		return
	}
	target := param(c, "target")

	names, err := h.stats.SelectTopK(ds, target, count)
	if err != nil {
		respondError(c, err)
		return
	}
	sub, err := ds.Select(names...)
	if err != nil {
		respondError(c, err)
		return
	}
	matrix, err := h.stats.ComputeCorrelationMatrix(sub)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TopKResponse{
		Success:   true,
		Target:    target,
		Requested: count,
		Selected:  names,
		Matrix:    matrix.Rows(),
	})
}

// Synthetic 指定した相関係数（目安）の疑似データを返す
func (h *CorrelationHandler) Synthetic(c *gin.Context) {
	pair, err := syntheticPairFromQuery(c, h.stats, h.syntheticSampleSize, h.maxSampleSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SyntheticPairResponse{
		Success:             true,
		TargetCorrelation:   pair.TargetCorrelation,
		RealizedCorrelation: pair.RealizedCorrelation,
		Seed:                pair.Seed,
		SampleSize:          len(pair.X),
		X:                   pair.X,
		Y:                   pair.Y,
		Note:                "realized_correlationは標本から計算した値で、target_correlationとは一致しません",
	})
}

// NonLinear y = x² の相関係数がほぼ0になる例を返す
func (h *CorrelationHandler) NonLinear(c *gin.Context) {
	x, y, r, err := h.stats.NonLinearExample()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NonLinearExample{
		X:           x,
		Y:           y,
		Correlation: r,
		Description: "y = x² は明確な関係があるが、線形ではないため相関係数は0に近い",
	})
}

// syntheticPairFromQuery r, seed, n から疑似データを生成する
func syntheticPairFromQuery(c *gin.Context, stats *services.StatisticsService, defaultN, maxN int) (*services.SyntheticPair, error) {
	if param(c, "r") == "" {
		return nil, badRequest("r（相関係数の目安）を指定してください")
	}
	r, err := floatParam(c, "r", 0)
	if err != nil {
		return nil, err
	}
	seed, err := uint64Param(c, "seed", 0)
	if err != nil {
		return nil, err
	}
	n, err := intParam(c, "n", defaultN)
	if err != nil {
		return nil, err
	}
	if err := checkLimit("n", n, maxN); err != nil {
		return nil, err
	}
	return stats.GenerateSyntheticPair(r, seed, n)
}
