package services

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log"
	"math"
	"time"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/dataset"
	"stats-lab-api/pkg/models"

	"github.com/google/uuid"
)

// 描画結果の種類
const (
	ArtifactPairwise  = "pairwise"
	ArtifactHeatmap   = "heatmap"
	ArtifactSynthetic = "synthetic"
	ArtifactImpurity  = "impurity"
)

const (
	minCellPixels = 32
	maxCellPixels = 600

	// DefaultMaxHistogramBins 階級数の上限の既定値
	DefaultMaxHistogramBins = 200
	// DefaultMaxRenderVariables 1枚の画像に並べる変数の上限の既定値
	DefaultMaxRenderVariables = 30
)

// CellKind 散布図行列の各セルの描き方
type CellKind int

const (
	CellScatter     CellKind = iota // 下三角: 散布図
	CellCoefficient                 // 上三角: 相関係数のラベル
	CellHistogram                   // 対角: ヒストグラム
)

func (k CellKind) String() string {
	switch k {
	case CellScatter:
		return "scatter"
	case CellCoefficient:
		return "coefficient"
	case CellHistogram:
		return "histogram"
	}
	return fmt.Sprintf("CellKind(%d)", int(k))
}

// TopKSelection 基準変数と相関の強い変数への絞り込み
type TopKSelection struct {
	Target string
	Count  int
}

// PairwiseOptions 散布図行列・ヒートマップの描画オプション。ゼロ値の項目は設定の既定値を使う
type PairwiseOptions struct {
	CellSize      float64 // インチ
	ColorMap      string
	TopK          *TopKSelection
	HistogramBins int
}

// RenderSpec 1回の描画のための設定。描画のたびに作って捨てる
type RenderSpec struct {
	Variables     []string
	Cells         [][]CellKind
	VMin          float64
	VMax          float64
	ColorMap      ColorMap
	CellPixels    int
	HistogramBins int
}

// BuildRenderSpec 行i列jのセルを i>j なら散布図、i<j なら係数、i==j ならヒストグラムとする
func BuildRenderSpec(variables []string, cellPixels int, cmap ColorMap, bins int) RenderSpec {
	k := len(variables)
	cells := make([][]CellKind, k)
	for i := 0; i < k; i++ {
		cells[i] = make([]CellKind, k)
		for j := 0; j < k; j++ {
			switch {
			case i > j:
				cells[i][j] = CellScatter
			case i < j:
				cells[i][j] = CellCoefficient
			default:
				cells[i][j] = CellHistogram
			}
		}
	}
	return RenderSpec{
		Variables:     append([]string(nil), variables...),
		Cells:         cells,
		VMin:          -1,
		VMax:          1,
		ColorMap:      cmap,
		CellPixels:    cellPixels,
		HistogramBins: bins,
	}
}

// RenderedArtifact 描画したPNG画像
type RenderedArtifact struct {
	ID        string
	Kind      string
	Width     int
	Height    int
	Variables []string
	PNG       []byte
	CreatedAt time.Time
}

// VisualizationService 相関の可視化（散布図行列、ヒートマップ、説明用のグラフ）
type VisualizationService struct {
	stats   *StatisticsService
	cfg     config.RenderConfig
	monitor *MonitoringService
}

// NewVisualizationService 新しい可視化サービスを作成
func NewVisualizationService(stats *StatisticsService, cfg config.RenderConfig) *VisualizationService {
	if cfg.DPI <= 0 {
		cfg.DPI = 100
	}
	if cfg.DefaultCellSize <= 0 {
		cfg.DefaultCellSize = 1.5
	}
	if _, ok := LookupColorMap(cfg.DefaultColorMap); !ok {
		log.Printf("⚠️ カラーマップ %q は使用できません。%s を使用します", cfg.DefaultColorMap, DefaultColorMap)
		cfg.DefaultColorMap = DefaultColorMap
	}
	if cfg.HistogramBins < 1 {
		cfg.HistogramBins = DefaultHistogramBins
	}
	if cfg.MaxHistogramBins < 1 {
		cfg.MaxHistogramBins = DefaultMaxHistogramBins
	}
	if cfg.MaxVariables < 2 {
		cfg.MaxVariables = DefaultMaxRenderVariables
	}
	return &VisualizationService{stats: stats, cfg: cfg}
}

// SetMonitor 描画の記録先を設定する
func (v *VisualizationService) SetMonitor(m *MonitoringService) {
	v.monitor = m
}

type resolvedOptions struct {
	cellPixels int
	cmap       ColorMap
	bins       int
}

func (v *VisualizationService) resolveOptions(opts PairwiseOptions) (resolvedOptions, error) {
	cellSize := opts.CellSize
	if cellSize == 0 {
		cellSize = v.cfg.DefaultCellSize
	}
	if math.IsNaN(cellSize) || math.IsInf(cellSize, 0) || cellSize < 0 {
		return resolvedOptions{}, fmt.Errorf("セルサイズ %v: %w", opts.CellSize, ErrInvalidRenderOption)
	}
	px := int(math.Round(cellSize * v.cfg.DPI))
	if px > maxCellPixels {
		return resolvedOptions{}, fmt.Errorf("セルサイズ %v インチは大きすぎます: %w", cellSize, ErrInvalidRenderOption)
	}
	if px < minCellPixels {
		px = minCellPixels
	}

	name := opts.ColorMap
	if name == "" {
		name = v.cfg.DefaultColorMap
	}
	cmap, ok := LookupColorMap(name)
	if !ok {
		return resolvedOptions{}, fmt.Errorf("カラーマップ %q（使用可能: %v）: %w", name, ColorMapNames(), ErrInvalidRenderOption)
	}

	bins := opts.HistogramBins
	if bins < 0 {
		return resolvedOptions{}, fmt.Errorf("階級数 %d: %w", bins, ErrInvalidRenderOption)
	}
	if bins == 0 {
		bins = v.cfg.HistogramBins
	}
	if bins > v.cfg.MaxHistogramBins {
		return resolvedOptions{}, fmt.Errorf("階級数 %d は上限 %d を超えています: %w", bins, v.cfg.MaxHistogramBins, ErrInvalidRenderOption)
	}
	return resolvedOptions{cellPixels: px, cmap: cmap, bins: bins}, nil
}

// checkVariableCount k×kの画像が大きくなりすぎないよう変数の数を制限する
func (v *VisualizationService) checkVariableCount(k int) error {
	if k > v.cfg.MaxVariables {
		return fmt.Errorf("変数が%d個あります（上限 %d、top_kで絞り込んでください）: %w", k, v.cfg.MaxVariables, ErrInvalidRenderOption)
	}
	return nil
}

// narrow TopKが指定されていれば変数を絞り込む
func (v *VisualizationService) narrow(ds *dataset.Dataset, topK *TopKSelection) (*dataset.Dataset, error) {
	if topK == nil {
		return ds, nil
	}
	names, err := v.stats.SelectTopK(ds, topK.Target, topK.Count)
	if err != nil {
		return nil, err
	}
	return ds.Select(names...)
}

// RenderPairwiseMatrix 散布図行列を描画する。
// 下三角に散布図、上三角に相関係数（[-1, 1]固定のカラースケールの背景）、対角にヒストグラムを配置する。
// 変数が2未満のときは何も描かずInsufficientVariablesErrorを返す。
func (v *VisualizationService) RenderPairwiseMatrix(ds *dataset.Dataset, opts PairwiseOptions) (*RenderedArtifact, error) {
	start := time.Now()
	resolved, err := v.resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	ds, err = v.narrow(ds, opts.TopK)
	if err != nil {
		return nil, err
	}
	if ds.NumColumns() < 2 {
		return nil, &InsufficientVariablesError{Got: ds.NumColumns()}
	}
	if err := v.checkVariableCount(ds.NumColumns()); err != nil {
		return nil, err
	}

	// 描画の前に相関行列を確定させ、計算できないデータはここで弾く
	matrix, err := v.stats.ComputeCorrelationMatrix(ds)
	if err != nil {
		return nil, err
	}

	rs := BuildRenderSpec(matrix.Names(), resolved.cellPixels, resolved.cmap, resolved.bins)
	img, err := v.composePairwise(ds, matrix, rs)
	if err != nil {
		return nil, err
	}
	return v.finish(ArtifactPairwise, img, rs.Variables, start)
}

// RenderHeatmap 相関行列のヒートマップ（全セルに係数を表示し、右側にカラーバーを付ける）
func (v *VisualizationService) RenderHeatmap(m *CorrelationMatrix, opts PairwiseOptions) (*RenderedArtifact, error) {
	start := time.Now()
	if opts.TopK != nil {
		return nil, fmt.Errorf("ヒートマップには絞り込み済みの行列を渡してください: %w", ErrInvalidRenderOption)
	}
	resolved, err := v.resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	if m.Size() < 2 {
		return nil, &InsufficientVariablesError{Got: m.Size()}
	}
	if err := v.checkVariableCount(m.Size()); err != nil {
		return nil, err
	}
	img := composeHeatmap(m, resolved.cellPixels, resolved.cmap)
	return v.finish(ArtifactHeatmap, img, m.Names(), start)
}

// RenderSyntheticScatter 疑似データを平均で中心化した散布図。タイトルに標本の相関係数を表示する
func (v *VisualizationService) RenderSyntheticScatter(pair *SyntheticPair) (*RenderedArtifact, error) {
	start := time.Now()
	img, err := syntheticScatterChart(pair)
	if err != nil {
		return nil, err
	}
	return v.finish(ArtifactSynthetic, img, []string{"x", "y"}, start)
}

// RenderImpurityCurves ジニ不純度とエントロピーの曲線を横に並べて描画する
func (v *VisualizationService) RenderImpurityCurves(curves *models.ImpurityCurves) (*RenderedArtifact, error) {
	start := time.Now()
	img, err := impurityChart(curves)
	if err != nil {
		return nil, err
	}
	return v.finish(ArtifactImpurity, img, []string{"gini", "entropy"}, start)
}

func (v *VisualizationService) finish(kind string, img image.Image, variables []string, start time.Time) (*RenderedArtifact, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("PNGのエンコードに失敗: %w", err)
	}
	b := img.Bounds()
	artifact := &RenderedArtifact{
		ID:        uuid.NewString(),
		Kind:      kind,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Variables: variables,
		PNG:       buf.Bytes(),
		CreatedAt: start,
	}
	elapsed := time.Since(start)
	if v.monitor != nil {
		v.monitor.RecordRender(RenderEntry{
			Timestamp: start,
			Kind:      kind,
			Variables: len(variables),
			Bytes:     buf.Len(),
			Duration:  elapsed,
		})
	}
	log.Printf("🖼️ [描画] %s %dx%d (%d変数, %d bytes, %v)", kind, artifact.Width, artifact.Height, len(variables), buf.Len(), elapsed)
	return artifact, nil
}
