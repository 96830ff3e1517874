package config

// RenderConfig 画像描画の設定
type RenderConfig struct {
	DPI             float64 // 1インチあたりのピクセル数
	DefaultCellSize float64 // 散布図行列の1セルのサイズ（インチ）
	DefaultColorMap string  // 相関係数の背景色に使う発散型カラーマップ
	HistogramBins   int     // 対角ヒストグラムの階級数

	MaxHistogramBins int // 階級数の上限
	MaxVariables     int // 散布図行列・ヒートマップに並べる変数の上限
}

// LoadRenderConfig 描画設定を環境変数から読み込む
func LoadRenderConfig() RenderConfig {
	return RenderConfig{
		DPI:             getEnvFloat("RENDER_DPI", 100),
		DefaultCellSize: getEnvFloat("DEFAULT_CELL_SIZE", 1.5),
		DefaultColorMap: getEnv("DEFAULT_COLORMAP", "seismic"),
		HistogramBins:   getEnvInt("HISTOGRAM_BINS", 10),

		MaxHistogramBins: getEnvInt("MAX_HISTOGRAM_BINS", 200),
		MaxVariables:     getEnvInt("MAX_RENDER_VARIABLES", 30),
	}
}
