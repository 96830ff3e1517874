package models

// ColumnPayload JSONで受け取る1列分のデータ
type ColumnPayload struct {
	Name   string    `json:"name" binding:"required"`
	Values []float64 `json:"values" binding:"required"`
}

// DatasetRequest JSONで受け取るデータセット
type DatasetRequest struct {
	Columns []ColumnPayload `json:"columns" binding:"required"`
}

// CorrelationResult represents the result of correlation analysis for one variable pair
type CorrelationResult struct {
	VariableX       string  `json:"variable_x"`
	VariableY       string  `json:"variable_y"`
	CorrelationCoef float64 `json:"correlation_coef"` // Pearson correlation coefficient (-1 to 1)
	PValue          float64 `json:"p_value"`          // Statistical significance
	SampleSize      int     `json:"sample_size"`      // Number of data points used
	Interpretation  string  `json:"interpretation"`   // Human-readable interpretation
}

// CorrelationMatrixResponse 相関行列APIのレスポンス
type CorrelationMatrixResponse struct {
	Success    bool                `json:"success"`
	Variables  []string            `json:"variables"`
	Matrix     [][]float64         `json:"matrix"`
	SampleSize int                 `json:"sample_size"`
	Pairs      []CorrelationResult `json:"pairs"`
	Target     string              `json:"target,omitempty"` // 上位k変数に絞り込んだ場合の基準変数
	Message    string              `json:"message,omitempty"`
}

// TopKResponse 基準変数と相関が強い変数の選択結果
type TopKResponse struct {
	Success   bool        `json:"success"`
	Target    string      `json:"target"`
	Requested int         `json:"requested"`
	Selected  []string    `json:"selected"`
	Matrix    [][]float64 `json:"matrix"`
}

// SyntheticPairResponse 指定した相関係数（目安）の疑似データ
type SyntheticPairResponse struct {
	Success             bool      `json:"success"`
	TargetCorrelation   float64   `json:"target_correlation"`
	RealizedCorrelation float64   `json:"realized_correlation"` // 標本の相関係数（目安とは一致しない）
	Seed                uint64    `json:"seed"`
	SampleSize          int       `json:"sample_size"`
	X                   []float64 `json:"x"`
	Y                   []float64 `json:"y"`
	Note                string    `json:"note"`
}

// NonLinearExample 非線形な関係（y = x²）の相関係数の例
type NonLinearExample struct {
	X           []float64 `json:"x"`
	Y           []float64 `json:"y"`
	Correlation float64   `json:"correlation"`
	Description string    `json:"description"`
}

// HistogramBin ヒストグラムの1階級
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// BoxPlotStats 箱ひげ図の要約統計量
type BoxPlotStats struct {
	Q1          float64   `json:"q1"`
	Median      float64   `json:"median"`
	Q3          float64   `json:"q3"`
	IQR         float64   `json:"iqr"`
	WhiskerLow  float64   `json:"whisker_low"`  // 箱の下から1.5×IQR以内の最小値
	WhiskerHigh float64   `json:"whisker_high"` // 箱の上から1.5×IQR以内の最大値
	Outliers    []float64 `json:"outliers"`
}

// ColumnSummary 1列分の記述統計（pandas.DataFrame.describe相当）
type ColumnSummary struct {
	Name      string         `json:"name"`
	Count     int            `json:"count"`
	Mean      float64        `json:"mean"`
	Std       float64        `json:"std"` // 不偏標準偏差（n-1）
	Min       float64        `json:"min"`
	Q1        float64        `json:"q25"`
	Median    float64        `json:"q50"`
	Q3        float64        `json:"q75"`
	Max       float64        `json:"max"`
	BoxPlot   BoxPlotStats   `json:"box_plot"`
	Histogram []HistogramBin `json:"histogram"`
}

// DescribeResponse 記述統計APIのレスポンス
type DescribeResponse struct {
	Success bool            `json:"success"`
	Rows    int             `json:"rows"`
	Columns []ColumnSummary `json:"columns"`
}

// ImpurityCurves 2クラスの割合に対するジニ不純度とエントロピー
type ImpurityCurves struct {
	Proportion []float64 `json:"proportion"`
	Gini       []float64 `json:"gini"`
	Entropy    []float64 `json:"entropy"`
}

// ErrorResponse エラー時の共通レスポンス
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}
