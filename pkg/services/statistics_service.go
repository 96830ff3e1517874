package services

// StatisticsServiceのメソッドは以下のファイルに分かれています：
//
// - statistics_core.go: 構造体、ピアソン相関係数、p値、解釈
// - statistics_matrix.go: 相関行列、上位k変数の選択、ペアの要約
// - statistics_describe.go: 記述統計、箱ひげ図、ヒストグラム
// - statistics_synthetic.go: 相関係数を指定した疑似データ、非線形の例
// - statistics_impurity.go: ジニ不純度とエントロピーの曲線
// - statistics_math.go: 数値計算の補助関数
// - statistics_errors.go: エラー型
//
// 描画はvisualization_*.go（VisualizationService）が担当します。
