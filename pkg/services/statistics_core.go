package services

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticsService 統計分析サービス
type StatisticsService struct {
	// 変数の数がこの値以上のとき、相関行列の各ペアを並列に計算する（0以下で無効）
	parallelThreshold int
	workers           int
}

// NewStatisticsService 新しい統計分析サービスを作成
func NewStatisticsService(parallelThreshold int) *StatisticsService {
	return &StatisticsService{
		parallelThreshold: parallelThreshold,
		workers:           runtime.NumCPU(),
	}
}

// CalculateCorrelation 2つのデータ系列のピアソン相関係数を計算
//
//	r = Sxy / sqrt(Sxx * Syy)
//	Sxy = Σ(x-x̄)(y-ȳ)
//	Sxx = Σ(x-x̄)²
//	Syy = Σ(y-ȳ)²
//
// 平均を先に求めてから偏差で集計する（Σx² - (Σx)²/n の形は大きなオフセットで桁落ちする）。
// 値は2のべき乗で縮尺してから集計するため、絶対値の大きなデータでも二乗があふれない。
// 戻り値は丸め誤差で[-1, 1]をわずかに超えることがある。表示用にはClampCorrelationを使う。
func (s *StatisticsService) CalculateCorrelation(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("データ系列の長さが一致しません（%d と %d）", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, &DegenerateInputError{
			Observations: len(x),
			Reason:       fmt.Sprintf("観測数が%d件です（最低2件必要）", len(x)),
		}
	}

	for i := range x {
		if !isFinite(x[i]) || !isFinite(y[i]) {
			return 0, &DegenerateInputError{
				Observations: len(x),
				Reason:       fmt.Sprintf("%d行目に非有限値が含まれています", i+1),
			}
		}
	}

	// 定数列は偏差がごく小さな値になることがあるため、値そのものでも判定する
	if isConstant(x) || isConstant(y) {
		return 0, &DegenerateInputError{
			Observations: len(x),
			Reason:       "分散が0です（標準偏差が0）",
		}
	}

	sx, sy := powerOfTwoScale(x), powerOfTwoScale(y)
	n := float64(len(x))
	var meanX, meanY float64
	for i := range x {
		meanX += x[i] * sx
		meanY += y[i] * sy
	}
	meanX /= n
	meanY /= n

	var sxy, sxx, syy float64
	for i := range x {
		dx := x[i]*sx - meanX
		dy := y[i]*sy - meanY
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}

	if sxx <= 0 || syy <= 0 {
		return 0, &DegenerateInputError{
			Observations: len(x),
			Reason:       "分散が0です（標準偏差が0）",
		}
	}

	r := sxy / (math.Sqrt(sxx) * math.Sqrt(syy))
	if !isFinite(r) {
		return 0, &DegenerateInputError{
			Observations: len(x),
			Reason:       "相関係数が数値として求まりません",
		}
	}
	return r, nil
}

// ClampCorrelation 丸め誤差による[-1, 1]からのはみ出しを表示用に切り詰める
func ClampCorrelation(r float64) float64 {
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}

// FormatCorrelation 相関係数を小数点以下2桁の表示用文字列にする
func FormatCorrelation(r float64) string {
	return fmt.Sprintf("%.2f", ClampCorrelation(r))
}

// CalculatePValue 無相関検定（両側）のp値をt分布から計算
func (s *StatisticsService) CalculatePValue(r float64, n int) float64 {
	if n < 3 {
		return 1.0
	}
	r = ClampCorrelation(r)
	if math.Abs(r) == 1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)) / math.Sqrt(1-r*r)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// InterpretCorrelation 相関係数を人間が読める形で解釈
// 通常、|r| < 0.2 のときは無相関と見なす。
func (s *StatisticsService) InterpretCorrelation(r float64, pValue float64) string {
	absR := math.Abs(ClampCorrelation(r))
	strength := ""

	if absR >= 0.7 {
		strength = "強い"
	} else if absR >= 0.4 {
		strength = "中程度の"
	} else if absR >= 0.2 {
		strength = "弱い"
	} else {
		return "ほぼ無相関（線形な関係は見られない）"
	}

	direction := "正の"
	if r < 0 {
		direction = "負の"
	}

	significance := ""
	if pValue < 0.05 {
		significance = "（統計的に有意）"
	} else {
		significance = "（統計的に有意ではない）"
	}

	return fmt.Sprintf("%s%s相関 %s", strength, direction, significance)
}
