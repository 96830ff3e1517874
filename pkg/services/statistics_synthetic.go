package services

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSyntheticSampleSize 疑似データの既定の標本サイズ
const DefaultSyntheticSampleSize = 100

// DefaultMaxSampleSize APIで指定できる標本サイズの上限の既定値
const DefaultMaxSampleSize = 10000

// SyntheticPair 相関係数の目安を指定して生成した2変数の疑似データ
type SyntheticPair struct {
	TargetCorrelation   float64
	RealizedCorrelation float64 // 実際の標本相関係数。目安とは一般に一致しない
	Seed                uint64
	X                   []float64
	Y                   []float64
}

// GenerateSyntheticPair x, e ~ U(0,1) として y = r·x + sqrt(1-r²)·e を生成する。
// 乱数はseedだけから決まり、同じ引数なら同じ系列を返す。
// 一様乱数の分散が等しいため母相関係数はおおむねrになるが、標本の値は目安にとどまる。
func (s *StatisticsService) GenerateSyntheticPair(target float64, seed uint64, sampleSize int) (*SyntheticPair, error) {
	if math.IsNaN(target) || target < -1 || target > 1 {
		return nil, fmt.Errorf("相関係数の目安は-1から1の範囲で指定してください（%v）: %w", target, ErrInvalidParameter)
	}
	if sampleSize < 2 {
		return nil, fmt.Errorf("標本サイズは2以上を指定してください（%d）: %w", sampleSize, ErrInvalidParameter)
	}

	unit := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	x := make([]float64, sampleSize)
	e := make([]float64, sampleSize)
	for i := range x {
		x[i] = unit.Rand()
	}
	for i := range e {
		e[i] = unit.Rand()
	}

	noise := math.Sqrt(1 - target*target)
	y := make([]float64, sampleSize)
	for i := range y {
		y[i] = target*x[i] + noise*e[i]
	}

	pair := &SyntheticPair{TargetCorrelation: target, Seed: seed, X: x, Y: y}
	r, err := s.CalculateCorrelation(x, y)
	if err != nil {
		return nil, err
	}
	pair.RealizedCorrelation = r
	log.Printf("🎲 [疑似データ] 目安 r=%.2f, seed=%d, n=%d → 標本 r=%.3f", target, seed, sampleSize, r)
	return pair, nil
}

// NonLinearExample y = x² のように明確な関係があっても相関係数が0に近くなる例
func (s *StatisticsService) NonLinearExample() (x, y []float64, r float64, err error) {
	x = linspace(-1, 1, 9)
	y = make([]float64, len(x))
	for i, v := range x {
		y[i] = v * v
	}
	r, err = s.CalculateCorrelation(x, y)
	return x, y, r, err
}
