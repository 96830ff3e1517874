package services

import (
	"fmt"
	"math"

	"stats-lab-api/pkg/models"
)

// DefaultImpurityPoints 不純度曲線の既定の評価点数
const DefaultImpurityPoints = 100

// DefaultMaxImpurityPoints APIで指定できる評価点数の上限の既定値
const DefaultMaxImpurityPoints = 10000

// GiniImpurity 2クラスの割合pに対するジニ不純度 1-(p²+(1-p)²)
func GiniImpurity(p float64) float64 {
	q := 1 - p
	return 1 - (p*p + q*q)
}

// BinaryEntropy 2クラスの割合pに対するエントロピー（自然対数）
func BinaryEntropy(p float64) float64 {
	q := 1 - p
	h := 0.0
	if p > 0 {
		h -= p * math.Log(p)
	}
	if q > 0 {
		h -= q * math.Log(q)
	}
	return h
}

// ImpurityCurves 割合を(0, 1)の内側で等間隔にとり、ジニ不純度とエントロピーを評価する
func (s *StatisticsService) ImpurityCurves(points int) (*models.ImpurityCurves, error) {
	if points < 2 {
		return nil, fmt.Errorf("評価点数は2以上を指定してください（%d）: %w", points, ErrInvalidParameter)
	}
	p := linspace(machineEpsilon, 1-machineEpsilon, points)
	curves := &models.ImpurityCurves{
		Proportion: p,
		Gini:       make([]float64, points),
		Entropy:    make([]float64, points),
	}
	for i, v := range p {
		curves.Gini[i] = GiniImpurity(v)
		curves.Entropy[i] = BinaryEntropy(v)
	}
	return curves, nil
}
