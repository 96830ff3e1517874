package services

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// machineEpsilon float64の計算機イプシロン
const machineEpsilon = 2.220446049250313e-16

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// isConstant 全ての値が等しいかどうか
func isConstant(values []float64) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// powerOfTwoScale 最大絶対値がおよそ1になる2のべき乗の倍率（掛けても仮数部は変わらない）
func powerOfTwoScale(values []float64) float64 {
	maxAbs := 0.0
	for _, v := range values {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if maxAbs == 0 {
		return 1
	}
	_, exp := math.Frexp(maxAbs)
	if exp < -1021 {
		exp = -1021
	}
	return math.Ldexp(1, -exp)
}

// linspace [start, end]をn等分した点列（両端を含む）
func linspace(start, end float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, end)
}

// sortedCopy 値をコピーして昇順に並べる
func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// quantileLinear ソート済みの値のp分位点を線形補間で求める（pandasの既定と同じ定義）
func quantileLinear(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// centered 平均を引いた値を返す
func centered(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	mean := floats.Sum(values) / float64(len(values))
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - mean
	}
	return out
}
