package services

import (
	"fmt"
	"math"

	"stats-lab-api/pkg/dataset"
	"stats-lab-api/pkg/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultHistogramBins ヒストグラムの既定の階級数
const DefaultHistogramBins = 10

// DescribeColumn 1列分の記述統計量・箱ひげ図・ヒストグラムを計算
func (s *StatisticsService) DescribeColumn(name string, values []float64, bins int) (models.ColumnSummary, error) {
	if len(values) == 0 {
		return models.ColumnSummary{}, fmt.Errorf("%s: %w", name, dataset.ErrNoData)
	}
	for i, v := range values {
		if !isFinite(v) {
			return models.ColumnSummary{}, fmt.Errorf("%s: %d行目に非有限値が含まれています: %w", name, i+1, ErrInvalidParameter)
		}
	}
	if bins < 1 {
		bins = DefaultHistogramBins
	}

	sorted := sortedCopy(values)
	summary := models.ColumnSummary{
		Name:   name,
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Min:    floats.Min(values),
		Q1:     quantileLinear(sorted, 0.25),
		Median: quantileLinear(sorted, 0.5),
		Q3:     quantileLinear(sorted, 0.75),
		Max:    floats.Max(values),
	}
	if len(values) > 1 {
		summary.Std = stat.StdDev(values, nil)
	}
	summary.BoxPlot = boxPlot(sorted, summary.Q1, summary.Median, summary.Q3)
	summary.Histogram = histogram(sorted, bins)
	return summary, nil
}

// DescribeDataset 全ての列の記述統計
func (s *StatisticsService) DescribeDataset(ds *dataset.Dataset, bins int) ([]models.ColumnSummary, error) {
	summaries := make([]models.ColumnSummary, 0, ds.NumColumns())
	for i := 0; i < ds.NumColumns(); i++ {
		summary, err := s.DescribeColumn(ds.NameAt(i), ds.ColumnAt(i), bins)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// boxPlot ひげは箱から1.5×IQR以内にある最も外側の観測値、それより外は外れ値
func boxPlot(sorted []float64, q1, median, q3 float64) models.BoxPlotStats {
	iqr := q3 - q1
	lowFence := q1 - 1.5*iqr
	highFence := q3 + 1.5*iqr

	box := models.BoxPlotStats{
		Q1:          q1,
		Median:      median,
		Q3:          q3,
		IQR:         iqr,
		WhiskerLow:  q1,
		WhiskerHigh: q3,
		Outliers:    []float64{},
	}
	lowSet := false
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			box.Outliers = append(box.Outliers, v)
			continue
		}
		if !lowSet {
			box.WhiskerLow = v
			lowSet = true
		}
		box.WhiskerHigh = v
	}
	return box
}

// histogram [min, max]を等幅にbins分割した度数分布。定数列は1階級にまとめる。
func histogram(sorted []float64, bins int) []models.HistogramBin {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []models.HistogramBin{{Lower: lo, Upper: hi, Count: len(sorted)}}
	}

	dividers := linspace(lo, hi, bins+1)
	// 最大値を最後の階級に含めるため、右端をわずかに広げる
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := make([]models.HistogramBin, bins)
	for i := range out {
		upper := dividers[i+1]
		if i == bins-1 {
			upper = hi
		}
		out[i] = models.HistogramBin{Lower: dividers[i], Upper: upper, Count: int(counts[i])}
	}
	return out
}
