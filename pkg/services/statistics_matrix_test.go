package services

import (
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"testing"

	"stats-lab-api/pkg/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swissLikeDataset Fertilityとの相関が Examination(1) > Education(-0.98) > Catholic(0.90) > Agriculture(0.19) > Infant.Mortality(-0.05) になるデータ
func swissLikeDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.Column{Name: "Fertility", Values: []float64{1, 2, 3, 4, 5, 6, 7, 8}},
		dataset.Column{Name: "Agriculture", Values: []float64{1, 8, 2, 7, 3, 6, 4, 5}},
		dataset.Column{Name: "Examination", Values: []float64{3, 6, 9, 12, 15, 18, 21, 24}},
		dataset.Column{Name: "Education", Values: []float64{-1, -2, -3, -4, -5, -6, -8, -7}},
		dataset.Column{Name: "Catholic", Values: []float64{2, 1, 4, 3, 6, 5, 8, 7}},
		dataset.Column{Name: "Infant.Mortality", Values: []float64{5, 3, 8, 1, 7, 2, 6, 4}},
	)
	require.NoError(t, err)
	return ds
}

func randomDataset(t *testing.T, columns, rows int, seed uint64) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	cols := make([]dataset.Column, columns)
	for c := range cols {
		values := make([]float64, rows)
		for i := range values {
			values[i] = rng.NormFloat64()*float64(c+1) + float64(c)
		}
		cols[c] = dataset.Column{Name: "v" + strconv.Itoa(c), Values: values}
	}
	ds, err := dataset.New(cols...)
	require.NoError(t, err)
	return ds
}

func TestComputeCorrelationMatrixProperties(t *testing.T) {
	service := NewStatisticsService(0)
	ds := swissLikeDataset(t)

	m, err := service.ComputeCorrelationMatrix(ds)
	require.NoError(t, err)
	require.Equal(t, ds.NumColumns(), m.Size())
	assert.Equal(t, ds.Names(), m.Names())

	for i := 0; i < m.Size(); i++ {
		assert.Equal(t, 1.0, m.At(i, i), "対角成分は1.0")
		for j := 0; j < m.Size(); j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i), "対称")
			assert.LessOrEqual(t, math.Abs(ClampCorrelation(m.At(i, j))), 1.0)
		}
	}

	r, ok := m.Get("Fertility", "Education")
	require.True(t, ok)
	assert.InDelta(t, -41.0/42.0, r, 1e-12)

	_, ok = m.Get("Fertility", "Unknown")
	assert.False(t, ok)
}

func TestComputeCorrelationMatrixIsDeterministic(t *testing.T) {
	service := NewStatisticsService(0)
	ds := randomDataset(t, 6, 40, 7)

	first, err := service.ComputeCorrelationMatrix(ds)
	require.NoError(t, err)
	second, err := service.ComputeCorrelationMatrix(ds)
	require.NoError(t, err)
	assert.Equal(t, first.Rows(), second.Rows())
}

func TestComputeCorrelationMatrixParallelMatchesSerial(t *testing.T) {
	ds := randomDataset(t, 20, 50, 42)

	serial := NewStatisticsService(0)
	parallel := NewStatisticsService(2)
	parallel.workers = 4

	want, err := serial.ComputeCorrelationMatrix(ds)
	require.NoError(t, err)
	got, err := parallel.ComputeCorrelationMatrix(ds)
	require.NoError(t, err)
	assert.Equal(t, want.Rows(), got.Rows())
}

func TestComputeCorrelationMatrixSmall(t *testing.T) {
	service := NewStatisticsService(0)

	empty, err := dataset.New()
	require.NoError(t, err)
	m, err := service.ComputeCorrelationMatrix(empty)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Size())
	assert.Empty(t, m.Rows())
	assert.Nil(t, m.Symmetric())

	single, err := dataset.New(dataset.Column{Name: "a", Values: []float64{1, 2, 3}})
	require.NoError(t, err)
	m, err = service.ComputeCorrelationMatrix(single)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1.0}}, m.Rows())
}

func TestComputeCorrelationMatrixDegenerateColumn(t *testing.T) {
	ds, err := dataset.New(
		dataset.Column{Name: "a", Values: []float64{1, 2, 3, 4}},
		dataset.Column{Name: "Const", Values: []float64{5, 5, 5, 5}},
	)
	require.NoError(t, err)

	for _, threshold := range []int{0, 2} {
		service := NewStatisticsService(threshold)
		service.workers = 2
		_, err = service.ComputeCorrelationMatrix(ds)

		var de *DegenerateInputError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, []string{"Const"}, de.Columns)
	}
}

func TestSelectTopK(t *testing.T) {
	service := NewStatisticsService(0)
	ds := swissLikeDataset(t)

	names, err := service.SelectTopK(ds, "Fertility", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fertility", "Examination", "Education", "Catholic"}, names)

	// 件数が変数の数を超えた場合は全変数を返す
	names, err = service.SelectTopK(ds, "Fertility", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fertility", "Examination", "Education", "Catholic", "Agriculture", "Infant.Mortality"}, names)

	names, err = service.SelectTopK(ds, "Fertility", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fertility"}, names)
}

func TestSelectTopKTiesKeepColumnOrder(t *testing.T) {
	service := NewStatisticsService(0)
	ds, err := dataset.New(
		dataset.Column{Name: "t", Values: []float64{1, 2, 3, 4}},
		dataset.Column{Name: "neg", Values: []float64{4, 3, 2, 1}},
		dataset.Column{Name: "pos", Values: []float64{2, 4, 6, 8}},
	)
	require.NoError(t, err)

	names, err := service.SelectTopK(ds, "t", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "neg", "pos"}, names)
}

func TestSelectTopKInvalid(t *testing.T) {
	service := NewStatisticsService(0)
	ds := swissLikeDataset(t)

	_, err := service.SelectTopK(ds, "Unknown", 3)
	var se *InvalidSelectionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Unknown", se.Target)

	_, err = service.SelectTopK(ds, "Fertility", 0)
	assert.True(t, errors.As(err, &se))
}

func TestComputeTopKMatrix(t *testing.T) {
	service := NewStatisticsService(0)
	ds := swissLikeDataset(t)

	m, err := service.ComputeTopKMatrix(ds, "Fertility", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fertility", "Examination", "Education", "Catholic"}, m.Names())
	assert.InDelta(t, 1.0, m.At(0, 1), 1e-12)
	assert.InDelta(t, 38.0/42.0, m.At(0, 3), 1e-12)
}

func TestSummarizePairs(t *testing.T) {
	service := NewStatisticsService(0)
	ds := swissLikeDataset(t)
	m, err := service.ComputeCorrelationMatrix(ds)
	require.NoError(t, err)

	pairs := service.SummarizePairs(m, ds.Len())
	require.Len(t, pairs, 15)
	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, math.Abs(pairs[i-1].CorrelationCoef), math.Abs(pairs[i].CorrelationCoef))
	}
	assert.Equal(t, ds.Len(), pairs[0].SampleSize)
	assert.NotEmpty(t, pairs[0].Interpretation)
}
