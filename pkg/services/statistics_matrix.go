package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"stats-lab-api/pkg/dataset"
	"stats-lab-api/pkg/models"

	"gonum.org/v1/gonum/mat"
)

// CorrelationMatrix 変数名で添字付けされた対称な相関行列。対角成分は常に1.0。
// 呼び出しごとに新しく作られ、キャッシュはしない。
type CorrelationMatrix struct {
	names []string
	index map[string]int
	sym   *mat.SymDense // 変数が0個のときはnil
}

func newCorrelationMatrix(names []string) *CorrelationMatrix {
	m := &CorrelationMatrix{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		m.index[name] = i
	}
	if len(names) > 0 {
		m.sym = mat.NewSymDense(len(names), nil)
		for i := range names {
			m.sym.SetSym(i, i, 1.0)
		}
	}
	return m
}

// Names 変数名を行列の並び順で返す
func (m *CorrelationMatrix) Names() []string {
	return append([]string(nil), m.names...)
}

// Size 変数の数
func (m *CorrelationMatrix) Size() int { return len(m.names) }

// At i行j列の相関係数
func (m *CorrelationMatrix) At(i, j int) float64 {
	return m.sym.At(i, j)
}

// Get 変数名の組で相関係数を取得する
func (m *CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	return m.sym.At(i, j), true
}

// Rows 行列を2次元スライスとして返す（JSON出力用）
func (m *CorrelationMatrix) Rows() [][]float64 {
	k := len(m.names)
	rows := make([][]float64, k)
	for i := 0; i < k; i++ {
		rows[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			rows[i][j] = m.sym.At(i, j)
		}
	}
	return rows
}

// Symmetric gonumの対称行列として返す（変数が0個ならnil）
func (m *CorrelationMatrix) Symmetric() mat.Symmetric {
	if m.sym == nil {
		return nil
	}
	return m.sym
}

type columnPair struct {
	i, j int
}

// ComputeCorrelationMatrix データセットの全ての列の組の相関係数を計算する。
// 各組は1回だけ計算して対称位置に反映し、対角成分は計算せず1.0とする。
// 列が2未満のときはエラーにせず、空または1×1の行列を返す。
func (s *StatisticsService) ComputeCorrelationMatrix(ds *dataset.Dataset) (*CorrelationMatrix, error) {
	k := ds.NumColumns()
	m := newCorrelationMatrix(ds.Names())
	if k < 2 {
		log.Printf("📊 [相関行列] 変数が%d個のため、ペアの計算はありません", k)
		return m, nil
	}

	pairs := make([]columnPair, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			pairs = append(pairs, columnPair{i: i, j: j})
		}
	}

	errs := make([]error, len(pairs))
	compute := func(p int) {
		pair := pairs[p]
		r, err := s.CalculateCorrelation(ds.ColumnAt(pair.i), ds.ColumnAt(pair.j))
		if err != nil {
			errs[p] = annotatePairError(ds, pair, err)
			return
		}
		// 各組は異なる要素に書き込むため、並列実行でもロックは不要
		m.sym.SetSym(pair.i, pair.j, r)
	}

	if s.parallelThreshold > 0 && k >= s.parallelThreshold && s.workers > 1 {
		s.runParallel(len(pairs), compute)
	} else {
		for p := range pairs {
			compute(p)
			if errs[p] != nil {
				return nil, errs[p]
			}
		}
	}

	// 並列実行時も先頭の組のエラーを返し、結果を決定的にする
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// runParallel n個の独立した計算をワーカーに分配する
func (s *StatisticsService) runParallel(n int, compute func(int)) {
	workers := s.workers
	if workers > n {
		workers = n
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				compute(p)
			}
		}()
	}
	for p := 0; p < n; p++ {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
}

// annotatePairError 計算エラーに列名を付ける
func annotatePairError(ds *dataset.Dataset, pair columnPair, err error) error {
	var de *DegenerateInputError
	if errors.As(err, &de) {
		cols := []string{ds.NameAt(pair.i), ds.NameAt(pair.j)}
		// 分散0の列が分かればその列だけを示す
		if isConstant(ds.ColumnAt(pair.i)) && de.Observations >= 2 {
			cols = []string{ds.NameAt(pair.i)}
		} else if isConstant(ds.ColumnAt(pair.j)) && de.Observations >= 2 {
			cols = []string{ds.NameAt(pair.j)}
		}
		return &DegenerateInputError{Columns: cols, Observations: de.Observations, Reason: de.Reason}
	}
	return fmt.Errorf("%s × %s: %w", ds.NameAt(pair.i), ds.NameAt(pair.j), err)
}

// SelectTopK 基準変数との相関係数の絶対値が大きい順にcount個の列名を返す。
// 基準変数自身を先頭に含み、同値の場合は元の列順を優先する。
// countが列数を超える場合はエラーにせず列数に切り詰める。
func (s *StatisticsService) SelectTopK(ds *dataset.Dataset, target string, count int) ([]string, error) {
	ti := ds.IndexOf(target)
	if ti < 0 {
		return nil, &InvalidSelectionError{Target: target, Count: count, Reason: "基準変数がデータセットに存在しません"}
	}
	if count < 1 {
		return nil, &InvalidSelectionError{Target: target, Count: count, Reason: "countは1以上を指定してください"}
	}
	k := ds.NumColumns()
	if count > k {
		log.Printf("⚠️ [上位k変数] count=%d が変数の数%dを超えているため、%dに切り詰めます", count, k, k)
		count = k
	}

	type scored struct {
		name string
		absR float64
	}
	others := make([]scored, 0, k-1)
	for i := 0; i < k; i++ {
		if i == ti {
			continue
		}
		r, err := s.CalculateCorrelation(ds.ColumnAt(ti), ds.ColumnAt(i))
		if err != nil {
			return nil, annotatePairError(ds, columnPair{i: ti, j: i}, err)
		}
		others = append(others, scored{name: ds.NameAt(i), absR: math.Abs(r)})
	}
	sort.SliceStable(others, func(a, b int) bool {
		return others[a].absR > others[b].absR
	})

	selected := make([]string, 0, count)
	selected = append(selected, target)
	for _, o := range others[:count-1] {
		selected = append(selected, o.name)
	}
	log.Printf("📊 [上位k変数] %s と相関が強い%d変数: %v", target, count-1, selected[1:])
	return selected, nil
}

// ComputeTopKMatrix 上位k変数に絞り込み、その並び順で相関行列を計算する
func (s *StatisticsService) ComputeTopKMatrix(ds *dataset.Dataset, target string, count int) (*CorrelationMatrix, error) {
	names, err := s.SelectTopK(ds, target, count)
	if err != nil {
		return nil, err
	}
	sub, err := ds.Select(names...)
	if err != nil {
		return nil, err
	}
	return s.ComputeCorrelationMatrix(sub)
}

// SummarizePairs 上三角の各組について相関係数・p値・解釈をまとめ、|r|の降順に並べる
func (s *StatisticsService) SummarizePairs(m *CorrelationMatrix, sampleSize int) []models.CorrelationResult {
	k := m.Size()
	results := make([]models.CorrelationResult, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			r := m.At(i, j)
			p := s.CalculatePValue(r, sampleSize)
			results = append(results, models.CorrelationResult{
				VariableX:       m.names[i],
				VariableY:       m.names[j],
				CorrelationCoef: r,
				PValue:          p,
				SampleSize:      sampleSize,
				Interpretation:  s.InterpretCorrelation(r, p),
			})
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return math.Abs(results[a].CorrelationCoef) > math.Abs(results[b].CorrelationCoef)
	})
	return results
}
