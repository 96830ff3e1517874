// Package dataset はCSV/Excelなどから読み込んだ数値列の表を表現する。
//
// Datasetは生成後に変更されない。列の値は呼び出し側から渡されたスライスを
// コピーして保持するため、元のスライスを書き換えても影響しない。
package dataset

import (
	"fmt"
	"strings"
)

// Column 名前付きの数値列
type Column struct {
	Name   string
	Values []float64
}

// Dataset 名前付き数値列の順序付き集合。全列の行数は等しい。
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New 列からDatasetを作成する
func New(columns ...Column) (*Dataset, error) {
	ds := &Dataset{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		name := strings.TrimSpace(col.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: 列%d", ErrEmptyColumnName, i+1)
		}
		if _, dup := ds.index[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
		}
		if i == 0 {
			ds.rows = len(col.Values)
		} else if len(col.Values) != ds.rows {
			return nil, fmt.Errorf("%w: %s は%d行、先頭列は%d行", ErrLengthMismatch, name, len(col.Values), ds.rows)
		}
		values := make([]float64, len(col.Values))
		copy(values, col.Values)
		ds.index[name] = len(ds.columns)
		ds.columns = append(ds.columns, Column{Name: name, Values: values})
	}
	return ds, nil
}

// Names 列名を元の順序で返す
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// NumColumns 列数
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Len 行数（観測数）
func (d *Dataset) Len() int { return d.rows }

// ColumnAt i番目の列の値を返す。戻り値は内部のスライスなので書き換えてはならない。
func (d *Dataset) ColumnAt(i int) []float64 {
	return d.columns[i].Values
}

// NameAt i番目の列名
func (d *Dataset) NameAt(i int) string {
	return d.columns[i].Name
}

// Column 名前で列を取得する。戻り値は書き換えてはならない。
func (d *Dataset) Column(name string) ([]float64, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i].Values, true
}

// IndexOf 列名の位置を返す（存在しない場合は-1）
func (d *Dataset) IndexOf(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// Select 指定した列だけを指定順に並べた新しいDatasetを返す
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		values, ok := d.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		cols = append(cols, Column{Name: name, Values: values})
	}
	return New(cols...)
}
