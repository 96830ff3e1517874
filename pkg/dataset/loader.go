package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadReport 読み込み時にスキップした列・行の情報
type LoadReport struct {
	SkippedColumns []string `json:"skipped_columns"` // 数値として解釈できなかった列
	DroppedRows    int      `json:"dropped_rows"`    // 欠損値を含むため除外した行数
	TotalRows      int      `json:"total_rows"`
}

// missingTokens 欠損値として扱う文字列（pandasの既定に合わせる）
var missingTokens = map[string]bool{
	"":    true,
	"NA":  true,
	"N/A": true,
	"NaN": true,
	"nan": true,
	"-":   true,
}

// LoadFile ファイル名の拡張子に応じてCSVまたはExcelとして読み込む
func LoadFile(fileName string, r io.Reader) (*Dataset, *LoadReport, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return LoadCSV(r)
	case ".xlsx":
		return LoadXLSX(r)
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
}

// LoadCSV 先頭行をヘッダーとしてCSVを読み込む
func LoadCSV(r io.Reader) (*Dataset, *LoadReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("CSVファイルの解析に失敗: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, ErrNoData
	}
	return FromRecords(rows[0], rows[1:])
}

// LoadXLSX 先頭シートをExcelから読み込む
func LoadXLSX(r io.Reader) (*Dataset, *LoadReport, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("Excelファイルの読み込みに失敗: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("Excelシートの行取得に失敗: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, ErrNoData
	}
	return FromRecords(rows[0], rows[1:])
}

// FromRecords ヘッダーと文字列の行からDatasetを作る。
// 数値に変換できない値を含む列（地域名のインデックス列など）は除外し、
// 残った数値列のいずれかが欠損している行は行ごと除外する。
func FromRecords(header []string, rows [][]string) (*Dataset, *LoadReport, error) {
	if len(header) == 0 || len(rows) == 0 {
		return nil, nil, ErrNoData
	}
	report := &LoadReport{TotalRows: len(rows)}

	cell := func(row []string, j int) string {
		if j < len(row) {
			return strings.TrimSpace(row[j])
		}
		return ""
	}

	// 列ごとに数値列かどうかを判定
	numeric := make([]bool, len(header))
	for j := range header {
		numeric[j] = true
		present := 0
		for _, row := range rows {
			v := cell(row, j)
			if missingTokens[v] {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric[j] = false
				break
			}
			present++
		}
		if present == 0 {
			numeric[j] = false
		}
		if !numeric[j] {
			report.SkippedColumns = append(report.SkippedColumns, columnName(header[j], j))
		}
	}

	columns := make([]Column, 0, len(header))
	colIdx := make([]int, 0, len(header))
	for j := range header {
		if numeric[j] {
			columns = append(columns, Column{Name: columnName(header[j], j)})
			colIdx = append(colIdx, j)
		}
	}
	if len(columns) == 0 {
		return nil, report, ErrNoNumericColumns
	}

	for _, row := range rows {
		values := make([]float64, len(colIdx))
		complete := true
		for k, j := range colIdx {
			v := cell(row, j)
			if missingTokens[v] {
				complete = false
				break
			}
			f, _ := strconv.ParseFloat(v, 64)
			values[k] = f
		}
		if !complete {
			report.DroppedRows++
			continue
		}
		for k := range columns {
			columns[k].Values = append(columns[k].Values, values[k])
		}
	}

	if len(report.SkippedColumns) > 0 {
		log.Printf("📋 [データ読込] 数値以外の列を除外しました: %v", report.SkippedColumns)
	}
	if report.DroppedRows > 0 {
		log.Printf("⚠️ [データ読込] 欠損値を含む%d行を除外しました（全%d行）", report.DroppedRows, report.TotalRows)
	}

	ds, err := New(columns...)
	if err != nil {
		return nil, report, err
	}
	return ds, report, nil
}

// columnName 空のヘッダーにはpandasと同様の仮名を付ける
func columnName(h string, j int) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return fmt.Sprintf("Unnamed: %d", j)
	}
	return h
}
