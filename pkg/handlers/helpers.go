package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/dataset"
	"stats-lab-api/pkg/models"
	"stats-lab-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// requestError リクエストの形式が不正（400）
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

var datasetErrors = []error{
	dataset.ErrEmptyColumnName,
	dataset.ErrDuplicateColumn,
	dataset.ErrLengthMismatch,
	dataset.ErrColumnNotFound,
	dataset.ErrNoData,
	dataset.ErrNoNumericColumns,
	dataset.ErrUnsupportedFormat,
}

// classifyError エラーをHTTPステータスとエラー種別に対応付ける
func classifyError(err error) (int, string) {
	var (
		degenerate   *services.DegenerateInputError
		insufficient *services.InsufficientVariablesError
		selection    *services.InvalidSelectionError
		tooLarge     *http.MaxBytesError
		reqErr       *requestError
	)
	switch {
	case errors.As(err, &degenerate):
		return http.StatusUnprocessableEntity, "degenerate_input"
	case errors.As(err, &insufficient):
		return http.StatusBadRequest, "insufficient_variables"
	case errors.As(err, &selection):
		return http.StatusBadRequest, "invalid_selection"
	case errors.Is(err, services.ErrInvalidRenderOption):
		return http.StatusBadRequest, "invalid_render_option"
	case errors.Is(err, services.ErrInvalidParameter):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, "bad_request"
	}
	for _, target := range datasetErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, "invalid_dataset"
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondError エラーを共通形式のJSONで返す
func respondError(c *gin.Context, err error) {
	status, kind := classifyError(err)
	services.MarkErrorKind(c, kind)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ [%s] %v", c.Request.URL.Path, err)
	} else {
		log.Printf("⚠️ [%s] %s: %v", c.Request.URL.Path, kind, err)
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Kind:    kind,
	})
}

// readDataset multipartの場合はfileフィールドのCSV/Excelを、それ以外はJSONの列データを読み込む
func readDataset(c *gin.Context, maxUploadMB int) (*dataset.Dataset, *dataset.LoadReport, error) {
	if maxUploadMB > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(maxUploadMB)<<20)
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, nil, err
			}
			return nil, nil, &requestError{msg: "ファイルの取得に失敗しました", err: err}
		}
		defer file.Close()

		ds, report, err := dataset.LoadFile(header.Filename, file)
		if err != nil {
			if isDatasetError(err) {
				return nil, nil, err
			}
			return nil, nil, &requestError{msg: "ファイルを読み込めません", err: err}
		}
		log.Printf("📂 [データ読み込み] %s: %d列 × %d行（除外: 列%v, 行%d）",
			header.Filename, ds.NumColumns(), ds.Len(), report.SkippedColumns, report.DroppedRows)
		return ds, report, nil
	}

	var req models.DatasetRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, err
		}
		return nil, nil, &requestError{msg: "JSONの解析に失敗しました", err: err}
	}
	columns := make([]dataset.Column, len(req.Columns))
	for i, col := range req.Columns {
		columns[i] = dataset.Column{Name: col.Name, Values: col.Values}
	}
	ds, err := dataset.New(columns...)
	if err != nil {
		return nil, nil, err
	}
	return ds, &dataset.LoadReport{TotalRows: ds.Len()}, nil
}

func isDatasetError(err error) bool {
	for _, target := range datasetErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// param クエリ文字列、なければフォームの値
func param(c *gin.Context, key string) string {
	if v, ok := c.GetQuery(key); ok {
		return strings.TrimSpace(v)
	}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return strings.TrimSpace(c.PostForm(key))
	}
	return ""
}

func intParam(c *gin.Context, key string, defaultValue int) (int, error) {
	v := param(c, key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%s は整数で指定してください（%q）", key, v)
	}
	return n, nil
}

// limitOrDefault 0以下の上限設定は既定値として扱う
func limitOrDefault(limit, defaultValue int) int {
	if limit < 1 {
		return defaultValue
	}
	return limit
}

// checkLimit 上限を超える指定を弾く
func checkLimit(key string, value, limit int) error {
	if value > limit {
		return fmt.Errorf("%s は%d以下で指定してください（%d）: %w", key, limit, value, services.ErrInvalidParameter)
	}
	return nil
}

func floatParam(c *gin.Context, key string, defaultValue float64) (float64, error) {
	v := param(c, key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, badRequest("%s は数値で指定してください（%q）", key, v)
	}
	return f, nil
}

func uint64Param(c *gin.Context, key string, defaultValue uint64) (uint64, error) {
	v := param(c, key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, badRequest("%s は0以上の整数で指定してください（%q）", key, v)
	}
	return n, nil
}

// allVariables top_kを省略したときの値。全変数を基準変数との相関の順に並べる
const allVariables = -1

// resolveTopK top_kの省略をデータセットの変数の数に置き換える
func resolveTopK(sel *services.TopKSelection, ds *dataset.Dataset) *services.TopKSelection {
	if sel == nil || sel.Count != allVariables {
		return sel
	}
	return &services.TopKSelection{Target: sel.Target, Count: ds.NumColumns()}
}

// renderOptions プリセット → 個別パラメータの順に描画オプションを組み立てる
func renderOptions(c *gin.Context, presets *config.RenderPresets) (services.PairwiseOptions, error) {
	var opts services.PairwiseOptions

	if name := param(c, "preset"); name != "" {
		preset, ok := presets.Lookup(name)
		if !ok {
			return opts, badRequest("プリセット %q は存在しません（使用可能: %v）", name, presets.Names())
		}
		opts.CellSize = preset.CellSize
		opts.ColorMap = preset.ColorMap
		opts.HistogramBins = preset.HistogramBins
		if preset.TopK != nil {
			opts.TopK = &services.TopKSelection{Target: preset.TopK.Target, Count: preset.TopK.Count}
		}
	}

	cellSize, err := floatParam(c, "cell_size", opts.CellSize)
	if err != nil {
		return opts, err
	}
	opts.CellSize = cellSize
	if cmap := param(c, "cmap"); cmap != "" {
		opts.ColorMap = cmap
	}
	bins, err := intParam(c, "bins", opts.HistogramBins)
	if err != nil {
		return opts, err
	}
	opts.HistogramBins = bins

	if target := param(c, "target"); target != "" {
		count, err := intParam(c, "top_k", allVariables)
		if err != nil {
			return opts, err
		}
		opts.TopK = &services.TopKSelection{Target: target, Count: count}
	}
	return opts, nil
}
