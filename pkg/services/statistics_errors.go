package services

import (
	"errors"
	"fmt"
	"strings"
)

// DegenerateInputError 相関係数が数学的に定義できない入力
// （観測数が2未満、分散が0、非有限値を含む）
type DegenerateInputError struct {
	Columns      []string // 対象の列名（分かる場合）
	Observations int
	Reason       string
}

func (e *DegenerateInputError) Error() string {
	if len(e.Columns) > 0 {
		return fmt.Sprintf("相関係数を計算できません（%s）: %s", strings.Join(e.Columns, " × "), e.Reason)
	}
	return fmt.Sprintf("相関係数を計算できません: %s", e.Reason)
}

// InsufficientVariablesError 相関行列の描画に必要な変数（2つ以上）が足りない
type InsufficientVariablesError struct {
	Got int
}

func (e *InsufficientVariablesError) Error() string {
	return fmt.Sprintf("変数が%d個しかありません。散布図行列には2個以上の変数が必要です", e.Got)
}

// InvalidSelectionError 上位k変数の選択条件が不正
type InvalidSelectionError struct {
	Target string
	Count  int
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("変数の絞り込み条件が不正です（target=%q, count=%d）: %s", e.Target, e.Count, e.Reason)
}

var (
	// ErrInvalidRenderOption 描画オプション（セルサイズ、カラーマップなど）が不正
	ErrInvalidRenderOption = errors.New("描画オプションが不正です")
	// ErrInvalidParameter 疑似データ生成などのパラメータが不正
	ErrInvalidParameter = errors.New("パラメータが不正です")
)
