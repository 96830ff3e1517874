package dataset

import "errors"

var (
	// ErrEmptyColumnName 列名が空
	ErrEmptyColumnName = errors.New("列名が空です")
	// ErrDuplicateColumn 列名が重複している
	ErrDuplicateColumn = errors.New("列名が重複しています")
	// ErrLengthMismatch 列の行数が揃っていない
	ErrLengthMismatch = errors.New("列の行数が一致しません")
	// ErrColumnNotFound 指定した列が存在しない
	ErrColumnNotFound = errors.New("列が見つかりません")
	// ErrNoData ヘッダー行またはデータ行がない
	ErrNoData = errors.New("ファイルにはヘッダー行と少なくとも1行のデータが必要です")
	// ErrNoNumericColumns 数値列が1つもない
	ErrNoNumericColumns = errors.New("数値列が見つかりません")
	// ErrUnsupportedFormat 対応していないファイル形式
	ErrUnsupportedFormat = errors.New("サポートされていないファイル形式です。.xlsxまたは.csvをアップロードしてください")
)
