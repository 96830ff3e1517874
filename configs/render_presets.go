package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RenderPreset は散布図行列・ヒートマップの描画プリセット
type RenderPreset struct {
	Description   string  `yaml:"description"`
	CellSize      float64 `yaml:"cell_size"`
	ColorMap      string  `yaml:"colormap"`
	HistogramBins int     `yaml:"histogram_bins,omitempty"`
	TopK          *struct {
		Target string `yaml:"target"`
		Count  int    `yaml:"count"`
	} `yaml:"top_k,omitempty"`
}

// RenderPresets はrender_presets.yamlの構造を定義
type RenderPresets struct {
	Version string                  `yaml:"version"`
	Presets map[string]RenderPreset `yaml:"presets"`
}

// DefaultRenderPresetsPath プリセットファイルの既定パス
const DefaultRenderPresetsPath = "configs/render_presets.yaml"

//go:embed render_presets.yaml
var embeddedRenderPresets []byte

// DefaultRenderPresets バイナリに埋め込んだプリセット
func DefaultRenderPresets() (*RenderPresets, error) {
	return ParseRenderPresets(embeddedRenderPresets)
}

// LoadRenderPresetsOrDefault ファイルがなければ埋め込みのプリセットを使う。
// ファイルが壊れている場合も警告を出して埋め込みのプリセットにフォールバックする。
func LoadRenderPresetsOrDefault(path string) *RenderPresets {
	presets, err := LoadRenderPresets(path)
	if err == nil {
		log.Printf("✅ 描画プリセットを読み込みました: %s（%d件）", path, len(presets.Presets))
		return presets
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ 描画プリセット %s を使用できません: %v", path, err)
	}
	presets, err = DefaultRenderPresets()
	if err != nil {
		log.Printf("⚠️ 埋め込みの描画プリセットを解析できません: %v", err)
		return &RenderPresets{Presets: map[string]RenderPreset{}}
	}
	return presets
}

// LoadRenderPresets YAMLファイルから描画プリセットを読み込む
func LoadRenderPresets(path string) (*RenderPresets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("描画プリセットファイルの読み込みに失敗: %w", err)
	}
	return ParseRenderPresets(data)
}

// ParseRenderPresets YAMLのバイト列から描画プリセットを解析する
func ParseRenderPresets(data []byte) (*RenderPresets, error) {
	var presets RenderPresets
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("YAMLのパースに失敗: %w", err)
	}
	if presets.Presets == nil {
		presets.Presets = make(map[string]RenderPreset)
	}
	for name, p := range presets.Presets {
		if p.CellSize < 0 {
			return nil, fmt.Errorf("プリセット %q のcell_sizeが負の値です: %g", name, p.CellSize)
		}
		if p.TopK != nil && (p.TopK.Target == "" || p.TopK.Count < 1) {
			return nil, fmt.Errorf("プリセット %q のtop_kにはtargetと1以上のcountが必要です", name)
		}
	}
	return &presets, nil
}

// Lookup 名前でプリセットを取得（大文字小文字は区別しない）
func (r *RenderPresets) Lookup(name string) (RenderPreset, bool) {
	if r == nil {
		return RenderPreset{}, false
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	for key, p := range r.Presets {
		if strings.EqualFold(key, name) {
			return p, true
		}
	}
	return RenderPreset{}, false
}

// Names 登録済みプリセット名をソートして返す
func (r *RenderPresets) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Presets))
	for name := range r.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
