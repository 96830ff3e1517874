package services

import (
	"image/color"
	"math"
	"sort"
	"strings"
)

// DefaultColorMap 係数ラベルの背景に使う既定の発散型カラーマップ
const DefaultColorMap = "seismic"

// ColorMap 等間隔のアンカー色を線形補間するカラーマップ
type ColorMap struct {
	name    string
	anchors []color.RGBA
}

// matplotlibの同名カラーマップに合わせたアンカー色（負→0→正）
var colorMaps = map[string]ColorMap{
	"seismic": {name: "seismic", anchors: []color.RGBA{
		{0, 0, 77, 255}, {0, 0, 255, 255}, {255, 255, 255, 255}, {255, 0, 0, 255}, {128, 0, 0, 255},
	}},
	"bwr": {name: "bwr", anchors: []color.RGBA{
		{0, 0, 255, 255}, {255, 255, 255, 255}, {255, 0, 0, 255},
	}},
	"coolwarm": {name: "coolwarm", anchors: []color.RGBA{
		{59, 76, 192, 255}, {221, 221, 221, 255}, {180, 4, 38, 255},
	}},
	"RdBu": {name: "RdBu", anchors: []color.RGBA{
		{103, 0, 31, 255}, {178, 24, 43, 255}, {214, 96, 77, 255}, {244, 165, 130, 255},
		{253, 219, 199, 255}, {247, 247, 247, 255}, {209, 229, 240, 255}, {146, 197, 222, 255},
		{67, 147, 195, 255}, {33, 102, 172, 255}, {5, 48, 97, 255},
	}},
	"Spectral": {name: "Spectral", anchors: []color.RGBA{
		{158, 1, 66, 255}, {213, 62, 79, 255}, {244, 109, 67, 255}, {253, 174, 97, 255},
		{254, 224, 139, 255}, {255, 255, 191, 255}, {230, 245, 152, 255}, {171, 221, 164, 255},
		{102, 194, 165, 255}, {50, 136, 189, 255}, {94, 79, 162, 255},
	}},
}

// LookupColorMap 名前からカラーマップを探す（大文字小文字は区別しない）
func LookupColorMap(name string) (ColorMap, bool) {
	if cm, ok := colorMaps[name]; ok {
		return cm, true
	}
	for key, cm := range colorMaps {
		if strings.EqualFold(key, name) {
			return cm, true
		}
	}
	return ColorMap{}, false
}

// ColorMapNames 使用できるカラーマップ名（昇順）
func ColorMapNames() []string {
	names := make([]string, 0, len(colorMaps))
	for name := range colorMaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name カラーマップ名
func (c ColorMap) Name() string { return c.name }

// At t∈[0, 1]に対応する色。範囲外は端の色になる
func (c ColorMap) At(t float64) color.RGBA {
	if math.IsNaN(t) || t <= 0 {
		return c.anchors[0]
	}
	last := len(c.anchors) - 1
	if t >= 1 {
		return c.anchors[last]
	}
	pos := t * float64(last)
	i := int(pos)
	frac := pos - float64(i)
	a, b := c.anchors[i], c.anchors[i+1]
	return color.RGBA{
		R: lerp8(a.R, b.R, frac),
		G: lerp8(a.G, b.G, frac),
		B: lerp8(a.B, b.B, frac),
		A: 255,
	}
}

// Value [vmin, vmax]の値に対応する色。スケールはデータによらず固定で使う
func (c ColorMap) Value(v, vmin, vmax float64) color.RGBA {
	return c.At((v - vmin) / (vmax - vmin))
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// textColorFor 背景の明るさに応じて黒か白の文字色を選ぶ
func textColorFor(bg color.RGBA) color.RGBA {
	luminance := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luminance < 128 {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{0, 0, 0, 255}
}
