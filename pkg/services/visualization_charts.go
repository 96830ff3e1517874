package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"stats-lab-api/pkg/models"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
)

var (
	pointColor     = drawing.Color{R: 31, G: 119, B: 180, A: 200}
	histogramFill  = drawing.Color{R: 31, G: 119, B: 180, A: 160}
	histogramEdge  = drawing.Color{R: 20, G: 80, B: 130, A: 255}
	curveGiniColor = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	curveEntropy   = drawing.Color{R: 214, G: 39, B: 40, A: 255}
)

// renderChart go-chartでPNGに描画し、合成用にデコードする
func renderChart(ch chart.Chart) (image.Image, error) {
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("グラフの描画に失敗: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("グラフ画像のデコードに失敗: %w", err)
	}
	return img, nil
}

// paddedRange データの範囲を上下5%広げる
func paddedRange(values []float64) *chart.ContinuousRange {
	lo, hi := floats.Min(values), floats.Max(values)
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 0.5
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// cellChart 軸を表示しないセル用のグラフ
func cellChart(w, h int, xr, yr *chart.ContinuousRange, series chart.Series) chart.Chart {
	return chart.Chart{
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 3, Left: 3, Right: 3, Bottom: 3}},
		XAxis:      chart.XAxis{Style: chart.Style{Hidden: true}, Range: xr},
		YAxis:      chart.YAxis{Style: chart.Style{Hidden: true}, Range: yr},
		Series:     []chart.Series{series},
	}
}

// scatterCell x（列の変数）とy（行の変数）の散布図
func scatterCell(x, y []float64, w, h int) (image.Image, error) {
	dot := math.Max(1.5, float64(w)/60)
	series := chart.ContinuousSeries{
		XValues: x,
		YValues: y,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    dot,
			DotColor:    pointColor,
		},
	}
	return renderChart(cellChart(w, h, paddedRange(x), paddedRange(y), series))
}

// histogramCell 度数分布を階段状の塗りつぶしで描く
func histogramCell(bins []models.HistogramBin, w, h int) (image.Image, error) {
	xs := make([]float64, 0, 2*len(bins)+2)
	ys := make([]float64, 0, 2*len(bins)+2)
	maxCount := 0
	xs = append(xs, bins[0].Lower)
	ys = append(ys, 0)
	for _, b := range bins {
		xs = append(xs, b.Lower, b.Upper)
		ys = append(ys, float64(b.Count), float64(b.Count))
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	xs = append(xs, bins[len(bins)-1].Upper)
	ys = append(ys, 0)

	lo, hi := bins[0].Lower, bins[len(bins)-1].Upper
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
		xs[0], xs[len(xs)-1] = lo, hi
		xs[1], xs[2] = lo, hi
	}
	series := chart.ContinuousSeries{
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeWidth: 1,
			StrokeColor: histogramEdge,
			FillColor:   histogramFill,
		},
	}
	xr := &chart.ContinuousRange{Min: lo, Max: hi}
	yr := &chart.ContinuousRange{Min: 0, Max: float64(maxCount) * 1.05}
	return renderChart(cellChart(w, h, xr, yr, series))
}

// syntheticScatterChart 中心化した疑似データの散布図（500×500）
func syntheticScatterChart(pair *SyntheticPair) (image.Image, error) {
	x := centered(pair.X)
	y := centered(pair.Y)
	limit := 1.1 * math.Max(
		math.Max(math.Abs(floats.Min(x)), math.Abs(floats.Max(x))),
		math.Max(math.Abs(floats.Min(y)), math.Abs(floats.Max(y))),
	)
	if limit == 0 {
		limit = 1
	}
	ch := chart.Chart{
		Title:  fmt.Sprintf("r = %.2f", ClampCorrelation(pair.RealizedCorrelation)),
		Width:  500,
		Height: 500,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{Name: "x", Range: &chart.ContinuousRange{Min: -limit, Max: limit}},
		YAxis: chart.YAxis{Name: "y", Range: &chart.ContinuousRange{Min: -limit, Max: limit}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: x,
				YValues: y,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    3,
					DotColor:    pointColor,
				},
			},
		},
	}
	return renderChart(ch)
}

// impurityChart ジニ不純度とエントロピーを横に並べた画像（1000×400）
func impurityChart(curves *models.ImpurityCurves) (image.Image, error) {
	if curves == nil || len(curves.Proportion) < 2 {
		return nil, fmt.Errorf("不純度曲線の評価点が足りません: %w", ErrInvalidParameter)
	}
	line := func(title string, ys []float64, ymax float64, col drawing.Color) chart.Chart {
		return chart.Chart{
			Title:      title,
			Width:      500,
			Height:     400,
			Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 24, Bottom: 16}},
			XAxis:      chart.XAxis{Name: "p", Range: &chart.ContinuousRange{Min: 0, Max: 1}},
			YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: ymax}},
			Series: []chart.Series{
				chart.ContinuousSeries{
					XValues: curves.Proportion,
					YValues: ys,
					Style:   chart.Style{StrokeWidth: 2, StrokeColor: col},
				},
			},
		}
	}
	gini, err := renderChart(line("Gini impurity", curves.Gini, 0.55, curveGiniColor))
	if err != nil {
		return nil, err
	}
	entropy, err := renderChart(line("Entropy", curves.Entropy, 0.75, curveEntropy))
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, 1000, 400))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	placeImage(canvas, image.Rect(0, 0, 500, 400), gini)
	placeImage(canvas, image.Rect(500, 0, 1000, 400), entropy)
	return canvas, nil
}

// placeImage srcをrectに配置する。大きさが違う場合は拡大縮小する
func placeImage(dst draw.Image, rect image.Rectangle, src image.Image) {
	sb := src.Bounds()
	if sb.Dx() == rect.Dx() && sb.Dy() == rect.Dy() {
		draw.Draw(dst, rect, src, sb.Min, draw.Src)
		return
	}
	draw.ApproxBiLinear.Scale(dst, rect, src, sb, draw.Src, nil)
}
