package services

import (
	"fmt"
	"image"
	"image/color"

	"stats-lab-api/pkg/dataset"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	glyphWidth    = 7 // basicfont.Face7x13 の1文字の幅
	glyphAscent   = 11
	outerPadding  = 8
	cellGap       = 2
	maxLabelChars = 24
)

var (
	gridColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	labelColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// gridLayout k×kのセルを並べたときの各領域の位置
type gridLayout struct {
	k          int
	cell       int
	left       int
	top        int
	extraRight int // グリッドの右側に確保する幅（カラーバー用）
}

func newGridLayout(names []string, cell, extraRight int) gridLayout {
	widest := 0
	for _, name := range names {
		if n := len([]rune(fitLabel(name, maxLabelChars*glyphWidth))); n > widest {
			widest = n
		}
	}
	return gridLayout{
		k:          len(names),
		cell:       cell,
		left:       widest*glyphWidth + 12,
		top:        outerPadding,
		extraRight: extraRight,
	}
}

func (l gridLayout) size() (int, int) {
	w := l.left + l.k*l.cell + l.extraRight + outerPadding
	h := l.top + l.k*l.cell + glyphAscent + 2 + 12
	return w, h
}

// cellRect 行i列jのセル全体
func (l gridLayout) cellRect(i, j int) image.Rectangle {
	x := l.left + j*l.cell
	y := l.top + i*l.cell
	return image.Rect(x, y, x+l.cell, y+l.cell)
}

// innerRect セルの枠線の内側
func (l gridLayout) innerRect(i, j int) image.Rectangle {
	return l.cellRect(i, j).Inset(cellGap)
}

func (l gridLayout) gridRect() image.Rectangle {
	return image.Rect(l.left, l.top, l.left+l.k*l.cell, l.top+l.k*l.cell)
}

func newCanvas(w, h int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return canvas
}

// drawAxisLabels 行ラベルを左に右寄せ、列ラベルを下に中央寄せで描く
func drawAxisLabels(canvas *image.RGBA, l gridLayout, names []string) {
	for i, name := range names {
		label := fitLabel(name, maxLabelChars*glyphWidth)
		row := l.cellRect(i, 0)
		x := l.left - 6 - textWidth(label)
		y := row.Min.Y + (row.Dy()+glyphAscent)/2
		drawText(canvas, label, x, y, labelColor)

		col := l.cellRect(l.k-1, i)
		colLabel := fitLabel(name, col.Dx())
		drawText(canvas, colLabel, col.Min.X+(col.Dx()-textWidth(colLabel))/2, col.Max.Y+glyphAscent+4, labelColor)
	}
}

// composePairwise RenderSpecに従ってセルを描き、1枚の画像にまとめる
func (v *VisualizationService) composePairwise(ds *dataset.Dataset, m *CorrelationMatrix, rs RenderSpec) (*image.RGBA, error) {
	l := newGridLayout(rs.Variables, rs.CellPixels, 0)
	canvas := newCanvas(l.size())

	for i := range rs.Cells {
		for j, kind := range rs.Cells[i] {
			inner := l.innerRect(i, j)
			var err error
			switch kind {
			case CellCoefficient:
				drawCoefficientCell(canvas, inner, m.At(i, j), rs)
			case CellScatter:
				err = drawScatterCell(canvas, inner, ds.ColumnAt(j), ds.ColumnAt(i))
			case CellHistogram:
				err = drawHistogramCell(canvas, inner, ds.ColumnAt(i), rs.HistogramBins)
			}
			if err != nil {
				return nil, fmt.Errorf("%s × %s のセル: %w", rs.Variables[i], rs.Variables[j], err)
			}
			drawFrame(canvas, inner, gridColor)
		}
	}
	drawAxisLabels(canvas, l, rs.Variables)
	return canvas, nil
}

func drawCoefficientCell(canvas *image.RGBA, rect image.Rectangle, r float64, rs RenderSpec) {
	bg := rs.ColorMap.Value(ClampCorrelation(r), rs.VMin, rs.VMax)
	draw.Draw(canvas, rect, image.NewUniform(bg), image.Point{}, draw.Src)
	drawCenteredText(canvas, rect, FormatCorrelation(r), textColorFor(bg))
}

func drawScatterCell(canvas *image.RGBA, rect image.Rectangle, x, y []float64) error {
	img, err := scatterCell(x, y, rect.Dx(), rect.Dy())
	if err != nil {
		return err
	}
	placeImage(canvas, rect, img)
	return nil
}

func drawHistogramCell(canvas *image.RGBA, rect image.Rectangle, values []float64, bins int) error {
	img, err := histogramCell(histogram(sortedCopy(values), bins), rect.Dx(), rect.Dy())
	if err != nil {
		return err
	}
	placeImage(canvas, rect, img)
	return nil
}

// composeHeatmap 全セルを色で塗って係数を表示し、右側にカラーバーを描く
func composeHeatmap(m *CorrelationMatrix, cell int, cmap ColorMap) *image.RGBA {
	const (
		barGap   = 12
		barWidth = 16
		tickText = 5 * glyphWidth
	)
	names := m.Names()
	l := newGridLayout(names, cell, barGap+barWidth+6+tickText)
	canvas := newCanvas(l.size())

	for i := 0; i < m.Size(); i++ {
		for j := 0; j < m.Size(); j++ {
			rect := l.cellRect(i, j)
			r := m.At(i, j)
			bg := cmap.Value(ClampCorrelation(r), -1, 1)
			draw.Draw(canvas, rect, image.NewUniform(bg), image.Point{}, draw.Src)
			drawCenteredText(canvas, rect, FormatCorrelation(r), textColorFor(bg))
		}
	}
	drawAxisLabels(canvas, l, names)

	grid := l.gridRect()
	bar := image.Rect(grid.Max.X+barGap, grid.Min.Y, grid.Max.X+barGap+barWidth, grid.Max.Y)
	h := bar.Dy()
	for y := 0; y < h; y++ {
		t := 1 - float64(y)/float64(h-1)
		row := image.Rect(bar.Min.X, bar.Min.Y+y, bar.Max.X, bar.Min.Y+y+1)
		draw.Draw(canvas, row, image.NewUniform(cmap.At(t)), image.Point{}, draw.Src)
	}
	drawFrame(canvas, bar, labelColor)
	for _, tick := range []float64{1, 0.5, 0, -0.5, -1} {
		y := bar.Min.Y + int((1-(tick+1)/2)*float64(h-1))
		draw.Draw(canvas, image.Rect(bar.Max.X, y, bar.Max.X+4, y+1), image.NewUniform(labelColor), image.Point{}, draw.Src)
		drawText(canvas, fmt.Sprintf("%.1f", tick), bar.Max.X+6, y+glyphAscent/2, labelColor)
	}
	return canvas
}

func drawFrame(canvas *image.RGBA, rect image.Rectangle, col color.RGBA) {
	src := image.NewUniform(col)
	draw.Draw(canvas, image.Rect(rect.Min.X-1, rect.Min.Y-1, rect.Max.X+1, rect.Min.Y), src, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Min.X-1, rect.Max.Y, rect.Max.X+1, rect.Max.Y+1), src, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Min.X-1, rect.Min.Y, rect.Min.X, rect.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(rect.Max.X, rect.Min.Y, rect.Max.X+1, rect.Max.Y), src, image.Point{}, draw.Src)
}

func textWidth(text string) int {
	return len([]rune(text)) * glyphWidth
}

// fitLabel 幅に収まらないラベルを末尾".."で切り詰める
func fitLabel(text string, maxWidth int) string {
	runes := []rune(text)
	maxChars := maxWidth / glyphWidth
	if len(runes) <= maxChars {
		return text
	}
	if maxChars <= 2 {
		return string(runes[:max(maxChars, 0)])
	}
	return string(runes[:maxChars-2]) + ".."
}

// drawText (x, y)をベースラインの左端として文字列を描く
func drawText(canvas *image.RGBA, text string, x, y int, col color.RGBA) {
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func drawCenteredText(canvas *image.RGBA, rect image.Rectangle, text string, col color.RGBA) {
	x := rect.Min.X + (rect.Dx()-textWidth(text))/2
	y := rect.Min.Y + (rect.Dy()+glyphAscent)/2 - 1
	drawText(canvas, text, x, y, col)
}
