// render_matrix はCSV/Excelファイルから散布図行列（と相関行列のヒートマップ）のPNGを作成します。
//
//	go run ./cmd/render_matrix -in swiss.csv -out pairplot.png -target Fertility -top-k 4
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	config "stats-lab-api/configs"
	"stats-lab-api/pkg/dataset"
	"stats-lab-api/pkg/services"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	in := flag.String("in", "", "入力ファイル（.csv / .xlsx）")
	out := flag.String("out", "pairplot.png", "散布図行列の出力先")
	heatmapOut := flag.String("heatmap", "", "ヒートマップの出力先（省略時は作成しない）")
	cellSize := flag.Float64("cell-size", cfg.Render.DefaultCellSize, "1セルのサイズ（インチ）")
	cmap := flag.String("cmap", cfg.Render.DefaultColorMap, "カラーマップ（"+strings.Join(services.ColorMapNames(), ", ")+"）")
	bins := flag.Int("bins", cfg.Render.HistogramBins, "ヒストグラムの階級数")
	target := flag.String("target", "", "基準変数（指定するとtop-k個の変数に絞り込む）")
	topK := flag.Int("top-k", 0, "絞り込む変数の数（基準変数を含む。0で全変数）")
	preset := flag.String("preset", "", "描画プリセット名")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	sel := selection{
		opts: services.PairwiseOptions{
			CellSize:      *cellSize,
			ColorMap:      *cmap,
			HistogramBins: *bins,
		},
		target: *target,
		topK:   *topK,
	}
	if *preset != "" {
		presets := config.LoadRenderPresetsOrDefault(cfg.RenderPresetsPath)
		p, ok := presets.Lookup(*preset)
		if !ok {
			log.Fatalf("❌ プリセット %q は存在しません（使用可能: %v）", *preset, presets.Names())
		}
		sel = sel.withPreset(p, explicit)
	}

	if err := run(cfg, *in, *out, *heatmapOut, sel); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// selection コマンドラインで指定された描画オプションと絞り込み
type selection struct {
	opts   services.PairwiseOptions
	target string
	topK   int
}

// withPreset プリセットの値を使う。明示的に指定されたフラグはプリセットより優先する
func (s selection) withPreset(p config.RenderPreset, explicit map[string]bool) selection {
	if !explicit["cell-size"] && p.CellSize != 0 {
		s.opts.CellSize = p.CellSize
	}
	if !explicit["cmap"] && p.ColorMap != "" {
		s.opts.ColorMap = p.ColorMap
	}
	if !explicit["bins"] && p.HistogramBins != 0 {
		s.opts.HistogramBins = p.HistogramBins
	}
	if !explicit["target"] && p.TopK != nil {
		s.target = p.TopK.Target
		if !explicit["top-k"] {
			s.topK = p.TopK.Count
		}
	}
	return s
}

func run(cfg *config.Config, in, out, heatmapOut string, sel selection) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	ds, report, err := dataset.LoadFile(in, f)
	if err != nil {
		return err
	}
	if len(report.SkippedColumns) > 0 {
		log.Printf("📋 数値でない列を除外しました: %v", report.SkippedColumns)
	}

	opts := sel.opts
	if sel.target != "" {
		topK := sel.topK
		if topK == 0 {
			topK = ds.NumColumns()
		}
		opts.TopK = &services.TopKSelection{Target: sel.target, Count: topK}
	}

	stats := services.NewStatisticsService(cfg.ParallelThreshold)
	viz := services.NewVisualizationService(stats, cfg.Render)

	artifact, err := viz.RenderPairwiseMatrix(ds, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, artifact.PNG, 0o644); err != nil {
		return err
	}
	log.Printf("✅ 散布図行列を保存しました: %s（%dx%d）", out, artifact.Width, artifact.Height)

	sub, err := ds.Select(artifact.Variables...)
	if err != nil {
		return err
	}
	matrix, err := stats.ComputeCorrelationMatrix(sub)
	if err != nil {
		return err
	}
	printMatrix(matrix)

	if heatmapOut != "" {
		opts.TopK = nil
		heatmap, err := viz.RenderHeatmap(matrix, opts)
		if err != nil {
			return err
		}
		if err := os.WriteFile(heatmapOut, heatmap.PNG, 0o644); err != nil {
			return err
		}
		log.Printf("✅ ヒートマップを保存しました: %s", heatmapOut)
	}
	return nil
}

func printMatrix(m *services.CorrelationMatrix) {
	names := m.Names()
	width := 8
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}
	fmt.Printf("%*s", width, "")
	for _, name := range names {
		fmt.Printf(" %*s", width, name)
	}
	fmt.Println()
	for i, name := range names {
		fmt.Printf("%*s", width, name)
		for j := range names {
			fmt.Printf(" %*s", width, services.FormatCorrelation(m.At(i, j)))
		}
		fmt.Println()
	}
}
