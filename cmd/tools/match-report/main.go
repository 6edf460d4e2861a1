// Package main builds an offline matcher accuracy report from a directory
// of captured eye images. Images named <subject>_<n>.png (or .jpg) are
// encoded through the full pipeline; every template pair is scored and the
// genuine/impostor distance distributions are rendered as an HTML chart
// plus a JSON stats summary.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/veridio/iriscore/internal/imgstore"
	"github.com/veridio/iriscore/internal/iris"
)

type reportConfig struct {
	ImageDir   string
	OutputHTML string
	OutputJSON string
	Bins       int
}

// distStats summarizes one distance population.
type distStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P05   float64 `json:"p05"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type reportStats struct {
	Subjects  int       `json:"subjects"`
	Templates int       `json:"templates"`
	Skipped   int       `json:"skipped"`
	Genuine   distStats `json:"genuine"`
	Impostor  distStats `json:"impostor"`
	// Decision mistakes at the confirm threshold: genuine pairs above
	// it and impostor pairs at or below it.
	GenuineMisses int `json:"genuine_misses"`
	ImpostorHits  int `json:"impostor_hits"`
	TotalGenuine  int `json:"total_genuine"`
	TotalImpostor int `json:"total_impostor"`
}

type namedTemplate struct {
	subject  string
	template iris.Template
}

func main() {
	cfg := parseFlags()
	if cfg.ImageDir == "" {
		log.Fatal("Image directory is required")
	}

	templates, skipped := loadTemplates(cfg.ImageDir)
	if len(templates) < 2 {
		log.Fatalf("need at least 2 usable images, got %d", len(templates))
	}

	genuine, impostor := pairwiseDistances(templates)
	log.Printf("scored %d genuine and %d impostor pairs from %d templates",
		len(genuine), len(impostor), len(templates))

	stats := summarize(templates, skipped, genuine, impostor)

	if cfg.OutputJSON != "" {
		if err := writeJSON(cfg.OutputJSON, stats); err != nil {
			log.Fatalf("failed to write stats: %v", err)
		}
	}
	if err := renderChart(cfg, genuine, impostor); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	log.Printf("report written to %s", cfg.OutputHTML)
}

func parseFlags() reportConfig {
	var cfg reportConfig
	flag.StringVar(&cfg.ImageDir, "images", "", "Directory of eye images named <subject>_<n>.png")
	flag.StringVar(&cfg.OutputHTML, "out", "match-report.html", "Output HTML chart path")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Optional output path for JSON stats")
	flag.IntVar(&cfg.Bins, "bins", 40, "Histogram bin count over [0,1]")
	flag.Parse()
	return cfg
}

// subjectOf maps "alice_3.png" to "alice". Files without a numeric suffix
// keep their whole stem, so each counts as its own subject.
func subjectOf(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndex(stem, "_"); i > 0 {
		suffix := stem[i+1:]
		if suffix != "" && strings.IndexFunc(suffix, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
			return stem[:i]
		}
	}
	return stem
}

func loadTemplates(dir string) ([]namedTemplate, int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("failed to read image directory: %v", err)
	}

	var out []namedTemplate
	skipped := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
			continue
		}
		tpl, err := encodeFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Printf("skipping %s: %v", e.Name(), err)
			skipped++
			continue
		}
		out = append(out, namedTemplate{subject: subjectOf(e.Name()), template: tpl})
	}
	return out, skipped
}

func encodeFile(path string) (iris.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := imgstore.DecodeGray(data)
	if err != nil {
		return nil, err
	}
	pre, _ := iris.Preprocess(img)
	defer pre.Release()

	seg, err := iris.Segment(pre)
	if err != nil {
		return nil, err
	}
	strip := iris.Normalize(pre, seg)
	defer strip.Release()

	return iris.Encode(strip)
}

func pairwiseDistances(templates []namedTemplate) (genuine, impostor []float64) {
	for i := 0; i < len(templates); i++ {
		for j := i + 1; j < len(templates); j++ {
			d := iris.HammingDistance(templates[i].template, templates[j].template)
			if templates[i].subject == templates[j].subject {
				genuine = append(genuine, d)
			} else {
				impostor = append(impostor, d)
			}
		}
	}
	return genuine, impostor
}

func summarize(templates []namedTemplate, skipped int, genuine, impostor []float64) reportStats {
	subjects := map[string]bool{}
	for _, t := range templates {
		subjects[t.subject] = true
	}

	rs := reportStats{
		Subjects:      len(subjects),
		Templates:     len(templates),
		Skipped:       skipped,
		Genuine:       describe(genuine),
		Impostor:      describe(impostor),
		TotalGenuine:  len(genuine),
		TotalImpostor: len(impostor),
	}
	for _, d := range genuine {
		if d > iris.ConfirmThreshold {
			rs.GenuineMisses++
		}
	}
	for _, d := range impostor {
		if d <= iris.ConfirmThreshold {
			rs.ImpostorHits++
		}
	}
	return rs
}

func describe(xs []float64) distStats {
	if len(xs) == 0 {
		return distStats{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return distStats{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		P05:   stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
	}
}

func histogram(xs []float64, bins int) []opts.BarData {
	counts := make([]int, bins)
	for _, x := range xs {
		b := int(x * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}
	data := make([]opts.BarData, bins)
	for i, c := range counts {
		data[i] = opts.BarData{Value: c}
	}
	return data
}

func renderChart(cfg reportConfig, genuine, impostor []float64) error {
	labels := make([]string, cfg.Bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.3f", (float64(i)+0.5)/float64(cfg.Bins))
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Iris Matcher Report",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Hamming Distance Distributions",
			Subtitle: fmt.Sprintf("genuine=%d impostor=%d confirm<=%.2f suggest<=%.2f",
				len(genuine), len(impostor), iris.ConfirmThreshold, iris.SuggestThreshold),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "fractional Hamming distance"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "pairs"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("genuine", histogram(genuine, cfg.Bins))
	bar.AddSeries("impostor", histogram(impostor, cfg.Bins))

	f, err := os.Create(cfg.OutputHTML)
	if err != nil {
		return err
	}
	defer f.Close()
	return bar.Render(f)
}

func writeJSON(path string, rs reportStats) error {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
