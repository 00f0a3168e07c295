// Package report renders tuning results as plots.
//
// チューニング結果の可視化専用パッケージ。コアのパッケージは数値を
// 返すだけで描画には関与せず、report が tune.Result を消費して
// gonum/plot のプロットに変換する。
//
// SummaryPlot draws one metric per assignment with its fold range;
// ParamPlot draws a metric against one swept hyperparameter. Both
// return *plot.Plot so callers can restyle before writing; WritePNG,
// WriteSVG and Save render with sensible defaults.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/modelflow/pkg/errors"
	"github.com/YuminosukeSato/modelflow/pkg/log"
	"github.com/YuminosukeSato/modelflow/tune"
)

// Option configures plot construction and rendering.
type Option func(*config)

type config struct {
	title  string
	width  vg.Length
	height vg.Length
}

func defaultConfig() config {
	return config{width: 6 * vg.Inch, height: 4 * vg.Inch}
}

// WithTitle overrides the default plot title.
func WithTitle(title string) Option {
	return func(c *config) { c.title = title }
}

// WithSize sets the rendered canvas size (default 6x4 inches).
func WithSize(width, height vg.Length) Option {
	return func(c *config) {
		c.width = width
		c.height = height
	}
}

// meanRange は plotter.YErrorBars が要求する XYer+YErrorer の組
type meanRange struct {
	plotter.XYs
	plotter.YErrors
}

// SummaryPlot plots the named metric's fold mean per assignment, with
// error bars spanning the fold minimum and maximum. Assignments appear
// on a nominal X axis in grid order, so the plot reads like the
// summarized results table.
func SummaryPlot(res *tune.Result, metric string, opts ...Option) (*plot.Plot, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if res == nil {
		return nil, errors.NewValueError("report.SummaryPlot", "nil result")
	}

	summaries := metricSummaries(res, metric)
	if len(summaries) == 0 {
		return nil, errors.NewValueError("report.SummaryPlot", fmt.Sprintf("metric %q was not measured", metric))
	}

	xys := make(plotter.XYs, len(summaries))
	yerrs := make(plotter.YErrors, len(summaries))
	labels := make([]string, len(summaries))
	for i, s := range summaries {
		xys[i].X = float64(i)
		xys[i].Y = s.Mean
		yerrs[i].Low = s.Mean - s.Min
		yerrs[i].High = s.Max - s.Mean
		labels[i] = strconv.Itoa(s.Assignment)
	}

	p := plot.New()
	p.Title.Text = cfg.title
	if p.Title.Text == "" {
		p.Title.Text = metric + " across assignments"
	}
	p.X.Label.Text = "assignment"
	p.Y.Label.Text = metric
	p.Add(plotter.NewGrid())

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, errors.Wrap(err, "report: summary plot")
	}
	bars, err := plotter.NewYErrorBars(meanRange{XYs: xys, YErrors: yerrs})
	if err != nil {
		return nil, errors.Wrap(err, "report: summary plot")
	}
	p.Add(line, points, bars)
	p.NominalX(labels...)

	logger := log.GetLoggerWithName("report")
	logger.Debug("summary plot built",
		log.MetricKey, metric,
		log.CandidatesKey, len(summaries),
	)
	return p, nil
}

// ParamPlot plots the named metric's fold mean against one swept
// hyperparameter, sorted by the parameter value. Every assignment in
// the grid must bind the parameter.
func ParamPlot(res *tune.Result, metric, param string, opts ...Option) (*plot.Plot, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if res == nil {
		return nil, errors.NewValueError("report.ParamPlot", "nil result")
	}

	summaries := metricSummaries(res, metric)
	if len(summaries) == 0 {
		return nil, errors.NewValueError("report.ParamPlot", fmt.Sprintf("metric %q was not measured", metric))
	}

	type point struct {
		x, y       float64
		assignment int
	}
	points := make([]point, len(summaries))
	for i, s := range summaries {
		if !s.Params.Has(param) {
			return nil, errors.NewValueError("report.ParamPlot",
				fmt.Sprintf("assignment %d does not bind hyperparameter %q", s.Assignment, param))
		}
		points[i] = point{x: s.Params.Get(param, 0), y: s.Mean, assignment: s.Assignment}
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].x != points[j].x {
			return points[i].x < points[j].x
		}
		return points[i].assignment < points[j].assignment
	})

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = pt.x
		xys[i].Y = pt.y
	}

	p := plot.New()
	p.Title.Text = cfg.title
	if p.Title.Text == "" {
		p.Title.Text = metric + " vs " + param
	}
	p.X.Label.Text = param
	p.Y.Label.Text = metric
	p.Add(plotter.NewGrid())

	line, markers, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, errors.Wrap(err, "report: param plot")
	}
	p.Add(line, markers)

	logger := log.GetLoggerWithName("report")
	logger.Debug("param plot built",
		log.MetricKey, metric,
		log.CandidatesKey, len(points),
	)
	return p, nil
}

// metricSummaries filters the run summaries to one metric, keeping the
// assignment order.
func metricSummaries(res *tune.Result, metric string) []tune.Summary {
	var out []tune.Summary
	for _, s := range res.Summarize() {
		if s.Metric == metric {
			out = append(out, s)
		}
	}
	return out
}

// WritePNG renders the plot as PNG to w.
func WritePNG(p *plot.Plot, w io.Writer, opts ...Option) error {
	return write(p, w, "png", opts...)
}

// WriteSVG renders the plot as SVG to w.
func WriteSVG(p *plot.Plot, w io.Writer, opts ...Option) error {
	return write(p, w, "svg", opts...)
}

func write(p *plot.Plot, w io.Writer, format string, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if p == nil {
		return errors.NewValueError("report.write", "nil plot")
	}
	wt, err := p.WriterTo(cfg.width, cfg.height, format)
	if err != nil {
		return errors.Wrapf(err, "report: render %s", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrapf(err, "report: write %s", format)
	}
	return nil
}

// Save renders the plot to a file, inferring the format from the
// extension (.png, .svg, .pdf, ...).
func Save(p *plot.Plot, filename string, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if p == nil {
		return errors.NewValueError("report.Save", "nil plot")
	}
	if err := p.Save(cfg.width, cfg.height, filename); err != nil {
		return errors.Wrapf(err, "report: save %s", filename)
	}
	return nil
}
