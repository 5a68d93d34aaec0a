// Package chart renders aggregated views as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"sdmx-explorer/internal/domain"
	"sdmx-explorer/internal/table"
)

// Default image size in pixels.
const (
	DefaultWidth  = 960
	DefaultHeight = 540
)

// ErrNothingToPlot is returned when a view has no numeric point to draw.
var ErrNothingToPlot = errors.New("nothing to plot: no numeric values for the selected axes")

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Title returns the chart title for v: the single indicator when known,
// otherwise "Y by X".
func Title(v *table.View) string {
	if v.Title != "" {
		return fmt.Sprintf("%s: %s", v.Dataflow, v.Title)
	}
	return fmt.Sprintf("%s: %s by %s", v.Dataflow, v.Y, v.X)
}

// Render draws v as a PNG into w.
func Render(w io.Writer, v *table.View, opts Options) error {
	opts = opts.withDefaults()
	if !plottable(v.Aggregated) {
		return ErrNothingToPlot
	}
	if v.Kind == domain.ChartBar {
		return renderBar(w, v, opts)
	}
	return renderXY(w, v, opts)
}

func plottable(a *table.Aggregated) bool {
	for _, p := range a.Points {
		if !math.IsNaN(p.Y) {
			return true
		}
	}
	return false
}

// pointStyle renders points only. A zero stroke width or colour would be
// replaced by the series defaults, so the stroke is made transparent instead.
func pointStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeColor: drawing.ColorTransparent,
		StrokeWidth: 1,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) gochart.Style {
	return gochart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotWidth:    3,
		DotColor:    col,
	}
}

func renderXY(w io.Writer, v *table.View, opts Options) error {
	axis := newXAxis(v.Aggregated)

	var series []gochart.Series
	for i, group := range v.Aggregated.Groups() {
		var xs, ys []float64
		for _, p := range v.Aggregated.Points {
			if p.Group != group || math.IsNaN(p.Y) {
				continue
			}
			xs = append(xs, axis.position(p.X))
			ys = append(ys, p.Y)
		}
		if len(xs) == 0 {
			continue
		}
		col := gochart.GetDefaultColor(i)
		st := lineStyle(col)
		if v.Kind == domain.ChartScatter || len(xs) == 1 {
			st = pointStyle(col)
		}
		name := group
		if name == "" {
			name = v.Y
		}
		series = append(series, gochart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: st})
	}

	ch := gochart.Chart{
		Title:      Title(v),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      axis.chartAxis(v.X),
		YAxis:      gochart.YAxis{Name: v.Y, Range: yRange(v.Aggregated)},
		Series:     series,
	}
	if v.Group != "" {
		ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	}
	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", v.Kind, err)
	}
	return nil
}

func renderBar(w io.Writer, v *table.View, opts Options) error {
	groups := v.Aggregated.Groups()
	colorOf := make(map[string]drawing.Color, len(groups))
	for i, g := range groups {
		colorOf[g] = gochart.GetDefaultColor(i)
	}

	var bars []gochart.Value
	for _, p := range v.Aggregated.Points {
		if math.IsNaN(p.Y) {
			continue
		}
		label := p.X
		if p.Group != "" {
			label = fmt.Sprintf("%s %s", p.X, p.Group)
		}
		col := colorOf[p.Group]
		bars = append(bars, gochart.Value{
			Label: label,
			Value: p.Y,
			Style: gochart.Style{FillColor: col, StrokeColor: col},
		})
	}

	barWidth := opts.Width / (2*len(bars) + 1)
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < 2 {
		barWidth = 2
	}
	bc := gochart.BarChart{
		Title:      Title(v),
		Width:      opts.Width,
		Height:     opts.Height,
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		YAxis:      gochart.YAxis{Name: v.Y, Range: yRange(v.Aggregated)},
		Bars:       bars,
	}
	if err := bc.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// yRange spans the plotted values, always including zero and never empty.
func yRange(a *table.Aggregated) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, p := range a.Points {
		if math.IsNaN(p.Y) {
			continue
		}
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
	}
	if hi == lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.05
	if lo < 0 {
		lo -= pad
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi + pad}
}

// xAxis places X keys on the horizontal axis: numerically when every key is a
// number, otherwise ordinally in aggregation order with a tick per key.
type xAxis struct {
	numeric bool
	index   map[string]float64
	keys    []string
	min     float64
	max     float64
}

func newXAxis(a *table.Aggregated) *xAxis {
	ax := &xAxis{numeric: true, index: make(map[string]float64)}
	for _, p := range a.Points {
		if _, seen := ax.index[p.X]; seen {
			continue
		}
		ax.keys = append(ax.keys, p.X)
		ax.index[p.X] = float64(len(ax.keys))
		if _, err := strconv.ParseFloat(p.X, 64); err != nil {
			ax.numeric = false
		}
	}

	first := true
	for _, k := range ax.keys {
		pos := ax.position(k)
		if first || pos < ax.min {
			ax.min = pos
		}
		if first || pos > ax.max {
			ax.max = pos
		}
		first = false
	}
	return ax
}

func (ax *xAxis) position(key string) float64 {
	if ax.numeric {
		f, _ := strconv.ParseFloat(key, 64)
		return f
	}
	return ax.index[key]
}

func (ax *xAxis) chartAxis(name string) gochart.XAxis {
	lo, hi := ax.min-0.5, ax.max+0.5
	if !ax.numeric {
		ticks := make([]gochart.Tick, 0, len(ax.keys))
		for _, k := range ax.keys {
			ticks = append(ticks, gochart.Tick{Value: ax.index[k], Label: k})
		}
		return gochart.XAxis{Name: name, Ticks: ticks, Range: &gochart.ContinuousRange{Min: lo, Max: hi}}
	}
	return gochart.XAxis{
		Name:           name,
		Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
		ValueFormatter: formatNumber,
	}
}

func formatNumber(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
