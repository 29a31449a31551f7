// Package chart renders grouped bar charts, one panel per condition
package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default page size and y-axis maximum
const (
	DefaultSize = 20 * vg.Centimeter
	DefaultMaxY = 100
)

// Series is one bar per category
type Series struct {
	Name        string
	Values      []float64
	Annotations []string // drawn above each bar, empty strings are skipped
}

// Panel is one chart of grouped bars sharing the category axis
type Panel struct {
	Title      string
	Categories []string
	Series     []Series
}

// Options controls the figure layout
type Options struct {
	MaxY   float64
	Legend []string // legend entries in series order, no legend when empty
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

func (o Options) withDefaults() Options {
	if o.MaxY <= 0 {
		o.MaxY = DefaultMaxY
	}
	if o.Width <= 0 {
		o.Width = DefaultSize
	}
	if o.Height <= 0 {
		o.Height = DefaultSize
	}
	return o
}

// BarChart draws the panels stacked vertically and writes the figure to
// path. The format follows the extension (png, svg, pdf, ...).
func BarChart(path string, panels []Panel, opts Options) error {
	if len(panels) == 0 {
		return fmt.Errorf("no panels to draw")
	}
	opts = opts.withDefaults()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, err := draw.NewFormattedCanvas(opts.Width, opts.Height, format)
	if err != nil {
		return fmt.Errorf("failed to create canvas for %s: %w", path, err)
	}

	plots := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		p, err := newPanel(panel, opts, i == len(panels)-1)
		if err != nil {
			return fmt.Errorf("panel %q: %w", panel.Title, err)
		}
		plots[i] = []*plot.Plot{p}
	}

	tiles := draw.Tiles{
		Rows:      len(panels),
		Cols:      1,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, draw.New(c))
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// newPanel builds one plot; the x label and legend go on the last panel
func newPanel(panel Panel, opts Options, last bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = panel.Title
	p.Y.Label.Text = opts.YLabel
	p.Y.Min, p.Y.Max = 0, opts.MaxY
	if last {
		p.X.Label.Text = opts.XLabel
	}

	n := len(panel.Series)
	if n == 0 || len(panel.Categories) == 0 {
		p.NominalX(panel.Categories...)
		return p, nil
	}

	// Bars of a group fill 80% of the space of one category
	plotWidth := opts.Width - 3*vg.Centimeter
	groupWidth := plotWidth * 0.8 / vg.Length(len(panel.Categories))
	barWidth := groupWidth / vg.Length(n)

	for j, s := range panel.Series {
		if len(s.Values) != len(panel.Categories) {
			return nil, fmt.Errorf("series %s has %d values for %d categories", s.Name, len(s.Values), len(panel.Categories))
		}

		bars, err := plotter.NewBarChart(plotter.Values(s.Values), barWidth)
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(j)
		bars.LineStyle.Width = 0
		bars.Offset = barWidth * vg.Length(float64(j)-float64(n-1)/2)
		p.Add(bars)

		if last && j < len(opts.Legend) {
			p.Legend.Add(opts.Legend[j], bars)
		}

		labels, err := annotations(s, bars.Offset)
		if err != nil {
			return nil, err
		}
		if labels != nil {
			p.Add(labels)
		}
	}

	// Add widens the axes to the data, bars above MaxY are clipped
	p.Y.Min, p.Y.Max = 0, opts.MaxY
	p.NominalX(panel.Categories...)
	p.Legend.Top = true
	return p, nil
}

// annotations places the non-empty annotations of a series above its bars
func annotations(s Series, offset vg.Length) (*plotter.Labels, error) {
	var xyl plotter.XYLabels
	for i, a := range s.Annotations {
		if a == "" || i >= len(s.Values) {
			continue
		}
		xyl.XYs = append(xyl.XYs, plotter.XY{X: float64(i), Y: s.Values[i]})
		xyl.Labels = append(xyl.Labels, a)
	}
	if len(xyl.Labels) == 0 {
		return nil, nil
	}

	labels, err := plotter.NewLabels(xyl)
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = color.Black
		labels.TextStyle[i].Font.Size = vg.Points(5)
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YBottom
	}
	labels.Offset = vg.Point{X: offset, Y: vg.Points(2)}
	return labels, nil
}
