// Package chart renders calibration diagnostics as PNG or SVG images using
// gonum/plot: the calibration curve with its regression line, patient
// readings coloured by range status, the concentration histogram and the
// residual Q-Q plot.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rewired-gh/labcal/internal/analysis"
	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/logger"
	"github.com/rewired-gh/labcal/internal/models"
)

var (
	standardColor   = color.RGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff}
	curveColor      = color.RGBA{R: 0x76, G: 0x4b, B: 0xa2, A: 0xff}
	regressionColor = color.RGBA{R: 0xf0, G: 0x93, B: 0xfb, A: 0xff}
	histogramColor  = color.RGBA{R: 0x43, G: 0xe9, B: 0x7b, A: 0xff}
	qqColor         = color.RGBA{R: 0xff, G: 0x6b, B: 0x6b, A: 0xff}

	statusColors = map[models.RangeStatus]color.Color{
		models.InRange:    color.RGBA{R: 0x2e, G: 0xa0, B: 0x43, A: 0xff},
		models.BelowRange: color.RGBA{R: 0x1f, G: 0x6f, B: 0xeb, A: 0xff},
		models.AboveRange: color.RGBA{R: 0xd7, G: 0x3a, B: 0x49, A: 0xff},
	}
)

// Renderer saves plots at a fixed size and format.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
	Format string
}

// NewRenderer returns a renderer for width x height inches in png or svg.
func NewRenderer(widthIn, heightIn float64, format string) (*Renderer, error) {
	format = strings.ToLower(format)
	if format != "png" && format != "svg" {
		return nil, fmt.Errorf("%w: unsupported chart format %q", models.ErrInvalidInput, format)
	}
	if widthIn <= 0 || heightIn <= 0 {
		return nil, fmt.Errorf("%w: chart size must be positive", models.ErrInvalidInput)
	}
	return &Renderer{
		Width:  vg.Length(widthIn) * vg.Inch,
		Height: vg.Length(heightIn) * vg.Inch,
		Format: format,
	}, nil
}

// Render encodes the plot in the renderer's format.
func (r *Renderer) Render(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(r.Width, r.Height, r.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s canvas: %w", r.Format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	return buf.Bytes(), nil
}

// Save renders the plot to dir/name.<format> and returns the path.
func (r *Renderer) Save(p *plot.Plot, dir, name string) (string, error) {
	data, err := r.Render(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}
	path := filepath.Join(dir, name+"."+r.Format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart: %w", err)
	}
	logger.Debug("Saved chart %s", path)
	return path, nil
}

// Calibration plots the standard points, the fitted curve sampled at
// samples points across the domain and the dashed regression line.
func Calibration(std *models.Standard, curve *calibration.Curve, samples int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s calibration (%s)", std.Name, curve.Method)
	p.X.Label.Text = "Optic density"
	p.Y.Label.Text = axisLabel("Concentration", std.Unit)
	p.Add(plotter.NewGrid())

	points := make(plotter.XYs, std.Len())
	for i := range points {
		points[i].X = std.OpticDensity[i]
		points[i].Y = std.Concentration[i]
	}
	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("failed to plot standards: %w", err)
	}
	scatter.GlyphStyle.Color = standardColor
	scatter.GlyphStyle.Radius = vg.Points(4)

	xs, ys := curve.Sample(curve.Domain.Min, curve.Domain.Max, samples)
	fitted, err := plotter.NewLine(xyPairs(xs, ys))
	if err != nil {
		return nil, fmt.Errorf("failed to plot curve: %w", err)
	}
	fitted.LineStyle.Color = curveColor
	fitted.LineStyle.Width = vg.Points(2)

	rx, ry := analysis.RegressionLine(curve.Regression, curve.Domain, 2)
	reg, err := plotter.NewLine(xyPairs(rx, ry))
	if err != nil {
		return nil, fmt.Errorf("failed to plot regression line: %w", err)
	}
	reg.LineStyle.Color = regressionColor
	reg.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(scatter, fitted, reg)
	p.Legend.Add("Standards", scatter)
	p.Legend.Add("Fitted curve", fitted)
	p.Legend.Add(fmt.Sprintf("Regression (R²=%.4f)", curve.Regression.RSquared), reg)
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// Patients plots the calibration curve together with patient estimates,
// one colour per range status.
func Patients(curve *calibration.Curve, rows []models.ResultRow, samples int) (*plot.Plot, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no patient results to plot", models.ErrInvalidInput)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s patient results", curve.Standard)
	p.X.Label.Text = "Optic density"
	p.Y.Label.Text = axisLabel("Concentration", curve.Unit)
	p.Add(plotter.NewGrid())

	lo, hi := curve.Domain.Min, curve.Domain.Max
	for _, r := range rows {
		lo = min(lo, r.OpticDensity)
		hi = max(hi, r.OpticDensity)
	}
	xs, ys := curve.Sample(lo, hi, samples)
	line, err := plotter.NewLine(xyPairs(xs, ys))
	if err != nil {
		return nil, fmt.Errorf("failed to plot curve: %w", err)
	}
	line.LineStyle.Color = curveColor
	p.Add(line)
	p.Legend.Add("Curve", line)

	for _, status := range []models.RangeStatus{models.InRange, models.BelowRange, models.AboveRange} {
		var pts plotter.XYs
		for _, r := range rows {
			if r.Status == status {
				pts = append(pts, plotter.XY{X: r.OpticDensity, Y: r.Concentration})
			}
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to plot %s patients: %w", status, err)
		}
		s.GlyphStyle.Color = statusColors[status]
		s.GlyphStyle.Radius = vg.Points(4)
		p.Add(s)
		p.Legend.Add(status.String(), s)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// Histogram plots the distribution of values in bins buckets.
func Histogram(values []float64, bins int, title, unit string) (*plot.Plot, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values for histogram", models.ErrInvalidInput)
	}
	if bins < 1 {
		bins = analysis.DefaultBins
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = axisLabel("Concentration", unit)
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, fmt.Errorf("failed to build histogram: %w", err)
	}
	h.FillColor = histogramColor
	p.Add(h)
	return p, nil
}

// QQ plots ordered residuals against standard normal quantiles with a
// dashed reference line joining the extreme points.
func QQ(points []analysis.QQPoint, title string) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points for Q-Q plot", models.ErrInvalidInput)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Theoretical quantiles"
	p.Y.Label.Text = "Residuals"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(points))
	for i, q := range points {
		pts[i] = plotter.XY{X: q.Theoretical, Y: q.Sample}
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to plot Q-Q points: %w", err)
	}
	s.GlyphStyle.Color = qqColor
	s.GlyphStyle.Radius = vg.Points(4)
	p.Add(s)

	if len(points) > 1 {
		first, last := points[0], points[len(points)-1]
		ref, err := plotter.NewLine(plotter.XYs{
			{X: first.Theoretical, Y: first.Sample},
			{X: last.Theoretical, Y: last.Sample},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to plot reference line: %w", err)
		}
		ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(ref)
	}
	return p, nil
}

func xyPairs(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return pts
}

func axisLabel(name, unit string) string {
	if unit == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, unit)
}
