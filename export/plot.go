package export

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/sarlab/insar-analyzer/analysis"
)

// SeriesFigure renders the time series as a line plot with a date axis and
// saves it to path. The output format follows the extension (.png or .pdf).
func SeriesFigure(path, title string, series []analysis.Series) error {
	p, err := seriesPlot(title, series)
	if err != nil {
		return err
	}
	if err := p.Save(figureWidth, figureHeight, path); err != nil {
		return fmt.Errorf("SeriesFigure.Save: %w", err)
	}
	return nil
}

// SeriesFigurePNG renders the same figure into a PNG byte slice, for
// embedding in reports.
func SeriesFigurePNG(title string, series []analysis.Series) ([]byte, error) {
	p, err := seriesPlot(title, series)
	if err != nil {
		return nil, err
	}
	wt, err := p.WriterTo(figureWidth, figureHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("SeriesFigurePNG: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("SeriesFigurePNG: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	figureWidth  = 24 * vg.Centimeter
	figureHeight = 14 * vg.Centimeter
)

func seriesPlot(title string, series []analysis.Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Displacement (mm)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	args := make([]interface{}, 0, 2*len(series))
	for _, s := range series {
		xys := make(plotter.XYs, 0, len(s.Samples))
		for _, smp := range s.Samples {
			xys = append(xys, plotter.XY{X: float64(smp.Date.Unix()), Y: smp.Value * 1000})
		}
		args = append(args, s.Name, xys)
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return nil, fmt.Errorf("seriesPlot: %w", err)
	}
	return p, nil
}
