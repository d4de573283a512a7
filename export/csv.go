package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sarlab/insar-analyzer/analysis"
)

// csvHeader is the fixed column layout consumed by downstream tooling.
var csvHeader = []string{"Point", "X", "Y", "Date", "Displacement_m", "Displacement_mm"}

// SeriesCSV writes one row per valid sample of each series. Pixel
// coordinates come from the point the series was extracted at; region
// series carry no coordinates and write empty X/Y cells.
func SeriesCSV(w io.Writer, points []analysis.Point, series []analysis.Series) error {
	byName := make(map[string]analysis.Point, len(points))
	for _, p := range points {
		byName[p.Name] = p
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("SeriesCSV: %w", err)
	}
	for _, s := range series {
		x, y := "", ""
		if p, ok := byName[s.Name]; ok {
			x, y = strconv.Itoa(p.X), strconv.Itoa(p.Y)
		}
		for _, smp := range s.Samples {
			row := []string{
				s.Name,
				x,
				y,
				smp.Date.Format("2006-01-02"),
				strconv.FormatFloat(smp.Value, 'f', 6, 64),
				strconv.FormatFloat(smp.Value*1000, 'f', 3, 64),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("SeriesCSV: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
