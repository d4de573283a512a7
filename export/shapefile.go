package export

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"

	"github.com/sarlab/insar-analyzer/analysis"
	"github.com/sarlab/insar-analyzer/raster"
)

// Shapefile writes the analysis points as a POINT shapefile. Geometry is
// in the raster's georeferenced coordinates when available, pixel
// coordinates otherwise. The Disp_mm attribute holds the latest valid
// sample of each point's series, 0 when the point has none.
func Shapefile(path string, points []analysis.Point, series []analysis.Series, r *raster.Raster) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return fmt.Errorf("Shapefile.Create: %w", err)
	}
	defer w.Close()

	w.SetFields([]shp.Field{
		shp.StringField("Name", 25),
		shp.FloatField("Disp_mm", 13, 3),
		shp.NumberField("X_pixel", 10),
		shp.NumberField("Y_pixel", 10),
	})

	latest := make(map[string]float64, len(series))
	for _, s := range series {
		if len(s.Samples) > 0 {
			latest[s.Name] = s.Samples[len(s.Samples)-1].Value * 1000
		}
	}

	for row, p := range points {
		x, y := float64(p.X), float64(p.Y)
		if r != nil {
			if gx, gy, ok := r.PixelToGeo(float64(p.X)+0.5, float64(p.Y)+0.5); ok {
				x, y = gx, gy
			}
		}
		w.Write(&shp.Point{X: x, Y: y})
		if err := w.WriteAttribute(row, 0, p.Name); err != nil {
			return fmt.Errorf("Shapefile.WriteAttribute: %w", err)
		}
		if err := w.WriteAttribute(row, 1, latest[p.Name]); err != nil {
			return fmt.Errorf("Shapefile.WriteAttribute: %w", err)
		}
		if err := w.WriteAttribute(row, 2, p.X); err != nil {
			return fmt.Errorf("Shapefile.WriteAttribute: %w", err)
		}
		if err := w.WriteAttribute(row, 3, p.Y); err != nil {
			return fmt.Errorf("Shapefile.WriteAttribute: %w", err)
		}
	}
	return nil
}
