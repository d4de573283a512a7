package raster

import (
	"fmt"
	"math"

	"github.com/sarlab/insar-analyzer/common"
)

// Raster is a single-band raster loaded in memory. Data is row-major,
// invalid pixels are NaN. GeoTransform is nil for non-georeferenced data.
type Raster struct {
	Path         string
	Type         common.ProductType
	Width        int
	Height       int
	Data         []float64
	GeoTransform *[6]float64
	Projection   string
}

// At returns the value at pixel (x, y). Out of bounds returns NaN, false.
func (r *Raster) At(x, y int) (float64, bool) {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return math.NaN(), false
	}
	return r.Data[y*r.Width+x], true
}

// PixelToGeo converts pixel coordinates to georeferenced coordinates.
// ok is false when the raster carries no geotransform.
func (r *Raster) PixelToGeo(x, y float64) (gx, gy float64, ok bool) {
	if r.GeoTransform == nil {
		return 0, 0, false
	}
	gt := r.GeoTransform
	gx = gt[0] + x*gt[1] + y*gt[2]
	gy = gt[3] + x*gt[4] + y*gt[5]
	return gx, gy, true
}

// FiniteValues returns the finite samples of the raster.
func (r *Raster) FiniteValues() []float64 {
	vals := make([]float64, 0, len(r.Data))
	for _, v := range r.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			vals = append(vals, v)
		}
	}
	return vals
}

func (r *Raster) validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("raster %s: empty (%dx%d)", r.Path, r.Width, r.Height)
	}
	if len(r.Data) != r.Width*r.Height {
		return fmt.Errorf("raster %s: %d values for %dx%d", r.Path, len(r.Data), r.Width, r.Height)
	}
	return nil
}
