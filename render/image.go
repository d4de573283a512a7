package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/sarlab/insar-analyzer/raster"
)

// Image rasterizes values through a palette into an RGBA image. Values are
// clamped to the range, NaN pixels are transparent.
func Image(r *raster.Raster, p *Palette, rng Range) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	scale := rng.Max - rng.Min
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := r.Data[y*r.Width+x]
			if math.IsNaN(v) {
				img.SetRGBA(x, y, color.RGBA{})
				continue
			}
			t := 0.5
			if scale > 0 {
				t = (v - rng.Min) / scale
			}
			idx := int(t*255 + 0.5)
			if idx < 0 {
				idx = 0
			} else if idx > 255 {
				idx = 255
			}
			img.SetRGBA(x, y, p.LUT[idx])
		}
	}
	return img
}

// PNG renders a raster to a PNG byte slice.
func PNG(r *raster.Raster, p *Palette, rng Range) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image(r, p, rng)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
