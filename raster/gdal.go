package raster

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
)

var gdalOnce sync.Once

// GDALBackend opens anything GDAL has a driver for (GeoTIFF, ENVI, ISCE
// geocoded products, ...). It is the preferred backend.
type GDALBackend struct{}

// NewGDALBackend registers the GDAL drivers on first use.
func NewGDALBackend() *GDALBackend {
	gdalOnce.Do(godal.RegisterAll)
	return &GDALBackend{}
}

func (b *GDALBackend) Name() string { return "gdal" }

// CanOpen accepts everything except HDF5 containers, which are handled by
// the dedicated backend.
func (b *GDALBackend) CanOpen(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h5", ".he5", ".hdf5":
		return false
	}
	return true
}

func (b *GDALBackend) Open(ctx context.Context, path string) (*Raster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("open %s: no bands", path)
	}
	band := bands[0]
	st := ds.Structure()
	w, h := st.SizeX, st.SizeY

	var data []float64
	switch band.Structure().DataType {
	case godal.CFloat32, godal.CFloat64:
		// interferometric products: keep the phase angle
		buf := make([]complex128, w*h)
		if err := band.Read(0, 0, buf, w, h); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		data = make([]float64, w*h)
		for i, c := range buf {
			data[i] = math.Atan2(imag(c), real(c))
		}
	default:
		data = make([]float64, w*h)
		if err := band.Read(0, 0, data, w, h); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if nodata, ok := band.NoData(); ok {
		for i, v := range data {
			if v == nodata {
				data[i] = math.NaN()
			}
		}
	}
	for i, v := range data {
		if math.IsInf(v, 0) {
			data[i] = math.NaN()
		}
	}

	r := &Raster{
		Width:      w,
		Height:     h,
		Data:       data,
		Projection: ds.Projection(),
	}
	if gt, err := ds.GeoTransform(); err == nil {
		r.GeoTransform = &gt
	}
	return r, nil
}

const gtiffNoData = -9999

// WriteGTiff saves a raster as a single-band Float32 GeoTIFF. NaN values
// are written as the nodata sentinel.
func WriteGTiff(path string, r *Raster) error {
	gdalOnce.Do(godal.RegisterAll)
	if err := r.validate(); err != nil {
		return err
	}
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, r.Width, r.Height,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if r.GeoTransform != nil {
		if err := ds.SetGeoTransform(*r.GeoTransform); err != nil {
			ds.Close()
			return fmt.Errorf("set geotransform: %w", err)
		}
	}
	if r.Projection != "" {
		if err := ds.SetProjection(r.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("set projection: %w", err)
		}
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(gtiffNoData); err != nil {
		ds.Close()
		return fmt.Errorf("set nodata: %w", err)
	}
	buf := make([]float32, len(r.Data))
	for i, v := range r.Data {
		if math.IsNaN(v) {
			buf[i] = gtiffNoData
		} else {
			buf[i] = float32(v)
		}
	}
	if err := band.Write(0, 0, buf, r.Width, r.Height); err != nil {
		ds.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return ds.Close()
}
