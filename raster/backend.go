package raster

import (
	"context"
	"fmt"
	"strings"

	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/service/log"
)

// Backend reads raster files of a given family of formats.
type Backend interface {
	Name() string
	CanOpen(path string) bool
	Open(ctx context.Context, path string) (*Raster, error)
}

// backends in preference order
var backends []Backend

// Register appends a backend. The first registered backend able to open a
// file wins.
func Register(b Backend) {
	backends = append(backends, b)
}

// RegisterDefaults registers the built-in backends in preference order:
// GDAL first, HDF5 for the container formats GDAL is not preferred for.
func RegisterDefaults() {
	Register(NewGDALBackend())
	Register(NewHDF5Backend())
}

// ErrNoBackend is returned when no registered backend can open a file.
type ErrNoBackend struct {
	Path string
}

func (e ErrNoBackend) Error() string {
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Name()
	}
	return fmt.Sprintf("no raster backend for %s (registered: %s)", e.Path, strings.Join(names, ", "))
}

// Open loads a raster file with the first capable backend, classifying the
// product type from the file name.
func Open(ctx context.Context, path string) (*Raster, error) {
	for _, b := range backends {
		if !b.CanOpen(path) {
			continue
		}
		log.Logger(ctx).Sugar().Debugf("opening %s with %s", path, b.Name())
		r, err := b.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		if err := r.validate(); err != nil {
			return nil, err
		}
		r.Path = path
		r.Type = common.ProductTypeFromFilename(path)
		return r, nil
	}
	return nil, ErrNoBackend{Path: path}
}
