package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sarlab/insar-analyzer/raster"
)

// GeoTIFF writes the raster to path as a Float32 GeoTIFF, appending the
// .tif extension if missing. Georeferencing is carried over when present.
func GeoTIFF(path string, r *raster.Raster) (string, error) {
	if r == nil {
		return "", fmt.Errorf("GeoTIFF: no raster loaded")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
	default:
		path += ".tif"
	}
	if err := raster.WriteGTiff(path, r); err != nil {
		return "", fmt.Errorf("GeoTIFF: %w", err)
	}
	return path, nil
}
