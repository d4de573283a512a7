package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/raster"
	"github.com/sarlab/insar-analyzer/render"
	"github.com/sarlab/insar-analyzer/service/log"
)

type config struct {
	Dir     string
	Out     string
	Palette string
	Min     string
	Max     string
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.Dir, "dir", "", "directory of InSAR products to browse")
	flag.StringVar(&config.Out, "out", "", "directory to render display PNGs into (optional, list only when empty)")
	flag.StringVar(&config.Palette, "palette", "auto", "colormap name ('auto': per product type, one of "+strings.Join(render.PaletteNames(), ", ")+")")
	flag.StringVar(&config.Min, "min", "", "display range lower bound (optional, default: 2nd percentile)")
	flag.StringVar(&config.Max, "max", "", "display range upper bound (optional, default: 98th percentile)")
	flag.Parse()

	if config.Dir == "" {
		return nil, fmt.Errorf("missing dir config flag")
	}
	return &config, nil
}

func main() {
	ctx := context.Background()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

var viewerExts = map[string]bool{
	".tif": true, ".tiff": true, ".img": true, ".geo": true, ".grd": true,
	".nc": true, ".h5": true, ".he5": true, ".hdf5": true,
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}

	raster.RegisterDefaults()

	entries, err := os.ReadDir(config.Dir)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if config.Out != "" {
		if err := os.MkdirAll(config.Out, 0766); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	for _, e := range entries {
		if e.IsDir() || !viewerExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		path := filepath.Join(config.Dir, e.Name())
		r, err := raster.Open(ctx, path)
		if err != nil {
			log.Logger(ctx).Sugar().Warnf("skip %s: %v", e.Name(), err)
			continue
		}

		date := ""
		if _, sec, ok := common.ParseDatePair(path); ok {
			date = sec.Format("2006-01-02")
		}
		fmt.Printf("%-60s %-24s %5dx%-5d %s\n", e.Name(), r.Type.Title(), r.Width, r.Height, date)

		if config.Out == "" {
			continue
		}
		if err := renderProduct(r, config); err != nil {
			log.Logger(ctx).Sugar().Warnf("render %s: %v", e.Name(), err)
		}
	}
	return nil
}

func renderProduct(r *raster.Raster, config *config) error {
	auto, ok := render.AutoRange(r)
	if !ok {
		return fmt.Errorf("no finite pixels")
	}
	rng := render.ParseRangeOverride(config.Min, config.Max, auto)
	pal := render.Resolve(config.Palette, r.Type)
	png, err := render.PNG(r, pal, rng)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path)) + ".png"
	return os.WriteFile(filepath.Join(config.Out, name), png, 0644)
}
