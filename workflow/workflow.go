package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sarlab/insar-analyzer/analysis"
	"github.com/sarlab/insar-analyzer/catalog"
	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/export"
	"github.com/sarlab/insar-analyzer/interface/provider"
	"github.com/sarlab/insar-analyzer/isce"
	"github.com/sarlab/insar-analyzer/raster"
	"github.com/sarlab/insar-analyzer/render"
	"github.com/sarlab/insar-analyzer/service"
	"github.com/sarlab/insar-analyzer/service/log"
)

// ErrNotFound is returned for unknown product indexes and point names.
var ErrNotFound = fmt.Errorf("not found")

// Config wires the session to its work directories and external services.
type Config struct {
	WorkDir         string
	DownloadDir     string
	CondaEnv        string
	Catalog         *catalog.ASF
	Provider        provider.ImageProvider
	DownloadWorkers int
	DownloadRetries int
}

// delay between attempts of a failed scene download
var downloadRetryDelay = 30 * time.Second

// App holds one analysis session: the loaded products, the display
// settings, the selected points and the background jobs. All methods are
// safe for concurrent use.
type App struct {
	cfg Config

	mu      sync.RWMutex
	rasters []*raster.Raster
	current int
	display DisplaySettings
	points  *analysis.PointSet
	refName string

	jobs *jobRunner
}

// DisplaySettings controls the rendering of the current product. Range
// overrides are kept as entered: unparseable bounds silently fall back to
// the automatic percentile range.
type DisplaySettings struct {
	Palette string `json:"palette"`
	Min     string `json:"min"`
	Max     string `json:"max"`
}

// ProductInfo describes one loaded product.
type ProductInfo struct {
	Index         int                `json:"index"`
	Name          string             `json:"name"`
	Path          string             `json:"path"`
	Type          common.ProductType `json:"type"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	Date          *time.Time         `json:"date,omitempty"`
	Georeferenced bool               `json:"georeferenced"`
}

func NewApp(cfg Config) *App {
	if cfg.DownloadWorkers <= 0 {
		cfg.DownloadWorkers = 2
	}
	if cfg.DownloadRetries <= 0 {
		cfg.DownloadRetries = 3
	}
	return &App{
		cfg:    cfg,
		points: analysis.NewPointSet(),
		jobs:   newJobRunner(),
	}
}

// rasterExts lists the file extensions probed during a folder scan.
var rasterExts = map[string]bool{
	".tif": true, ".tiff": true, ".img": true, ".geo": true, ".grd": true,
	".nc": true, ".h5": true, ".he5": true, ".hdf5": true,
}

// LoadProducts opens the given files plus every raster found in dir and
// replaces the session stack with them. Files no backend can open are
// skipped with a warning.
func (a *App) LoadProducts(ctx context.Context, dir string, paths []string) ([]ProductInfo, error) {
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("LoadProducts: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !rasterExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	rasters := make([]*raster.Raster, 0, len(paths))
	for _, p := range paths {
		r, err := raster.Open(ctx, p)
		if err != nil {
			log.Logger(ctx).Sugar().Warnf("LoadProducts: skip %s: %v", p, err)
			continue
		}
		rasters = append(rasters, r)
	}
	if len(rasters) == 0 {
		return nil, fmt.Errorf("LoadProducts: no readable products")
	}

	a.mu.Lock()
	a.rasters = rasters
	a.current = 0
	a.mu.Unlock()
	return a.Products(), nil
}

func (a *App) productInfo(i int, r *raster.Raster) ProductInfo {
	info := ProductInfo{
		Index:         i,
		Name:          filepath.Base(r.Path),
		Path:          r.Path,
		Type:          r.Type,
		Width:         r.Width,
		Height:        r.Height,
		Georeferenced: r.GeoTransform != nil,
	}
	if _, sec, ok := common.ParseDatePair(r.Path); ok {
		info.Date = &sec
	}
	return info
}

// Products lists the loaded products in stack order.
func (a *App) Products() []ProductInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]ProductInfo, len(a.rasters))
	for i, r := range a.rasters {
		out[i] = a.productInfo(i, r)
	}
	return out
}

// Product returns the description of one product.
func (a *App) Product(i int) (ProductInfo, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if i < 0 || i >= len(a.rasters) {
		return ProductInfo{}, ErrNotFound
	}
	return a.productInfo(i, a.rasters[i]), nil
}

// SetCurrent switches the displayed product.
func (a *App) SetCurrent(i int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.rasters) {
		return ErrNotFound
	}
	a.current = i
	return nil
}

// Current returns the index of the displayed product.
func (a *App) Current() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Display returns the rendering settings.
func (a *App) Display() DisplaySettings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.display
}

// SetDisplay replaces the rendering settings.
func (a *App) SetDisplay(d DisplaySettings) {
	a.mu.Lock()
	a.display = d
	a.mu.Unlock()
}

// rangeFor resolves the display range of a raster: automatic percentile
// bounds adjusted by the user overrides.
func (a *App) rangeFor(r *raster.Raster, d DisplaySettings) render.Range {
	auto, _ := render.AutoRange(r)
	return render.ParseRangeOverride(d.Min, d.Max, auto)
}

// RenderPNG renders product i with the session palette and range.
func (a *App) RenderPNG(i int) ([]byte, error) {
	a.mu.RLock()
	if i < 0 || i >= len(a.rasters) {
		a.mu.RUnlock()
		return nil, ErrNotFound
	}
	r, d := a.rasters[i], a.display
	a.mu.RUnlock()

	pal := render.Resolve(d.Palette, r.Type)
	png, err := render.PNG(r, pal, a.rangeFor(r, d))
	if err != nil {
		return nil, fmt.Errorf("RenderPNG: %w", err)
	}
	return png, nil
}

// AddPoint selects a pixel for time-series analysis. Longitude and
// latitude are filled in when the current product is georeferenced.
func (a *App) AddPoint(x, y int) (analysis.Point, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.rasters) == 0 {
		return analysis.Point{}, fmt.Errorf("AddPoint: no product loaded")
	}
	r := a.rasters[a.current]
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return analysis.Point{}, fmt.Errorf("AddPoint: pixel (%d, %d) outside %dx%d", x, y, r.Width, r.Height)
	}
	p := analysis.Point{X: x, Y: y}
	if gx, gy, ok := r.PixelToGeo(float64(x)+0.5, float64(y)+0.5); ok {
		p.Lon, p.Lat, p.HasGeo = gx, gy, true
	}
	return a.points.AddPoint(p), nil
}

// AddRegion selects a pixel rectangle for averaged analysis.
func (a *App) AddRegion(x0, y0, x1, y1 int) (analysis.Region, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.rasters) == 0 {
		return analysis.Region{}, fmt.Errorf("AddRegion: no product loaded")
	}
	return a.points.AddRegion(analysis.Region{X0: x0, Y0: y0, X1: x1, Y1: y1}), nil
}

// Points returns the selected points and regions.
func (a *App) Points() ([]analysis.Point, []analysis.Region) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	points := append([]analysis.Point(nil), a.points.Points...)
	regions := append([]analysis.Region(nil), a.points.Regions...)
	return points, regions
}

// RemovePoint deletes one point or region by name. The reference is
// cleared when it is the removed point.
func (a *App) RemovePoint(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.points.Remove(name) {
		return ErrNotFound
	}
	if a.refName == name {
		a.refName = ""
	}
	return nil
}

// ClearPoints deletes every point and region and resets the counters.
func (a *App) ClearPoints() {
	a.mu.Lock()
	a.points.Clear()
	a.refName = ""
	a.mu.Unlock()
}

// SetReference selects the stable-ground point by name.
func (a *App) SetReference(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.points.Point(name); !ok {
		return ErrNotFound
	}
	a.refName = name
	return nil
}

// ClearReference removes the reference correction.
func (a *App) ClearReference() {
	a.mu.Lock()
	a.refName = ""
	a.mu.Unlock()
}

// Reference returns the name of the reference point, "" when unset.
func (a *App) Reference() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.refName
}

// snapshot captures the analysis inputs under the read lock.
func (a *App) snapshot() (*analysis.Stack, []analysis.Point, []analysis.Region, *analysis.Point, int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	displacement := make([]*raster.Raster, 0, len(a.rasters))
	currentEpoch := -1
	for i, r := range a.rasters {
		if r.Type != common.ProductDisplacement {
			continue
		}
		if i == a.current {
			currentEpoch = len(displacement)
		}
		displacement = append(displacement, r)
	}
	if len(displacement) == 0 {
		return nil, nil, nil, nil, 0, fmt.Errorf("no displacement products loaded")
	}
	stack := analysis.NewStack(displacement)
	if currentEpoch >= 0 {
		cur := a.rasters[a.current]
		for i, e := range stack.Epochs {
			if e.Raster == cur {
				currentEpoch = i
				break
			}
		}
	}

	points := append([]analysis.Point(nil), a.points.Points...)
	regions := append([]analysis.Region(nil), a.points.Regions...)
	var ref *analysis.Point
	if a.refName != "" {
		if p, ok := a.points.Point(a.refName); ok {
			ref = &p
		}
	}
	return stack, points, regions, ref, currentEpoch, nil
}

// Series extracts the displacement history of every point and region.
func (a *App) Series() ([]analysis.Series, error) {
	stack, points, regions, ref, current, err := a.snapshot()
	if err != nil {
		return nil, fmt.Errorf("Series: %w", err)
	}
	series := analysis.ExtractSeries(stack, points, ref, current)
	series = append(series, analysis.ExtractRegionSeries(stack, regions)...)
	return series, nil
}

// Statistics summarizes the displayed raster and every extracted series.
type Statistics struct {
	Scene  *analysis.SceneStats  `json:"scene,omitempty"`
	Points []analysis.PointStats `json:"points,omitempty"`
}

func (a *App) Statistics() (Statistics, error) {
	var stats Statistics
	a.mu.RLock()
	if len(a.rasters) > 0 {
		s := analysis.Scene(a.rasters[a.current])
		stats.Scene = &s
	}
	a.mu.RUnlock()

	series, err := a.Series()
	if err == nil {
		for _, s := range series {
			stats.Points = append(stats.Points, analysis.SeriesStats(s))
		}
	} else if stats.Scene == nil {
		return stats, fmt.Errorf("Statistics: %w", err)
	}
	return stats, nil
}

// Export writes the requested artifact and returns the path it wrote.
// Kinds: figure, geotiff, csv, shapefile, report.
func (a *App) Export(ctx context.Context, kind, path string) (string, error) {
	switch kind {
	case "figure":
		series, err := a.Series()
		if err != nil {
			return "", fmt.Errorf("Export.figure: %w", err)
		}
		if err := export.SeriesFigure(path, "LOS displacement", series); err != nil {
			return "", err
		}
		return path, nil

	case "geotiff":
		a.mu.RLock()
		var r *raster.Raster
		if len(a.rasters) > 0 {
			r = a.rasters[a.current]
		}
		a.mu.RUnlock()
		return export.GeoTIFF(path, r)

	case "csv":
		series, err := a.Series()
		if err != nil {
			return "", fmt.Errorf("Export.csv: %w", err)
		}
		points, _ := a.Points()
		f, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("Export.csv: %w", err)
		}
		if err := export.SeriesCSV(f, points, series); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()

	case "shapefile":
		series, err := a.Series()
		if err != nil {
			return "", fmt.Errorf("Export.shapefile: %w", err)
		}
		points, _ := a.Points()
		a.mu.RLock()
		var r *raster.Raster
		if len(a.rasters) > 0 {
			r = a.rasters[a.current]
		}
		a.mu.RUnlock()
		if err := export.Shapefile(path, points, series, r); err != nil {
			return "", err
		}
		return path, nil

	case "report":
		return a.exportReport(path)

	default:
		return "", fmt.Errorf("Export: unknown kind %q", kind)
	}
}

func (a *App) exportReport(path string) (string, error) {
	a.mu.RLock()
	var name, mapLabel string
	if len(a.rasters) > 0 {
		r := a.rasters[a.current]
		name = filepath.Base(r.Path)
		mapLabel = r.Type.ColorbarLabel()
	}
	current := a.current
	a.mu.RUnlock()

	rep := export.Report{
		Title:       "InSAR Analysis Report",
		ProductName: name,
		MapLabel:    mapLabel,
		Generated:   time.Now(),
	}
	if stack, _, _, _, _, err := a.snapshot(); err == nil {
		rep.Epochs = len(stack.Epochs)
		// epochs are sorted, dated ones first
		for _, e := range stack.Epochs {
			if !e.HasDate {
				break
			}
			if rep.FirstDate.IsZero() {
				rep.FirstDate = e.Date
			}
			rep.LastDate = e.Date
		}
	}
	if mapPNG, err := a.RenderPNG(current); err == nil {
		rep.MapPNG = mapPNG
	}
	if series, err := a.Series(); err == nil && len(series) > 0 {
		if figPNG, err := export.SeriesFigurePNG("LOS displacement", series); err == nil {
			rep.FigurePNG = figPNG
		}
		for _, s := range series {
			rep.Points = append(rep.Points, analysis.SeriesStats(s))
		}
	}
	if stats, err := a.Statistics(); err == nil {
		rep.Scene = stats.Scene
	}
	if err := rep.WritePDF(path); err != nil {
		return "", fmt.Errorf("Export.report: %w", err)
	}
	return path, nil
}

// Search queries the scene catalog.
func (a *App) Search(ctx context.Context, req catalog.SearchRequest) ([]common.Scene, error) {
	if a.cfg.Catalog == nil {
		return nil, fmt.Errorf("Search: no catalog configured")
	}
	return a.cfg.Catalog.SearchScenes(ctx, req)
}

// StartDownload fetches the scenes into the download directory in the
// background, bounded by the configured worker count.
func (a *App) StartDownload(ctx context.Context, scenes []common.Scene) (Job, error) {
	if a.cfg.Provider == nil {
		return Job{}, fmt.Errorf("StartDownload: no image provider configured")
	}
	if len(scenes) == 0 {
		return Job{}, fmt.Errorf("StartDownload: no scenes requested")
	}
	return a.jobs.start(ctx, JobDownload, func(ctx context.Context, setPhase func(string)) error {
		if err := os.MkdirAll(a.cfg.DownloadDir, 0766); err != nil {
			return err
		}
		done := 0
		var doneMu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.cfg.DownloadWorkers)
		for _, scene := range scenes {
			scene := scene
			g.Go(func() error {
				err := service.Retriable(gctx, func() error {
					return a.cfg.Provider.Download(gctx, scene, a.cfg.DownloadDir)
				}, downloadRetryDelay, a.cfg.DownloadRetries)
				if err != nil {
					return fmt.Errorf("download %s: %w", scene.SourceID, err)
				}
				doneMu.Lock()
				done++
				setPhase(fmt.Sprintf("%d/%d scenes", done, len(scenes)))
				doneMu.Unlock()
				return nil
			})
		}
		return g.Wait()
	})
}

// ProcessRequest selects the scene pair and options of an
// interferometric processing run.
type ProcessRequest struct {
	ReferenceSAFE string      `json:"reference_safe"`
	SecondarySAFE string      `json:"secondary_safe"`
	OrbitDir      string      `json:"orbit_dir"`
	AuxDir        string      `json:"aux_dir"`
	Swaths        []int       `json:"swaths,omitempty"`
	ROI           *[4]float64 `json:"roi,omitempty"`
	DEMPath       string      `json:"dem_path,omitempty"`
	NoUnwrap      bool        `json:"no_unwrap,omitempty"`
}

// StartProcess runs the interferometric chain in a fresh work directory.
// On success the geocoded products are appended to the session stack.
func (a *App) StartProcess(ctx context.Context, req ProcessRequest) (Job, error) {
	params := isce.Params{
		ReferenceSAFE: req.ReferenceSAFE,
		SecondarySAFE: req.SecondarySAFE,
		OrbitDir:      req.OrbitDir,
		AuxDir:        req.AuxDir,
		Swaths:        req.Swaths,
		ROI:           req.ROI,
		DEMPath:       req.DEMPath,
		NoUnwrap:      req.NoUnwrap,
	}
	return a.jobs.start(ctx, JobProcess, func(ctx context.Context, setPhase func(string)) error {
		workdir := filepath.Join(a.cfg.WorkDir, uuid.New().String())
		if err := os.MkdirAll(workdir, 0766); err != nil {
			return err
		}
		driver := &isce.Driver{CondaEnv: a.cfg.CondaEnv, PhaseFunc: setPhase}
		if err := driver.Run(ctx, workdir, params); err != nil {
			return err
		}

		setPhase("Loading products")
		var loaded []*raster.Raster
		for _, p := range isce.DiscoverProducts(workdir) {
			r, err := raster.Open(ctx, p)
			if err != nil {
				log.Logger(ctx).Sugar().Warnf("StartProcess: skip %s: %v", p, err)
				continue
			}
			loaded = append(loaded, r)
		}
		a.mu.Lock()
		a.rasters = append(a.rasters, loaded...)
		a.mu.Unlock()
		return nil
	})
}

// JobStatus returns the last job of the given kind.
func (a *App) JobStatus(kind JobKind) (Job, bool) {
	return a.jobs.status(kind)
}
