package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sarlab/insar-analyzer/analysis"
	"github.com/sarlab/insar-analyzer/catalog"
	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/service/log"
)

func (a *App) NewHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	r.HandleFunc("/products/load", a.LoadProductsHandler).Methods("POST")
	r.HandleFunc("/products/current", a.SetCurrentHandler).Methods("PUT")
	r.HandleFunc("/products/{index}/image.png", a.ImageHandler).Methods("GET")
	r.HandleFunc("/products/{index}/info", a.ProductInfoHandler).Methods("GET")
	r.HandleFunc("/display", a.GetDisplayHandler).Methods("GET")
	r.HandleFunc("/display", a.SetDisplayHandler).Methods("PUT")
	r.HandleFunc("/points", a.ListPointsHandler).Methods("GET")
	r.HandleFunc("/points", a.AddPointHandler).Methods("POST")
	r.HandleFunc("/points", a.ClearPointsHandler).Methods("DELETE")
	r.HandleFunc("/points/{name}", a.RemovePointHandler).Methods("DELETE")
	r.HandleFunc("/reference", a.SetReferenceHandler).Methods("PUT")
	r.HandleFunc("/reference", a.ClearReferenceHandler).Methods("DELETE")
	r.HandleFunc("/series", a.SeriesHandler).Methods("GET")
	r.HandleFunc("/statistics", a.StatisticsHandler).Methods("GET")
	r.HandleFunc("/export/{kind}", a.ExportHandler).Methods("POST")
	r.HandleFunc("/search", a.SearchHandler).Methods("POST")
	r.HandleFunc("/download", a.DownloadHandler).Methods("POST")
	r.HandleFunc("/process", a.ProcessHandler).Methods("POST")
	r.HandleFunc("/jobs/{kind}", a.JobStatusHandler).Methods("GET")
	return r
}

// ListProductsHandler lists the loaded products
func (a *App) ListProductsHandler(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(a.Products())
}

// LoadProductsHandler scans a folder and/or opens explicit files
func (a *App) LoadProductsHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	payload := struct {
		Dir   string   `json:"dir"`
		Paths []string `json:"paths"`
	}{}
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		w.WriteHeader(400)
		return
	}
	if payload.Dir == "" && len(payload.Paths) == 0 {
		w.WriteHeader(400)
		return
	}
	products, err := a.LoadProducts(ctx, payload.Dir, payload.Paths)
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("app.LoadProductsHandler: %v", err)
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}
	json.NewEncoder(w).Encode(products)
}

// SetCurrentHandler switches the displayed product
func (a *App) SetCurrentHandler(w http.ResponseWriter, req *http.Request) {
	payload := struct {
		Index int `json:"index"`
	}{}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		w.WriteHeader(400)
		return
	}
	if err := a.SetCurrent(payload.Index); err != nil {
		w.WriteHeader(404)
		return
	}
	w.WriteHeader(204)
}

func productIndex(req *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(req)["index"])
}

// ImageHandler renders the product with the session palette and range
func (a *App) ImageHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	index, err := productIndex(req)
	if err != nil {
		w.WriteHeader(400)
		return
	}
	png, err := a.RenderPNG(index)
	if errors.Is(err, ErrNotFound) {
		w.WriteHeader(404)
		return
	}
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("app.ImageHandler: %v", err)
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// ProductInfoHandler describes one product
func (a *App) ProductInfoHandler(w http.ResponseWriter, req *http.Request) {
	index, err := productIndex(req)
	if err != nil {
		w.WriteHeader(400)
		return
	}
	info, err := a.Product(index)
	if err != nil {
		w.WriteHeader(404)
		return
	}
	json.NewEncoder(w).Encode(info)
}

// GetDisplayHandler returns the rendering settings
func (a *App) GetDisplayHandler(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(a.Display())
}

// SetDisplayHandler replaces the rendering settings
func (a *App) SetDisplayHandler(w http.ResponseWriter, req *http.Request) {
	var d DisplaySettings
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		w.WriteHeader(400)
		return
	}
	a.SetDisplay(d)
	w.WriteHeader(204)
}

// ListPointsHandler returns the selected points and regions
func (a *App) ListPointsHandler(w http.ResponseWriter, req *http.Request) {
	points, regions := a.Points()
	json.NewEncoder(w).Encode(struct {
		Points    []analysis.Point  `json:"points"`
		Regions   []analysis.Region `json:"regions"`
		Reference string            `json:"reference,omitempty"`
	}{points, regions, a.Reference()})
}

// AddPointHandler selects a pixel or a pixel rectangle
func (a *App) AddPointHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	payload := struct {
		X  *int `json:"x"`
		Y  *int `json:"y"`
		X0 *int `json:"x0"`
		Y0 *int `json:"y0"`
		X1 *int `json:"x1"`
		Y1 *int `json:"y1"`
	}{}
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		w.WriteHeader(400)
		return
	}
	switch {
	case payload.X != nil && payload.Y != nil:
		p, err := a.AddPoint(*payload.X, *payload.Y)
		if err != nil {
			log.Logger(ctx).Sugar().Warnf("app.AddPointHandler: %v", err)
			w.WriteHeader(400)
			fmt.Fprintf(w, "%v", err)
			return
		}
		json.NewEncoder(w).Encode(p)
	case payload.X0 != nil && payload.Y0 != nil && payload.X1 != nil && payload.Y1 != nil:
		r, err := a.AddRegion(*payload.X0, *payload.Y0, *payload.X1, *payload.Y1)
		if err != nil {
			log.Logger(ctx).Sugar().Warnf("app.AddPointHandler: %v", err)
			w.WriteHeader(400)
			fmt.Fprintf(w, "%v", err)
			return
		}
		json.NewEncoder(w).Encode(r)
	default:
		w.WriteHeader(400)
	}
}

// ClearPointsHandler deletes every point and region
func (a *App) ClearPointsHandler(w http.ResponseWriter, req *http.Request) {
	a.ClearPoints()
	w.WriteHeader(204)
}

// RemovePointHandler deletes one point or region by name
func (a *App) RemovePointHandler(w http.ResponseWriter, req *http.Request) {
	if err := a.RemovePoint(mux.Vars(req)["name"]); err != nil {
		w.WriteHeader(404)
		return
	}
	w.WriteHeader(204)
}

// SetReferenceHandler selects the stable-ground point
func (a *App) SetReferenceHandler(w http.ResponseWriter, req *http.Request) {
	payload := struct {
		Name string `json:"name"`
	}{}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.Name == "" {
		w.WriteHeader(400)
		return
	}
	if err := a.SetReference(payload.Name); err != nil {
		w.WriteHeader(404)
		return
	}
	w.WriteHeader(204)
}

// ClearReferenceHandler removes the reference correction
func (a *App) ClearReferenceHandler(w http.ResponseWriter, req *http.Request) {
	a.ClearReference()
	w.WriteHeader(204)
}

// SeriesHandler extracts the displacement series of every point and region
func (a *App) SeriesHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	series, err := a.Series()
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("app.SeriesHandler: %v", err)
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}
	json.NewEncoder(w).Encode(series)
}

// StatisticsHandler summarizes the scene and the extracted series
func (a *App) StatisticsHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	stats, err := a.Statistics()
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("app.StatisticsHandler: %v", err)
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}
	json.NewEncoder(w).Encode(stats)
}

// ExportHandler writes an artifact (figure, geotiff, csv, shapefile, report)
func (a *App) ExportHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	payload := struct {
		Path string `json:"path"`
	}{}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || payload.Path == "" {
		w.WriteHeader(400)
		return
	}
	written, err := a.Export(ctx, mux.Vars(req)["kind"], payload.Path)
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("app.ExportHandler: %v", err)
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}
	json.NewEncoder(w).Encode(struct {
		Path string `json:"path"`
	}{written})
}

// SearchHandler queries the scene catalog
func (a *App) SearchHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var sr catalog.SearchRequest
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sr); err != nil {
		w.WriteHeader(400)
		return
	}
	scenes, err := a.Search(ctx, sr)
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("app.SearchHandler: %v", err)
		w.WriteHeader(500)
		fmt.Fprintf(w, "%v", err)
		return
	}
	json.NewEncoder(w).Encode(scenes)
}

// DownloadHandler starts a background download job
func (a *App) DownloadHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	payload := struct {
		Scenes []common.Scene `json:"scenes"`
	}{}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		w.WriteHeader(400)
		return
	}
	job, err := a.StartDownload(context.Background(), payload.Scenes)
	var running ErrJobRunning
	if errors.As(err, &running) {
		w.WriteHeader(409)
		fmt.Fprintf(w, "%v", err)
		return
	}
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("app.DownloadHandler: %v", err)
		w.WriteHeader(400)
		fmt.Fprintf(w, "%v", err)
		return
	}
	w.WriteHeader(202)
	json.NewEncoder(w).Encode(job)
}

// ProcessHandler starts a background interferometric processing job
func (a *App) ProcessHandler(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var pr ProcessRequest
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pr); err != nil {
		w.WriteHeader(400)
		return
	}
	job, err := a.StartProcess(context.Background(), pr)
	var running ErrJobRunning
	if errors.As(err, &running) {
		w.WriteHeader(409)
		fmt.Fprintf(w, "%v", err)
		return
	}
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("app.ProcessHandler: %v", err)
		w.WriteHeader(400)
		fmt.Fprintf(w, "%v", err)
		return
	}
	w.WriteHeader(202)
	json.NewEncoder(w).Encode(job)
}

// JobStatusHandler returns the last job of the given kind
func (a *App) JobStatusHandler(w http.ResponseWriter, req *http.Request) {
	job, ok := a.JobStatus(JobKind(mux.Vars(req)["kind"]))
	if !ok {
		w.WriteHeader(404)
		return
	}
	json.NewEncoder(w).Encode(job)
}
