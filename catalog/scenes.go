package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"

	"github.com/sarlab/insar-analyzer/common"
	"github.com/sarlab/insar-analyzer/service"
	"github.com/sarlab/insar-analyzer/service/log"
)

const defaultEndpoint = "https://api.daac.asf.alaska.edu"

// ASF searches the Alaska Satellite Facility SearchAPI for Sentinel-1 SLC
// acquisitions.
type ASF struct {
	Endpoint string // defaults to the public SearchAPI
	Token    string // optional Earthdata bearer token
}

// delay between SearchAPI retries
var searchRetryDelay = 15 * time.Second

// SearchRequest is a bbox + date range scene query.
type SearchRequest struct {
	West            float64   `json:"west"`
	South           float64   `json:"south"`
	East            float64   `json:"east"`
	North           float64   `json:"north"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	FlightDirection string    `json:"flight_direction,omitempty"` // "", "ASCENDING" or "DESCENDING"
	RelativeOrbit   int       `json:"relative_orbit,omitempty"`   // 0: any track
	MaxResults      int       `json:"max_results,omitempty"`      // 0: server default
}

func (r SearchRequest) validate() error {
	if r.West >= r.East || r.South >= r.North {
		return fmt.Errorf("invalid bbox [%g %g %g %g]", r.West, r.South, r.East, r.North)
	}
	if r.South < -90 || r.North > 90 || r.West < -180 || r.East > 180 {
		return fmt.Errorf("bbox out of bounds [%g %g %g %g]", r.West, r.South, r.East, r.North)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("end date %s before start date %s", r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	switch r.FlightDirection {
	case "", "ASCENDING", "DESCENDING":
	default:
		return fmt.Errorf("invalid flight direction %q", r.FlightDirection)
	}
	return nil
}

// aoiWKT builds the closed bbox polygon of the request.
func (r SearchRequest) aoiWKT() string {
	poly := geom.Polygon{{
		{r.West, r.South},
		{r.East, r.South},
		{r.East, r.North},
		{r.West, r.North},
		{r.West, r.South},
	}}
	return wkt.MustEncode(poly)
}

type asfProperties struct {
	SceneName       string          `json:"sceneName"`
	FileID          string          `json:"fileID"`
	StartTime       string          `json:"startTime"`
	FlightDirection string          `json:"flightDirection"`
	PathNumber      *int            `json:"pathNumber"`
	Orbit           *int            `json:"orbit"`
	AbsoluteOrbit   *int            `json:"absoluteOrbit"`
	URL             string          `json:"url"`
	Bytes           json.RawMessage `json:"bytes"` // int or quoted string depending on the deployment
	Polarization    string          `json:"polarization"`
	BeamModeType    string          `json:"beamModeType"`
	ProcessingLevel string          `json:"processingLevel"`
}

type asfFeature struct {
	Properties asfProperties `json:"properties"`
}

type asfResponse struct {
	Features []asfFeature `json:"features"`
}

// SearchScenes queries the SearchAPI for Sentinel-1 SLC scenes intersecting
// the request bbox. Results are sorted by acquisition date ascending.
func (a ASF) SearchScenes(ctx context.Context, req SearchRequest) ([]common.Scene, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("SearchScenes: %w", err)
	}
	query := url.Values{}
	query.Set("platform", "Sentinel-1")
	query.Set("processingLevel", "SLC")
	query.Set("intersectsWith", req.aoiWKT())
	query.Set("output", "geojson")
	if !req.Start.IsZero() {
		query.Set("start", req.Start.UTC().Format("2006-01-02T15:04:05Z"))
	}
	if !req.End.IsZero() {
		query.Set("end", req.End.UTC().Format("2006-01-02T15:04:05Z"))
	}
	if req.FlightDirection != "" {
		query.Set("flightDirection", req.FlightDirection)
	}
	if req.RelativeOrbit > 0 {
		query.Set("relativeOrbit", strconv.Itoa(req.RelativeOrbit))
	}
	if req.MaxResults > 0 {
		query.Set("maxResults", strconv.Itoa(req.MaxResults))
	}

	endpoint := a.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	searchURL := endpoint + "/services/search/param?" + query.Encode()
	log.Logger(ctx).Sugar().Debugf("asf search: %s", searchURL)

	var body []byte
	if err := service.Retriable(ctx, func() error {
		var err error
		body, err = service.HTTPGetWithAuth(ctx, searchURL, "", "", a.Token)
		return err
	}, searchRetryDelay, 3); err != nil {
		return nil, fmt.Errorf("SearchScenes: %w", err)
	}
	scenes, err := parseScenes(body)
	if err != nil {
		return nil, fmt.Errorf("SearchScenes: %w", err)
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Date.Before(scenes[j].Date) })
	log.Logger(ctx).Sugar().Infof("asf search: %d scenes", len(scenes))
	return scenes, nil
}

func parseScenes(body []byte) ([]common.Scene, error) {
	resp := asfResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	// the SearchAPI may return the same scene through several datasets
	seen := service.StringSet{}
	scenes := make([]common.Scene, 0, len(resp.Features))
	for _, f := range resp.Features {
		p := f.Properties
		if p.SceneName == "" || seen.Exists(p.SceneName) {
			continue
		}
		seen.Push(p.SceneName)
		scene := common.Scene{
			SourceID:        p.SceneName,
			UUID:            p.FileID,
			FlightDirection: p.FlightDirection,
			DownloadURL:     p.URL,
			SizeMB:          parseBytes(p.Bytes) / (1024 * 1024),
			Tags: map[string]string{
				common.TagPolarisationMode: p.Polarization,
				common.TagOrbitDirection:   p.FlightDirection,
				common.TagProductType:      p.ProcessingLevel,
				common.TagDownloadURL:      p.URL,
			},
		}
		if p.StartTime != "" {
			if date, err := dateparse.ParseAny(p.StartTime); err == nil {
				scene.Date = date.UTC()
			}
		}
		if scene.Date.IsZero() {
			if date, err := common.GetDateFromProductId(p.SceneName); err == nil {
				scene.Date = date
			}
		}
		if p.PathNumber != nil {
			scene.RelativeOrbit = *p.PathNumber
		}
		switch {
		case p.AbsoluteOrbit != nil:
			scene.Orbit = *p.AbsoluteOrbit
		case p.Orbit != nil:
			scene.Orbit = *p.Orbit
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

func parseBytes(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
	}
	return 0
}
