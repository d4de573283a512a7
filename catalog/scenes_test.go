package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleResponse = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": []},
      "properties": {
        "sceneName": "S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7C",
        "fileID": "S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7C-SLC",
        "startTime": "2019-01-15T17:01:06.000000",
        "flightDirection": "DESCENDING",
        "pathNumber": 94,
        "absoluteOrbit": 25491,
        "url": "https://datapool.asf.alaska.edu/SLC/SA/S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7C.zip",
        "bytes": 4834572288,
        "polarization": "VV+VH",
        "beamModeType": "IW",
        "processingLevel": "SLC"
      }
    },
    {
      "type": "Feature",
      "geometry": null,
      "properties": {
        "sceneName": "S1B_IW_SLC__1SDV_20190109T170025_20190109T170052_014420_01AE04_1C91",
        "fileID": "S1B_IW_SLC__1SDV_20190109T170025_20190109T170052_014420_01AE04_1C91-SLC",
        "startTime": "2019-01-09T17:00:25.000000",
        "flightDirection": "DESCENDING",
        "pathNumber": 94,
        "orbit": 14420,
        "url": "https://datapool.asf.alaska.edu/SLC/SB/S1B_IW_SLC__1SDV_20190109T170025_20190109T170052_014420_01AE04_1C91.zip",
        "bytes": "3834572288",
        "polarization": "VV+VH",
        "beamModeType": "IW",
        "processingLevel": "SLC"
      }
    },
    {
      "type": "Feature",
      "geometry": null,
      "properties": {"sceneName": ""}
    },
    {
      "type": "Feature",
      "geometry": null,
      "properties": {
        "sceneName": "S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7C",
        "fileID": "S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7C-METADATA_SLC",
        "startTime": "2019-01-15T17:01:06.000000",
        "processingLevel": "METADATA_SLC"
      }
    }
  ]
}`

func TestParseScenes(t *testing.T) {
	scenes, err := parseScenes([]byte(sampleResponse))
	if err != nil {
		t.Fatal(err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes (nameless and duplicate features dropped), got %d", len(scenes))
	}

	s := scenes[0]
	if s.SourceID != "S1A_IW_SLC__1SDV_20190115T170106_20190115T170133_025491_02D361_7F7C" {
		t.Errorf("sourceID: %s", s.SourceID)
	}
	if s.Date.Year() != 2019 || s.Date.Month() != time.January || s.Date.Day() != 15 {
		t.Errorf("date: %v", s.Date)
	}
	if s.RelativeOrbit != 94 {
		t.Errorf("relative orbit: %d", s.RelativeOrbit)
	}
	if s.Orbit != 25491 {
		t.Errorf("orbit: %d", s.Orbit)
	}
	if s.FlightDirection != "DESCENDING" {
		t.Errorf("flight direction: %s", s.FlightDirection)
	}
	if !strings.HasSuffix(s.DownloadURL, "7F7C.zip") {
		t.Errorf("url: %s", s.DownloadURL)
	}
	if s.SizeMB < 4000 || s.SizeMB > 5000 {
		t.Errorf("size: %v MB", s.SizeMB)
	}

	// bytes as a quoted string and orbit without absoluteOrbit
	if scenes[1].SizeMB < 3000 || scenes[1].SizeMB > 4000 {
		t.Errorf("size from string bytes: %v MB", scenes[1].SizeMB)
	}
	if scenes[1].Orbit != 14420 {
		t.Errorf("orbit fallback: %d", scenes[1].Orbit)
	}
}

func TestParseScenesBadBody(t *testing.T) {
	if _, err := parseScenes([]byte("<html>not json</html>")); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestSearchRequestValidate(t *testing.T) {
	valid := SearchRequest{West: -118.6, South: 34.0, East: -117.9, North: 34.5,
		Start: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)}
	if err := valid.validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	cases := []struct {
		name string
		mod  func(r *SearchRequest)
	}{
		{"west>=east", func(r *SearchRequest) { r.West, r.East = r.East, r.West }},
		{"south>=north", func(r *SearchRequest) { r.South, r.North = r.North, r.South }},
		{"lat overflow", func(r *SearchRequest) { r.North = 95 }},
		{"end before start", func(r *SearchRequest) { r.End = r.Start.AddDate(-1, 0, 0) }},
		{"bad direction", func(r *SearchRequest) { r.FlightDirection = "SIDEWAYS" }},
	}
	for _, c := range cases {
		r := valid
		c.mod(&r)
		if err := r.validate(); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestAOIWKT(t *testing.T) {
	r := SearchRequest{West: -1, South: -2, East: 3, North: 4}
	got := r.aoiWKT()
	if !strings.HasPrefix(got, "POLYGON") {
		t.Errorf("expected a polygon, got %s", got)
	}
	for _, coord := range []string{"-1", "-2", "3", "4"} {
		if !strings.Contains(got, coord) {
			t.Errorf("missing coordinate %s in %s", coord, got)
		}
	}
}

func TestSearchScenes(t *testing.T) {
	saved := searchRetryDelay
	searchRetryDelay = time.Millisecond
	defer func() { searchRetryDelay = saved }()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer edl-token" {
			t.Errorf("authorization header: %q", got)
		}
		if got := r.URL.Query().Get("platform"); got != "Sentinel-1" {
			t.Errorf("platform: %q", got)
		}
		// the first attempt fails, the retry succeeds
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	asf := ASF{Endpoint: srv.URL, Token: "edl-token"}
	scenes, err := asf.SearchScenes(context.Background(), SearchRequest{
		West: -118.6, South: 34.0, East: -117.9, North: 34.5})
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(scenes))
	}
	// sorted by acquisition date ascending
	if scenes[0].Date.After(scenes[1].Date) {
		t.Errorf("scenes not sorted by date: %v, %v", scenes[0].Date, scenes[1].Date)
	}
}

func TestSearchScenesClientError(t *testing.T) {
	saved := searchRetryDelay
	searchRetryDelay = time.Millisecond
	defer func() { searchRetryDelay = saved }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	asf := ASF{Endpoint: srv.URL}
	_, err := asf.SearchScenes(context.Background(), SearchRequest{
		West: -118.6, South: 34.0, East: -117.9, North: 34.5})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("expected the status code in the error, got %v", err)
	}
}
