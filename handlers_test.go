package main

import (
	"encoding/csv"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/kwv/terrafill/terrain"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// smallConfig returns a config on a 3x3 lattice so requests stay fast
func smallConfig() *terrain.Config {
	config := terrain.DefaultConfig()
	config.Lattice = terrain.Lattice{XMin: 0, XMax: 3, YMin: 0, YMax: 3, CellSize: 1}
	return config
}

func postReconstruct(t *testing.T, handler http.Handler, query, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/reconstruct"+query, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// /health
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	handler := newHTTPServer(smallConfig(), nil, terrain.NewRunTracker(0))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		MQTT    bool   `json:"mqtt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status field = %q, want ok", body.Status)
	}
	if body.Version != Version {
		t.Errorf("version field = %q, want %q", body.Version, Version)
	}
	if body.MQTT {
		t.Error("mqtt should be false without a publisher")
	}
}

// ---------------------------------------------------------------------------
// /reconstruct
// ---------------------------------------------------------------------------

func TestReconstruct_CSV(t *testing.T) {
	handler := newHTTPServer(smallConfig(), nil, terrain.NewRunTracker(0))
	rec := postReconstruct(t, handler, "", ringInput)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Run-ID") == "" {
		t.Error("missing X-Run-ID header")
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV response: %v", err)
	}
	if len(records) != 10 {
		t.Errorf("rows = %d, want 10", len(records))
	}
	if records[0][3] != "Category" {
		t.Errorf("header = %v", records[0])
	}
}

func TestReconstruct_Formats(t *testing.T) {
	handler := newHTTPServer(smallConfig(), nil, terrain.NewRunTracker(0))

	tests := []struct {
		format      string
		contentType string
		check       func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{"png", "image/png", func(t *testing.T, rec *httptest.ResponseRecorder) {
			img, err := png.Decode(rec.Body)
			if err != nil {
				t.Fatalf("decode PNG: %v", err)
			}
			if img.Bounds().Dx() != 12 {
				t.Errorf("width = %d, want 3 cells * 4 px", img.Bounds().Dx())
			}
		}},
		{"svg", "image/svg+xml", func(t *testing.T, rec *httptest.ResponseRecorder) {
			if !strings.Contains(rec.Body.String(), "<svg") {
				t.Error("body is not SVG")
			}
		}},
		{"geojson", "application/geo+json", func(t *testing.T, rec *httptest.ResponseRecorder) {
			fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("decode GeoJSON: %v", err)
			}
			if len(fc.Features) != 9 {
				t.Errorf("features = %d, want 9", len(fc.Features))
			}
		}},
		{"html", "text/html; charset=utf-8", func(t *testing.T, rec *httptest.ResponseRecorder) {
			if !strings.Contains(rec.Body.String(), "Fill convergence") {
				t.Error("chart title missing")
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			rec := postReconstruct(t, handler, "?format="+tt.format, ringInput)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			tt.check(t, rec)
		})
	}
}

func TestReconstruct_Errors(t *testing.T) {
	handler := newHTTPServer(smallConfig(), nil, terrain.NewRunTracker(0))

	t.Run("missing columns", func(t *testing.T) {
		rec := postReconstruct(t, handler, "", "lon,lat,height\n1,2,3\n")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "missing required columns") {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := postReconstruct(t, handler, "?format=bmp", ringInput)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reconstruct", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestReconstruct_FreshRunPerRequest(t *testing.T) {
	handler := newHTTPServer(smallConfig(), nil, terrain.NewRunTracker(0))

	first := postReconstruct(t, handler, "", ringInput)
	second := postReconstruct(t, handler, "", ringInput)

	if first.Header().Get("X-Run-ID") == second.Header().Get("X-Run-ID") {
		t.Error("requests shared a run ID")
	}
	if first.Body.String() != second.Body.String() {
		t.Error("identical input produced different output")
	}
}

// ---------------------------------------------------------------------------
// /runs
// ---------------------------------------------------------------------------

func getJSON(t *testing.T, handler http.Handler, path string, v interface{}) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK && v != nil {
		if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec.Code
}

func TestRunsEndpoints(t *testing.T) {
	runs := terrain.NewRunTracker(0)
	handler := newHTTPServer(smallConfig(), nil, runs)

	if code := getJSON(t, handler, "/runs/latest", nil); code != http.StatusNotFound {
		t.Errorf("latest before any run: status = %d, want 404", code)
	}

	first := postReconstruct(t, handler, "", ringInput).Header().Get("X-Run-ID")
	second := postReconstruct(t, handler, "?format=geojson", ringInput).Header().Get("X-Run-ID")

	var list []terrain.SummaryMessage
	if code := getJSON(t, handler, "/runs", &list); code != http.StatusOK {
		t.Fatalf("/runs status = %d", code)
	}
	if len(list) != 2 {
		t.Fatalf("runs = %d, want 2", len(list))
	}
	if list[0].RunID != second || list[1].RunID != first {
		t.Errorf("runs not newest first: %s, %s", list[0].RunID, list[1].RunID)
	}
	if list[0].Samples != 8 || list[0].OuterTotal != 1 {
		t.Errorf("summary = %+v", list[0])
	}

	var latest terrain.SummaryMessage
	if code := getJSON(t, handler, "/runs/latest", &latest); code != http.StatusOK {
		t.Fatalf("/runs/latest status = %d", code)
	}
	if latest.RunID != second {
		t.Errorf("latest = %s, want %s", latest.RunID, second)
	}

	var byID terrain.SummaryMessage
	if code := getJSON(t, handler, "/runs/"+first, &byID); code != http.StatusOK {
		t.Fatalf("/runs/{id} status = %d", code)
	}
	if byID.RunID != first {
		t.Errorf("run = %s, want %s", byID.RunID, first)
	}

	if code := getJSON(t, handler, "/runs/unknown", nil); code != http.StatusNotFound {
		t.Errorf("unknown run: status = %d, want 404", code)
	}
}
