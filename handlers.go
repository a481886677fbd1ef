package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kwv/terrafill/terrain"
)

// maxUploadBytes bounds the CSV body accepted by /reconstruct
const maxUploadBytes = 64 << 20

// newHTTPServer creates an HTTP server with all endpoints. Every request
// gets its own Reconstructor. publisher may be nil.
func newHTTPServer(config *terrain.Config, publisher *terrain.Publisher, runs *terrain.RunTracker) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Version   string    `json:"version"`
			Timestamp time.Time `json:"timestamp"`
			MQTT      bool      `json:"mqtt"`
		}{
			Status:    "ok",
			Version:   Version,
			Timestamp: time.Now(),
			MQTT:      publisher != nil,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Reconstruction endpoint: CSV in, artifact out
	mux.HandleFunc("/reconstruct", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "POST a CSV body", http.StatusMethodNotAllowed)
			return
		}

		format := r.URL.Query().Get("format")
		if format == "" {
			format = "csv"
		}
		if _, ok := contentTypes[format]; !ok {
			http.Error(w, "format must be csv, png, svg, geojson, or html", http.StatusBadRequest)
			return
		}

		set, err := terrain.ReadSamples(http.MaxBytesReader(w, r.Body, maxUploadBytes), config.Lattice)
		if err != nil {
			log.Printf("[HTTP] /reconstruct: %v", err)
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, err.Error(), status)
			return
		}

		var reporter terrain.ProgressReporter = terrain.LogReporter{}
		if publisher != nil {
			reporter = terrain.MultiReporter{terrain.LogReporter{}, publisher}
		}
		rc, err := terrain.NewReconstructor(config, reporter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		res, err := rc.Run(set)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		runs.Record(res)
		if publisher != nil {
			if err := publisher.PublishSummary(res); err != nil {
				log.Printf("Error publishing summary: %v", err)
			}
		}

		// Render fully before writing so failures can still return 500
		var buf bytes.Buffer
		if err := renderResult(&buf, format, config, res); err != nil {
			log.Printf("Error rendering %s for run %s: %v", format, res.RunID, err)
			http.Error(w, "rendering failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Run-ID", res.RunID)
		if _, err := w.Write(buf.Bytes()); err != nil {
			log.Printf("Error writing %s response: %v", format, err)
		}
	})

	// Run history, newest first
	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, runs.Runs())
	})

	mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var (
			summary terrain.SummaryMessage
			ok      bool
		)
		if id == "latest" {
			summary, ok = runs.Latest()
		} else {
			summary, ok = runs.Get(id)
		}
		if !ok {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		writeJSON(w, summary)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

var contentTypes = map[string]string{
	"csv":     "text/csv",
	"png":     "image/png",
	"svg":     "image/svg+xml",
	"geojson": "application/geo+json",
	"html":    "text/html; charset=utf-8",
}

// renderResult writes res in the requested format
func renderResult(buf *bytes.Buffer, format string, config *terrain.Config, res *terrain.Result) error {
	switch format {
	case "png":
		renderer, err := terrain.NewRasterRenderer(config)
		if err != nil {
			return err
		}
		if config.Output.Caption {
			renderer.Caption = terrain.RunCaption(res)
		}
		return renderer.RenderPNG(buf, res.Points)
	case "svg":
		renderer, err := terrain.NewVectorRenderer(config)
		if err != nil {
			return err
		}
		return renderer.RenderToSVG(buf, res.Points)
	case "geojson":
		data, err := terrain.ToFeatureCollection(res).MarshalJSON()
		if err != nil {
			return err
		}
		_, err = buf.Write(data)
		return err
	case "html":
		return terrain.RenderConvergenceHTML(buf, res)
	default:
		return terrain.WriteCSV(buf, res)
	}
}
