package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/terrafill/terrain"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *terrain.Config
	MQTTClient mqtt.Client
	Publisher  *terrain.Publisher

	// CLI Flags (effectively dependencies)
	InputFile  string
	ConfigFile string
	Format     string
	Traversal  string
	GeoJSON    bool
	Report     bool
	Caption    bool
	HttpMode   bool
	HttpPort   int
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.InputFile = opts.InputFile
	a.ConfigFile = opts.ConfigFile
	a.Format = opts.Format
	a.Traversal = opts.Traversal
	a.GeoJSON = opts.GeoJSON
	a.Report = opts.Report
	a.Caption = opts.Caption
	a.HttpMode = opts.HttpMode
	a.HttpPort = opts.HttpPort
}

// loadConfig reads the config file, falling back to the defaults when it
// does not exist, and applies the command line overrides
func (a *App) loadConfig() (*terrain.Config, error) {
	config, err := terrain.LoadConfig(a.ConfigFile)
	switch {
	case errors.Is(err, terrain.ErrConfigNotFound):
		log.Printf("No config at %s, using defaults", a.ConfigFile)
		config = terrain.DefaultConfig()
		config.ApplyEnv()
	case err != nil:
		return nil, fmt.Errorf("loading config %s: %w", a.ConfigFile, err)
	default:
		log.Printf("Loaded config from %s", a.ConfigFile)
	}

	if a.Format != "" {
		config.Output.Format = a.Format
	}
	if a.Traversal != "" {
		order, err := terrain.ParseTraversalOrder(a.Traversal)
		if err != nil {
			return nil, err
		}
		config.Traversal = order
	}
	config.Output.GeoJSON = config.Output.GeoJSON || a.GeoJSON
	config.Output.Report = config.Output.Report || a.Report
	config.Output.Caption = config.Output.Caption || a.Caption

	if err := config.Validate(); err != nil {
		return nil, err
	}
	a.Config = config
	return config, nil
}

// connectPublisher sets up MQTT progress publishing when a broker is
// configured. Failing to connect only disables publishing.
func (a *App) connectPublisher(config *terrain.Config) {
	client, err := terrain.ConnectMQTT(config.MQTT)
	if err != nil {
		log.Printf("Warning: MQTT unavailable, progress will not be published: %v", err)
		return
	}
	if client == nil {
		return
	}
	a.MQTTClient = client
	a.Publisher = terrain.NewPublisher(client, config.MQTT.PublishPrefix)
}

func (a *App) disconnect() {
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect(250)
		a.MQTTClient = nil
		a.Publisher = nil
	}
}

// reporter logs progress and, when connected, publishes it
func (a *App) reporter() terrain.ProgressReporter {
	if a.Publisher == nil {
		return terrain.LogReporter{}
	}
	return terrain.MultiReporter{terrain.LogReporter{}, a.Publisher}
}

// RunReconstruct reads the input file, fills it and writes every
// configured output next to it. A header without the required columns is
// reported and produces no output.
func (a *App) RunReconstruct() error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	set, err := a.readInput(config)
	if errors.Is(err, terrain.ErrMissingColumns) {
		log.Printf("Error: %s: %v", a.InputFile, err)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("Read %d samples from %s", len(set.Samples), a.InputFile)

	a.connectPublisher(config)
	defer a.disconnect()

	rc, err := terrain.NewReconstructor(config, a.reporter())
	if err != nil {
		return err
	}
	res, err := rc.Run(set)
	if err != nil {
		return err
	}

	written, err := writeOutputs(outputBase(a.InputFile), config, res)
	if err != nil {
		return err
	}
	for _, path := range written {
		log.Printf("Wrote %s", path)
	}

	if a.Publisher != nil {
		if err := a.Publisher.PublishSummary(res); err != nil {
			log.Printf("Error publishing summary: %v", err)
		}
	}

	log.Printf("Run %s: %d samples, %d outer fills, %d hole fills (%d in place) in %s",
		res.RunID, len(set.Samples), res.OuterTotal, res.HoleTotal, res.Replaced, res.Elapsed)
	return nil
}

// readInput reads a local file or downloads an http(s) URL
func (a *App) readInput(config *terrain.Config) (*terrain.SampleSet, error) {
	if terrain.IsRemote(a.InputFile) {
		return terrain.FetchSamples(context.Background(), a.InputFile, config.Lattice)
	}
	return terrain.ReadSamplesFile(a.InputFile, config.Lattice)
}

// outputBase is the path outputs are named after. Downloads are written to
// the working directory under the URL's file name.
func outputBase(input string) string {
	if !terrain.IsRemote(input) {
		return input
	}
	u, err := url.Parse(input)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "remote.csv"
	}
	return path.Base(u.Path)
}

// writeOutputs writes the updated CSV and the optional renderings,
// returning the paths written
func writeOutputs(input string, config *terrain.Config, res *terrain.Result) ([]string, error) {
	var written []string
	out := config.Output

	csvPath := terrain.OutputPath(input, out.Suffix)
	if err := terrain.WriteCSVFile(csvPath, res); err != nil {
		return written, err
	}
	written = append(written, csvPath)

	if out.Format == "raster" || out.Format == "both" {
		renderer, err := terrain.NewRasterRenderer(config)
		if err != nil {
			return written, err
		}
		if out.Caption {
			renderer.Caption = terrain.RunCaption(res)
		}
		path := terrain.OutputPath(input, out.ImageSuffix+".png")
		if err := renderer.SavePNG(path, res.Points); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if out.Format == "vector" || out.Format == "both" {
		renderer, err := terrain.NewVectorRenderer(config)
		if err != nil {
			return written, err
		}
		path := terrain.OutputPath(input, out.ImageSuffix+".svg")
		if err := saveSVG(path, renderer, res); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if out.GeoJSON {
		path := terrain.OutputPath(input, out.ImageSuffix+".geojson")
		if err := terrain.SaveGeoJSON(path, res); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if out.Report {
		plotPath := terrain.OutputPath(input, "_convergence.png")
		if err := terrain.SaveConvergencePlot(plotPath, res); err != nil {
			return written, err
		}
		written = append(written, plotPath)

		htmlPath := terrain.OutputPath(input, "_convergence.html")
		f, err := os.Create(htmlPath)
		if err != nil {
			return written, fmt.Errorf("creating chart: %w", err)
		}
		if err := terrain.RenderConvergenceHTML(f, res); err != nil {
			f.Close()
			return written, err
		}
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("closing chart: %w", err)
		}
		written = append(written, htmlPath)
	}

	return written, nil
}

func saveSVG(path string, renderer *terrain.VectorRenderer, res *terrain.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating SVG: %w", err)
	}
	if err := renderer.RenderToSVG(f, res.Points); err != nil {
		f.Close()
		return fmt.Errorf("rendering SVG: %w", err)
	}
	return f.Close()
}

// RunService serves reconstructions over HTTP until interrupted
func (a *App) RunService() error {
	fmt.Println("Starting terrafill service...")

	config, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.connectPublisher(config)
	defer a.disconnect()

	if a.Publisher != nil {
		fmt.Println("MQTT progress publisher initialized")
	}

	runs := terrain.NewRunTrackerWithCache(terrain.DefaultRunHistory, config.RunHistory)
	server := newHTTPServer(config, a.Publisher, runs)
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("0.0.0.0:%d", a.HttpPort)
		log.Printf("[HTTP] Starting server on %s", addr)
		errCh <- http.ListenAndServe(addr, server)
	}()

	fmt.Println("\nService Running")
	fmt.Println("===============")
	fmt.Printf("\nHTTP endpoints (port %d):\n", a.HttpPort)
	fmt.Println("  GET  /health       - Health check")
	fmt.Println("  POST /reconstruct  - Fill a CSV body (?format=csv|png|svg|geojson|html)")
	fmt.Println("  GET  /runs         - Recent run summaries")
	fmt.Println("  GET  /runs/{id}    - One run summary (or \"latest\")")
	if a.Publisher != nil {
		fmt.Printf("\nMQTT:\n  Progress: %s/progress\n  Summary:  %s/summary\n",
			config.MQTT.PublishPrefix, config.MQTT.PublishPrefix)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("[HTTP] server error: %w", err)
	}

	fmt.Println("\nShutting down service...")
	fmt.Println("Service stopped")
	return nil
}
