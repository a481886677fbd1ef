package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	InputFile  string
	ConfigFile string
	// Format overrides output.format from the config when set
	Format    string
	Traversal string
	GeoJSON   bool
	Report    bool
	Caption   bool
	HttpMode  bool
	HttpPort  int
}

// Runner is what run drives. *App implements it.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunReconstruct() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("terrafill: %v", err)
	}
}

// run parses args and dispatches to app. An empty input path means the
// selection was cancelled and nothing happens.
func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("terrafill", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.InputFile, "input", "", "Path to the input CSV of elevation samples")
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file (optional)")
	fs.StringVar(&opts.Format, "format", "", "Render format: raster, vector, both, or none (default from config)")
	fs.StringVar(&opts.Traversal, "traversal", "", "Fill traversal order: row-major or column-major (default from config)")
	fs.BoolVar(&opts.GeoJSON, "geojson", false, "Also write the grid as GeoJSON")
	fs.BoolVar(&opts.Report, "report", false, "Also write convergence plot and HTML chart")
	fs.BoolVar(&opts.Caption, "caption", false, "Draw a run summary onto the raster image")
	fs.BoolVar(&opts.HttpMode, "http", false, "Run the HTTP reconstruction service")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port (default 8080)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.InputFile == "" && fs.NArg() > 0 {
		opts.InputFile = fs.Arg(0)
	}

	fmt.Fprintf(out, "terrafill version: %s\n", Version)
	app.ApplyOptions(opts)

	if opts.HttpMode {
		return app.RunService()
	}
	if opts.InputFile == "" {
		return nil
	}
	return app.RunReconstruct()
}
