package terrain

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned by LoadConfig when the file does not exist
var ErrConfigNotFound = errors.New("config file not found")

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	config := &Config{}
	config.ApplyDefaults()
	return config
}

// ApplyDefaults fills zero-valued fields with their defaults
func (c *Config) ApplyDefaults() {
	// An axis with both bounds unset spans the globe; 0 alone is a real bound
	def := DefaultLattice()
	if c.Lattice.XMin == 0 && c.Lattice.XMax == 0 {
		c.Lattice.XMin, c.Lattice.XMax = def.XMin, def.XMax
	}
	if c.Lattice.YMin == 0 && c.Lattice.YMax == 0 {
		c.Lattice.YMin, c.Lattice.YMax = def.YMin, def.YMax
	}
	if c.Lattice.CellSize == 0 {
		c.Lattice.CellSize = def.CellSize
	}
	if c.Output.Suffix == "" {
		c.Output.Suffix = "_updated.csv"
	}
	if c.Output.ImageSuffix == "" {
		c.Output.ImageSuffix = "_grid"
	}
	if c.Output.Format == "" {
		c.Output.Format = "raster"
	}
	if c.Output.PixelsPerCell == 0 {
		c.Output.PixelsPerCell = 4
	}
	if c.Output.NoDataColor == "" {
		c.Output.NoDataColor = "#000000"
	}
	if c.MQTT.PublishPrefix == "" {
		c.MQTT.PublishPrefix = "terrafill"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "terrafill"
	}
}

// Validate checks the fields ApplyDefaults cannot repair
func (c *Config) Validate() error {
	if err := c.Lattice.Validate(); err != nil {
		return err
	}
	if len(c.Thresholds) > 0 {
		if err := c.Thresholds.Validate(); err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
	}
	switch c.Output.Format {
	case "raster", "vector", "both", "none":
	default:
		return fmt.Errorf("output.format must be raster, vector, both, or none, got %q", c.Output.Format)
	}
	if c.Output.PixelsPerCell < 1 {
		return fmt.Errorf("output.pixelsPerCell must be >= 1, got %d", c.Output.PixelsPerCell)
	}
	if _, err := ParseHexColor(c.Output.NoDataColor); err != nil {
		return fmt.Errorf("output.noDataColor: %w", err)
	}
	return nil
}

// LoadConfig loads the configuration from a YAML file, applying defaults
// and environment overrides
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.ApplyDefaults()
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyEnv lets MQTT_BROKER and MQTT_PUBLISH_PREFIX override the file
func (c *Config) ApplyEnv() {
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		c.MQTT.Broker = broker
	}
	if prefix := os.Getenv("MQTT_PUBLISH_PREFIX"); prefix != "" {
		c.MQTT.PublishPrefix = prefix
	}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ParseHexColor parses "#RRGGBB" (the # is optional)
func ParseHexColor(hex string) (color.RGBA, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}

	return color.RGBA{r, g, b, 255}, nil
}
