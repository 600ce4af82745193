package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds output locations and prune/overlay settings.
type Config struct {
	// Paths
	OutputDir string `json:"output_dir"` // pruned model, assets and manifest
	AssetDir  string `json:"asset_dir"`  // relative to OutputDir unless absolute

	// Naming
	AssetSuffix string `json:"asset_suffix"`
	CopySuffix  string `json:"copy_suffix"`

	// Prune settings
	Duplicate *bool `json:"duplicate"` // prune a copy of the model
	Workers   int   `json:"workers"`

	// Overlay settings
	OverlaySize int     `json:"overlay_size"`
	Supersample int     `json:"supersample"`
	LineWidth   float64 `json:"line_width"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults derived from the model
// path. CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags, modelPath string) {
	// CLI flags override config file
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.OverlaySize > 0 {
		c.OverlaySize = flags.OverlaySize
	}
	if flags.InPlace {
		c.Duplicate = new(bool)
	}

	// Outputs land next to the source model by default
	if c.OutputDir == "" {
		c.OutputDir = filepath.Dir(modelPath)
	}
	if c.AssetDir == "" {
		c.AssetDir = c.OutputDir
	} else if !filepath.IsAbs(c.AssetDir) {
		c.AssetDir = filepath.Join(c.OutputDir, c.AssetDir)
	}

	if c.AssetSuffix == "" {
		c.AssetSuffix = "-pruned"
	}
	if c.CopySuffix == "" {
		c.CopySuffix = "_deleteBones"
	}
	if c.Duplicate == nil {
		dup := true
		c.Duplicate = &dup
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	// Defaults for overlay settings
	if c.OverlaySize <= 0 {
		c.OverlaySize = 512
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.LineWidth <= 0 {
		c.LineWidth = 2
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	OutputDir   string
	Workers     int
	OverlaySize int
	InPlace     bool
}
