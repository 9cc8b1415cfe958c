// Package config loads server configuration from an optional YAML file
// and the environment. Precedence, lowest to highest: built-in
// defaults, YAML file, RESOLVE_MCP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Modes for reaching DaVinci Resolve.
const (
	ModeSim    = "sim"
	ModeScript = "script"
)

type Config struct {
	// Mode selects the host binding: "sim" emulates Resolve in memory,
	// "script" drives a real instance through its scripting API.
	Mode string `env:"RESOLVE_MCP_MODE" yaml:"mode"`

	Log    Log    `yaml:"log"`
	Sim    Sim    `yaml:"sim"`
	Script Script `yaml:"script"`
}

type Log struct {
	Level  string `env:"RESOLVE_MCP_LOG_LEVEL" yaml:"level"`
	Format string `env:"RESOLVE_MCP_LOG_FORMAT" yaml:"format"`
}

// Sim configures the in-memory emulation.
type Sim struct {
	FrameRate        string `env:"RESOLVE_MCP_SIM_FRAME_RATE" yaml:"frame_rate"`
	ResolutionWidth  int    `env:"RESOLVE_MCP_SIM_RESOLUTION_WIDTH" yaml:"resolution_width"`
	ResolutionHeight int    `env:"RESOLVE_MCP_SIM_RESOLUTION_HEIGHT" yaml:"resolution_height"`
}

// Script configures the scripting-API bridge.
type Script struct {
	PythonPath string `env:"RESOLVE_MCP_PYTHON" yaml:"python"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode: ModeSim,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Sim: Sim{
			FrameRate:        "24",
			ResolutionWidth:  1920,
			ResolutionHeight: 1080,
		},
		Script: Script{
			PythonPath: "python3",
		},
	}
}

// Load builds the effective configuration. path names an optional YAML
// file; empty means no file. Environment variables win over the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	// env tags carry no defaults so an unset variable leaves the file
	// or built-in value alone.
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// frameRates the host accepts for timelineFrameRate.
var frameRates = map[string]bool{
	"16": true, "18": true, "23.976": true, "24": true, "25": true,
	"29.97": true, "30": true, "47.952": true, "48": true, "50": true,
	"59.94": true, "60": true,
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSim, ModeScript:
	default:
		return fmt.Errorf("invalid mode %q: must be %q or %q", c.Mode, ModeSim, ModeScript)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be \"text\" or \"json\"", c.Log.Format)
	}
	if !frameRates[c.Sim.FrameRate] {
		return fmt.Errorf("invalid frame rate %q", c.Sim.FrameRate)
	}
	if c.Sim.ResolutionWidth <= 0 || c.Sim.ResolutionHeight <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", c.Sim.ResolutionWidth, c.Sim.ResolutionHeight)
	}
	if c.Mode == ModeScript && c.Script.PythonPath == "" {
		return fmt.Errorf("script mode requires a python interpreter path")
	}
	return nil
}

// SlogLevel maps the configured level onto slog's scale.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
