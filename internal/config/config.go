// Package config loads the optional daemon configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration. Zero-valued fields fall back to the
// defaults below; flags override the file.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`

	Engine EngineOverrides `yaml:"engine"`
}

// EngineOverrides adjusts the planning engine constants. Zero values keep the
// engine defaults.
type EngineOverrides struct {
	DefaultWorkStartHour int     `yaml:"default_work_start_hour"`
	DefaultWorkEndHour   int     `yaml:"default_work_end_hour"`
	BaseWeeklyHours      float64 `yaml:"base_weekly_hours"`
	HeatmapDays          int     `yaml:"heatmap_days"`
	CacheTTLSeconds      int     `yaml:"cache_ttl_seconds"`
}

// Default returns the built-in configuration.
func Default() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		ListenAddr: "127.0.0.1:7467",
		DBPath:     filepath.Join(homeDir, ".crewplan", "crewplan.db"),
	}
}

// Load reads a YAML config file and overlays it onto the defaults. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if file.ListenAddr != "" {
		cfg.ListenAddr = file.ListenAddr
	}
	if file.DBPath != "" {
		cfg.DBPath = file.DBPath
	}
	cfg.Engine = file.Engine
	return cfg, nil
}
