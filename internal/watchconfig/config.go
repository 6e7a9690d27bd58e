// Package watchconfig parses the hierarchical Section -> Parameter -> Value
// configuration source described in spec.md §6 from a YAML file, and
// watches it for changes so the Coordinator can hot-reload (spec.md §4.6).
package watchconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Sections is the raw hierarchical configuration: Section -> Parameter ->
// Value, all strings, exactly as spec.md §6 describes the configuration
// source.
type Sections map[string]map[string]string

// WatchdogConfig is the parsed "Watchdog" section (spec.md §4.6's
// configuration schema table).
type WatchdogConfig struct {
	HealthCheckInterval          time.Duration
	MetricInterval               time.Duration
	DiagnosticInterval           time.Duration
	DiagnosticTimeToKeep         time.Duration
	DiagnosticTargetCount        int
	DiagnosticEndpoint           string
	DiagnosticSasToken           string
	WatchdogHealthReportInterval time.Duration
	TelemetryKey                 string
}

const watchdogSection = "Watchdog"

// Defaults returns spec.md §4.6's documented defaults.
func Defaults() WatchdogConfig {
	return WatchdogConfig{
		HealthCheckInterval:          5 * time.Minute,
		MetricInterval:               5 * time.Minute,
		DiagnosticInterval:           2 * time.Minute,
		DiagnosticTimeToKeep:         10 * 24 * time.Hour,
		DiagnosticTargetCount:        8000,
		WatchdogHealthReportInterval: 60 * time.Second,
	}
}

// Load reads path as YAML into Sections, then parses the Watchdog section
// into a WatchdogConfig, falling back to Defaults() for any parameter that
// is missing or fails to parse.
func Load(path string) (WatchdogConfig, error) {
	raw, err := readSections(path)
	if err != nil {
		return WatchdogConfig{}, err
	}
	return parse(raw), nil
}

func readSections(path string) (Sections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watchconfig: reading %s: %w", path, err)
	}
	var sections Sections
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("watchconfig: parsing %s: %w", path, err)
	}
	return sections, nil
}

func parse(raw Sections) WatchdogConfig {
	cfg := Defaults()
	params := raw[watchdogSection]
	if params == nil {
		return cfg
	}

	if v, ok := parseDuration(params, "HealthCheckInterval"); ok {
		cfg.HealthCheckInterval = v
	}
	if v, ok := parseDuration(params, "MetricInterval"); ok {
		cfg.MetricInterval = v
	}
	if v, ok := parseDuration(params, "DiagnosticInterval"); ok {
		cfg.DiagnosticInterval = v
	}
	if v, ok := parseDuration(params, "DiagnosticTimeToKeep"); ok {
		cfg.DiagnosticTimeToKeep = v
	}
	if v, ok := parseInt(params, "DiagnosticTargetCount"); ok {
		cfg.DiagnosticTargetCount = v
	}
	if v, ok := params["DiagnosticEndpoint"]; ok {
		cfg.DiagnosticEndpoint = v
	}
	if v, ok := params["DiagnosticSasToken"]; ok {
		cfg.DiagnosticSasToken = v
	}
	if v, ok := parseDuration(params, "WatchdogHealthReportInterval"); ok {
		cfg.WatchdogHealthReportInterval = v
	}
	if v, ok := params["TelemetryKey"]; ok {
		cfg.TelemetryKey = v
	}
	return cfg
}

func parseDuration(params map[string]string, key string) (time.Duration, bool) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return 0, false
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return d, true
}

func parseInt(params map[string]string, key string) (int, bool) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
