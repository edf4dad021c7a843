// Package config loads ledger-crawler configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (LEDGER_CRAWLER_*, OTEL_EXPORTER_OTLP_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order, unless a path is given explicitly:
//  1. .ledger-crawler.yaml in current directory
//  2. ~/.config/ledger-crawler/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/oxen-io/ledger-crawler"
)

// Config holds all ledger-crawler configuration.
type Config struct {
	// Device
	APIURL    string `yaml:"api_url"`
	Quirks    string `yaml:"quirks"`     // auto, on, or off
	HomeTitle string `yaml:"home_title"` // first line of the wallet main screen

	// Interaction timing
	Timeout string `yaml:"timeout"` // Go duration string, e.g. "30s"
	Poll    string `yaml:"poll"`    // Go duration string, e.g. "250ms"

	// Logging
	LogPreset string `yaml:"log_preset"` // console, console-nocolor, production, development
	LogLevel  string `yaml:"log_level"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// Parsed values (not from YAML, set after loading)
	TimeoutDuration time.Duration     `yaml:"-"`
	PollDuration    time.Duration     `yaml:"-"`
	QuirkMode       crawler.QuirkMode `yaml:"-"`
	Level           zapcore.Level     `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		APIURL:    crawler.DefaultAPIURL,
		Quirks:    string(crawler.QuirksAuto),
		HomeTitle: "OXEN wallet",
		Timeout:   "30s",
		Poll:      "250ms",
		LogPreset: "console",
		LogLevel:  "info",
	}
}

// Load reads configuration from file and environment variables.
// A non-empty path must exist; otherwise the default locations are searched.
// Environment variables always override file values.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	path, data, err := findConfigFile(path)
	switch {
	case err == nil:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	case path != "":
		return nil, err
	}

	mergeEnv(cfg)

	if err := cfg.parse(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) parse() error {
	var err error
	cfg.TimeoutDuration, err = parseDuration(cfg.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
	}
	cfg.PollDuration, err = parseDuration(cfg.Poll)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", cfg.Poll, err)
	}
	cfg.QuirkMode, err = crawler.ParseQuirkMode(cfg.Quirks)
	if err != nil {
		return fmt.Errorf("invalid quirks setting: %w", err)
	}
	cfg.Level, err = zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return nil
}

// SessionOptions returns the crawler options described by cfg.
func (cfg *Config) SessionOptions() []crawler.Option {
	return []crawler.Option{
		crawler.WithAPIURL(cfg.APIURL),
		crawler.WithTimeout(cfg.TimeoutDuration),
		crawler.WithPollInterval(cfg.PollDuration),
		crawler.WithQuirkDetection(cfg.QuirkMode),
		crawler.WithHomeTitle(cfg.HomeTitle),
	}
}

// findConfigFile returns the explicit path's contents, or searches the
// default locations. The returned path is empty when nothing was searched
// successfully and no explicit path was given.
func findConfigFile(explicit string) (string, []byte, error) {
	if explicit != "" {
		data, err := os.ReadFile(explicit)
		if err != nil {
			return explicit, nil, fmt.Errorf("reading config file: %w", err)
		}
		return explicit, data, nil
	}

	// 1. Current directory
	if data, err := os.ReadFile(".ledger-crawler.yaml"); err == nil {
		return ".ledger-crawler.yaml", data, nil
	}

	// 2. ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "ledger-crawler", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.APIURL != "" {
		cfg.APIURL = file.APIURL
	}
	if file.Quirks != "" {
		cfg.Quirks = file.Quirks
	}
	if file.HomeTitle != "" {
		cfg.HomeTitle = file.HomeTitle
	}
	if file.Timeout != "" {
		cfg.Timeout = file.Timeout
	}
	if file.Poll != "" {
		cfg.Poll = file.Poll
	}
	if file.LogPreset != "" {
		cfg.LogPreset = file.LogPreset
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("LEDGER_CRAWLER_API"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("LEDGER_CRAWLER_QUIRKS"); v != "" {
		cfg.Quirks = v
	}
	if v := os.Getenv("LEDGER_CRAWLER_TIMEOUT"); v != "" {
		cfg.Timeout = v
	}
	if v := os.Getenv("LEDGER_CRAWLER_POLL"); v != "" {
		cfg.Poll = v
	}
	if v := os.Getenv("LEDGER_CRAWLER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}

// parseDuration parses a non-negative duration string. "0" is accepted and
// means "use the crawler default".
func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}
