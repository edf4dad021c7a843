// Package logging builds the zap loggers used by the ledger-crawler CLI.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Presets lists the built-in logger configurations.
var Presets = []string{"console", "console-nocolor", "console-notime", "production", "development"}

// NewZapLogger returns a new zap logger built from a preset name or the path
// to a YAML zap.Config. The level applies to the console presets only.
func NewZapLogger(zapConf string, level zapcore.Level) (*zap.Logger, error) {
	switch zapConf {
	case "console", "":
		return newConsoleLogger(level, true, true)
	case "console-nocolor":
		return newConsoleLogger(level, false, true)
	case "console-notime":
		return newConsoleLogger(level, true, false)
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	}

	data, err := os.ReadFile(zapConf)
	if err != nil {
		return nil, fmt.Errorf("unknown logger preset %q and failed to read it as a file: %w", zapConf, err)
	}
	var cfg zap.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing logger config %s: %w", zapConf, err)
	}
	return cfg.Build()
}

func newConsoleLogger(level zapcore.Level, color, timestamps bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Development = false
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	if color {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if !timestamps {
		cfg.EncoderConfig.TimeKey = zapcore.OmitKey
	}
	return cfg.Build()
}
