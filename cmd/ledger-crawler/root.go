package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oxen-io/ledger-crawler"
	"github.com/oxen-io/ledger-crawler/internal/config"
	"github.com/oxen-io/ledger-crawler/internal/logging"
	"github.com/oxen-io/ledger-crawler/internal/telemetry"
)

// app carries the global flags and the state built from them before any
// subcommand runs.
type app struct {
	// Global flags.
	configPath string
	apiURL     string
	timeout    time.Duration
	poll       time.Duration
	quirks     string
	homeTitle  string
	logPreset  string
	logLevel   zapcore.Level

	cfg    *config.Config
	logger *zap.Logger
	tel    *telemetry.Telemetry
}

func newRootCmd() *cobra.Command {
	a := &app{logLevel: zapcore.InfoLevel}

	root := &cobra.Command{
		Use:   "ledger-crawler",
		Short: "Drive and assert a Speculos-emulated hardware wallet",
		Long: `ledger-crawler talks to the REST API of a Speculos device emulator running
a hardware wallet app. It reads the device screen, pushes its buttons, and
checks the screens the device shows while wallet commands run.

Settings come from flags, then LEDGER_CRAWLER_* environment variables, then
.ledger-crawler.yaml or ~/.config/ledger-crawler/config.yaml.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: .ledger-crawler.yaml, then ~/.config/ledger-crawler/config.yaml)")
	flags.StringVar(&a.apiURL, "api", "", "emulator REST API URL (default "+crawler.DefaultAPIURL+")")
	flags.DurationVar(&a.timeout, "timeout", 0, "total interaction timeout (default 30s)")
	flags.DurationVar(&a.poll, "poll", 0, "screen polling interval (default 250ms)")
	flags.StringVar(&a.quirks, "quirks", "", "device quirk workarounds: auto, on, off (default auto)")
	flags.StringVar(&a.homeTitle, "home-title", "", `first line of the wallet main screen (default "OXEN wallet")`)
	flags.StringVar(&a.logPreset, "log-preset", "", "logger preset or path to a YAML zap config.\nAvailable presets: console, console-nocolor, console-notime, production, development")
	flags.TextVar(&a.logLevel, "log-level", zapcore.InfoLevel, "log level for the console presets.\nAvailable levels: debug, info, warn, error")

	root.AddCommand(
		newScreenCmd(a),
		newPressCmd(a),
		newReadCmd(a),
		newDetectCmd(a),
		newCheckCmd(a),
		newRunCmd(a),
		newEmulateCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, applies flags that were set explicitly on top
// of it, and builds the logger and telemetry.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.APIURL = a.apiURL
	}
	if flags.Changed("timeout") {
		cfg.TimeoutDuration = a.timeout
	}
	if flags.Changed("poll") {
		cfg.PollDuration = a.poll
	}
	if flags.Changed("quirks") {
		mode, err := crawler.ParseQuirkMode(a.quirks)
		if err != nil {
			return err
		}
		cfg.QuirkMode = mode
	}
	if flags.Changed("home-title") {
		cfg.HomeTitle = a.homeTitle
	}
	if flags.Changed("log-preset") {
		cfg.LogPreset = a.logPreset
	}
	if flags.Changed("log-level") {
		cfg.Level = a.logLevel
	}
	a.cfg = cfg

	a.logger, err = logging.NewZapLogger(cfg.LogPreset, cfg.Level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.ConfigFile != "" {
		a.logger.Debug("Loaded config", zap.String("path", cfg.ConfigFile))
	}

	telemetry.Version = Version
	a.tel, err = telemetry.Init(cmd.Context(), telemetry.Config{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		a.logger.Warn("OpenTelemetry init failed", zap.Error(err))
	}
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	if a.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.tel.Shutdown(ctx)
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

// connect opens a session on the configured emulator. Unless probe is set,
// an auto quirk mode does not run the detection handshake, which would push
// buttons behind the user's back.
func (a *app) connect(ctx context.Context, probe bool) (*crawler.Session, error) {
	opts := append(a.cfg.SessionOptions(), crawler.WithLogger(a.logger))
	if !probe && a.cfg.QuirkMode == crawler.QuirksAuto {
		opts = append(opts, crawler.WithQuirkDetection(crawler.QuirksOff))
	}
	return crawler.Connect(ctx, a.cfg.APIURL, opts...)
}

