package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"knnviz/internal/config"
	"knnviz/internal/dataset"
	"knnviz/internal/session"
	"knnviz/internal/tui"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	configPath      string
	flagK           int
	flagStride      int
	flagWorkers     int
	flagLogLevel    string
	flagLogFile     string
	flagMetricsAddr string
	flagX           string
	flagY           string

	// resolved in setup
	cfg           config.Config
	logger        *slog.Logger
	logFile       *os.File
	metricsServer *http.Server
)

// rootCmd runs the interactive viewer.
var rootCmd = &cobra.Command{
	Use:   "knnviz [file.csv]",
	Short: "Explore a k-nearest-neighbor classifier in the terminal",
	Long: `knnviz projects a labeled CSV dataset onto two feature axes and shows
how a k-nearest-neighbor classifier labels every point of the plane.

The last CSV column is the category label, every other column is a
numeric feature.

Examples:
  knnviz iris.csv
  knnviz iris.csv --x petal_length --y petal_width -k 7
  knnviz render iris.csv -o iris.png
  knnviz classify iris.csv --at 5.1,3.3`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
	RunE:              runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.IntVarP(&flagK, "k", "k", 0, "number of neighbors (overrides config)")
	pf.IntVar(&flagStride, "stride", 0, "surface sampling block size in pixels (overrides config)")
	pf.IntVar(&flagWorkers, "workers", 0, "rasterizer goroutines, 0 for GOMAXPROCS (overrides config)")
	pf.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	pf.StringVar(&flagLogFile, "log-file", "", "write logs to this file (overrides config)")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9464")
	pf.StringVar(&flagX, "x", "", "feature for the horizontal axis (default: first column)")
	pf.StringVar(&flagY, "y", "", "feature for the vertical axis (default: second column)")

	rootCmd.AddCommand(renderCmd, classifyCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides, configures logging and
// starts the metrics endpoint.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("k") {
		cfg.K = flagK
	}
	if flags.Changed("stride") {
		cfg.Stride = flagStride
	}
	if flags.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = flagLogFile
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The TUI owns the terminal, so it only logs to a file.
	interactive := cmd.Parent() == nil
	if err := setupLogging(cmd.ErrOrStderr(), interactive); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		metricsServer = startMetrics(cfg.MetricsAddr)
	}
	return nil
}

func setupLogging(stderr io.Writer, interactive bool) error {
	var w io.Writer = stderr
	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		w = f
	case interactive:
		w = io.Discard
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)
	return nil
}

func startMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func teardown(cmd *cobra.Command, args []string) {
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
		metricsServer = nil
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// sessionOptions maps the config onto a session. padding differs between
// the terminal canvas and PNG export.
func sessionOptions(padding float64) (session.Options, error) {
	palette, bg, err := cfg.Colors()
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		K:          cfg.K,
		Stride:     cfg.Stride,
		Padding:    padding,
		Palette:    palette,
		Background: bg,
	}, nil
}

// resolveAxes maps --x and --y to feature indices.
func resolveAxes(ds *dataset.Dataset) (x, y int, err error) {
	x, y = 0, 1
	if flagX != "" {
		if x = ds.FeatureIndex(flagX); x < 0 {
			return 0, 0, fmt.Errorf("unknown feature %q, have %v", flagX, ds.Features)
		}
	}
	if flagY != "" {
		if y = ds.FeatureIndex(flagY); y < 0 {
			return 0, 0, fmt.Errorf("unknown feature %q, have %v", flagY, ds.Features)
		}
	}
	return x, y, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	sopts, err := sessionOptions(cfg.TUIPadding)
	if err != nil {
		return err
	}
	opts := tui.Options{
		Session:       sopts,
		StridePresets: cfg.StridePresets,
		Debounce:      cfg.Debounce,
		Workers:       cfg.Workers,
		Logger:        logger,
	}

	var m tui.Model
	if len(args) == 1 {
		m = tui.NewWithPath(args[0], opts)
		if ds := m.Session().Data(); ds != nil && (flagX != "" || flagY != "") {
			x, y, err := resolveAxes(ds)
			if err != nil {
				m.Close()
				return err
			}
			m.Session().Apply(session.SetAxes{X: x, Y: y})
		}
	} else {
		m = tui.New(opts)
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	if fm, ok := final.(tui.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	return err
}
