package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"farmchain/config"
	"farmchain/core/state"
	"farmchain/observability/logging"
	"farmchain/observability/metrics"
	telemetry "farmchain/observability/otel"
	"farmchain/storage"
)

const (
	initCommand     = "init-config"
	inspectCommand  = "inspect"
	simulateCommand = "simulate"
	serveCommand    = "serve"
	defaultConfig   = "./config.toml"
	serviceName     = "farmctl"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case initCommand:
		err = runInit(os.Args[2:])
	case inspectCommand:
		err = runInspect(os.Args[2:], os.Stdout)
	case simulateCommand:
		err = runSimulate(os.Args[2:], os.Stdout)
	case serveCommand:
		err = runServe(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: farmctl <command> [flags]

Commands:
  %s   write a default configuration file
  %s        print farm and deposit records from the data directory
  %s       replay a YAML scenario against a farm store
  %s          serve read-only farm queries and metrics over HTTP
`, initCommand, inspectCommand, simulateCommand, serveCommand)
}

func runInit(args []string) error {
	fs := flag.NewFlagSet(initCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path of the config file to create")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	fs.Parse(args)

	if !*force {
		if _, err := os.Stat(*configPath); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", *configPath)
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	if err := config.Save(*configPath, config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Wrote default configuration to %s\n", *configPath)
	return nil
}

func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(inspectCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the farmctl config file")
	dataDir := fs.String("data-dir", "", "Override the configured data directory")
	globalID := fs.Uint("global", 0, "Print a single global farm")
	yieldID := fs.Uint("yield", 0, "Print a single yield farm")
	depositID := fs.Uint64("deposit", 0, "Print a single deposit")
	decimals := fs.Int("decimals", 0, "Decimal places used to render amounts")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dir := cfg.DataDir
	if strings.TrimSpace(*dataDir) != "" {
		dir = *dataDir
	}
	db, err := storage.NewLevelDB(dir)
	if err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}
	defer db.Close()

	report, err := inspectStore(state.NewFarmStore(db), inspectQuery{
		globalFarm: uint32(*globalID),
		yieldFarm:  uint32(*yieldID),
		deposit:    *depositID,
	}, newAmountFormatter(*decimals))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runSimulate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(simulateCommand, flag.ExitOnError)
	configPath := fs.String("config", "", "Optional farmctl config file supplying module parameters")
	scenarioPath := fs.String("scenario", "", "Path to the YAML scenario")
	dataDir := fs.String("data-dir", "", "Persist the resulting state to this LevelDB directory instead of memory")
	decimals := fs.Int("decimals", 0, "Decimal places used to render amounts")
	verbose := fs.Bool("v", false, "Log engine activity to stderr")
	fs.Parse(args)

	if strings.TrimSpace(*scenarioPath) == "" {
		return errors.New("--scenario is required")
	}
	raw, err := os.ReadFile(*scenarioPath)
	if err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}
	sc, err := parseScenario(raw)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if strings.TrimSpace(*configPath) != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	var db storage.Database = storage.NewMemDB()
	if strings.TrimSpace(*dataDir) != "" {
		if db, err = storage.NewLevelDB(*dataDir); err != nil {
			return fmt.Errorf("open data directory: %w", err)
		}
	}
	defer db.Close()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logging.Setup(serviceName, "simulate", logging.WithWriter(os.Stderr), logging.WithLevel(level))

	store := state.NewFarmStore(db)
	if err := store.EnsureSchemaVersion(false); err != nil {
		return err
	}
	sim, err := newSimulator(store, cfg.Farming, sc, out, newAmountFormatter(*decimals))
	if err != nil {
		return err
	}
	sim.engine.SetLogger(logger)
	return sim.run()
}

func runServe(args []string) error {
	fs := flag.NewFlagSet(serveCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the farmctl config file")
	decimals := fs.Int("decimals", 0, "Decimal places used to render amounts")
	allowMigrate := fs.Bool("allow-migrate", false, "Serve a store whose schema version differs from this binary")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := strings.TrimSpace(os.Getenv("FARM_ENV"))
	opts := []logging.Option{logging.WithLevel(logging.ParseLevel(cfg.LogLevel))}
	if strings.TrimSpace(cfg.LogFile) != "" {
		opts = append(opts, logging.WithFile(cfg.LogFile, 100, 5))
	}
	logger := logging.Setup(serviceName, env, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetryCfg := telemetry.ConfigFromEnv(serviceName, env)
	telemetryCfg.Network = cfg.NetworkName
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	params, err := cfg.Farming.EngineParams()
	if err != nil {
		return err
	}
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open data directory: %w", err)
	}
	defer db.Close()

	store := state.NewFarmStore(db)
	if err := store.EnsureSchemaVersion(*allowMigrate); err != nil {
		return err
	}
	srv := newQueryServer(store, params, newAmountFormatter(*decimals), logger)
	srv.metrics = metrics.Farming()

	httpServer := &http.Server{
		Addr:              cfg.QueryAddress,
		Handler:           srv.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("query server listening", "addr", cfg.QueryAddress, "network", cfg.NetworkName)
		errCh <- httpServer.ListenAndServe()
	}()
	var metricsServer *http.Server
	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" && addr != cfg.QueryAddress {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics server listening", "addr", addr)
			errCh <- metricsServer.ListenAndServe()
		}()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	return httpServer.Shutdown(shutdownCtx)
}
