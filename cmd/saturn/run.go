package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/decision/source"
	"mercator-hq/saturn/pkg/sla"
	"mercator-hq/saturn/pkg/sla/scheduler"
	"mercator-hq/saturn/pkg/sla/storage"
	"mercator-hq/saturn/pkg/telemetry/logging"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Saturn compliance engine",
	Long: `Start the compliance engine with the specified configuration.

The engine loads decision tables and SLA definitions from the configured
sources, re-evaluates open SLA instances on the configured schedule, and
serves metrics and health endpoints.

Examples:
  # Start with default config
  saturn run

  # Start with custom config
  saturn run --config /etc/saturn/config.yaml

  # Validate config without starting the engine
  saturn run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the engine")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.Install(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Mercator Saturn v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	// Storage
	var (
		store  storage.Store
		events storage.EventLog
	)
	switch cfg.Storage.Backend {
	case "sqlite":
		sqliteStore, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
			Path:         cfg.Storage.SQLite.Path,
			MaxOpenConns: cfg.Storage.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Storage.SQLite.MaxIdleConns,
			WALMode:      cfg.Storage.SQLite.WALMode,
			BusyTimeout:  cfg.Storage.SQLite.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		store = sqliteStore
		events = sqliteStore
	case "memory":
		store = storage.NewMemoryStore()
		events = storage.NewMemoryEventLog()
	default:
		return fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
	defer store.Close()
	fmt.Printf("✓ Storage initialized (%s)\n", cfg.Storage.Backend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Decision tables
	tables := source.NewRegistry()
	if cfg.Sources.Tables.Path != "" {
		tableSource := source.NewFileSource(cfg.Sources.Tables.Path, logger)
		if err := tables.Load(ctx, tableSource); err != nil {
			return fmt.Errorf("failed to load decision tables: %w", err)
		}
		fmt.Printf("✓ Decision tables loaded (%d tables)\n", tables.Len())
	} else {
		slog.Warn("no decision table source configured")
	}

	// SLA definitions
	defs := sla.NewRegistry()
	if cfg.Sources.Definitions.Path != "" {
		loaded, err := sla.LoadDefinitions(cfg.Sources.Definitions.Path)
		if err != nil {
			return fmt.Errorf("failed to load sla definitions: %w", err)
		}
		defs.Replace(loaded)
		fmt.Printf("✓ SLA definitions loaded (%d definitions)\n", defs.Len())
	} else {
		slog.Warn("no sla definition source configured")
	}

	// Metrics
	collector := metrics.NewCollector(&metrics.Config{
		Enabled:   cfg.Telemetry.Metrics.Enabled,
		Namespace: cfg.Telemetry.Metrics.Namespace,
		Path:      cfg.Telemetry.Metrics.Path,
	}, nil)

	// Hot reload of decision tables
	if cfg.Sources.Tables.Watch && cfg.Sources.Tables.Path != "" {
		watcher, err := source.NewWatcher(cfg.Sources.Tables.Path, cfg.Sources.Tables.DebounceInterval, logger)
		if err != nil {
			return fmt.Errorf("failed to create table watcher: %w", err)
		}
		defer watcher.Stop()

		tableSource := source.NewFileSource(cfg.Sources.Tables.Path, logger)
		go func() {
			err := watcher.Watch(ctx, func() error {
				if err := tables.Load(ctx, tableSource); err != nil {
					collector.Decision.RecordReload("error")
					return err
				}
				collector.Decision.RecordReload("success")
				return nil
			})
			if err != nil {
				slog.Error("table watcher exited", "error", err)
			}
		}()
		fmt.Println("✓ Table hot reload enabled")
	}

	// Escalation scheduler
	tracker := sla.NewTracker(logger)
	sched := scheduler.New(&scheduler.Config{
		Schedule: cfg.Scheduler.Schedule,
		Workers:  cfg.Scheduler.Workers,
	}, defs, tracker, store, events)

	sched.OnTick(func(summary scheduler.TickSummary, duration time.Duration) {
		if collector.Enabled() {
			collector.SLA.RecordTick(summary.Processed, summary.Conflicts, duration)
		}
	})
	sched.OnTransition(func(inst *sla.Instance, result *sla.Reevaluation) {
		if !collector.Enabled() {
			return
		}
		for _, side := range result.Breached {
			collector.SLA.RecordBreach(inst.DefinitionID, string(side))
		}
		for i := 0; i < result.EscalationsFired; i++ {
			collector.SLA.RecordEscalation(inst.DefinitionID, inst.EscalationLevel-result.EscalationsFired+i+1)
		}
	})

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()
	if next := sched.NextRun(); next != nil {
		slog.Debug("sla scheduler started", "next_tick", next)
	}

	// The service is what embedding callers use; constructing it here
	// verifies the wiring even though run only drives the scheduler.
	if _, err := compliance.NewService(compliance.Options{
		Tables:      tables,
		Definitions: defs,
		Store:       store,
		Events:      events,
		Scheduler:   sched,
		Metrics:     collector,
		Logger:      logger,
	}); err != nil {
		return err
	}

	// HTTP server for metrics and health
	mux := http.NewServeMux()
	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "address", cfg.Server.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
			return err
		}

		fmt.Println("✓ Engine stopped")
		return nil
	}
}
