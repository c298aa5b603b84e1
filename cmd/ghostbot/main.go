package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/ghostbot/config"
	"github.com/alejandrodnm/ghostbot/internal/adapters/metrics"
	"github.com/alejandrodnm/ghostbot/internal/adapters/notify"
	"github.com/alejandrodnm/ghostbot/internal/adapters/paper"
	"github.com/alejandrodnm/ghostbot/internal/adapters/redis"
	"github.com/alejandrodnm/ghostbot/internal/adapters/storage"
	"github.com/alejandrodnm/ghostbot/internal/application/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const (
	stopFile       = "STOP"
	statusInterval = time.Minute
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	report := flag.String("report", "", "print the report of a session and exit (\"latest\" for the last one)")
	warmup := flag.Bool("warmup", false, "seed digit histories from Redis before starting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole()

	if *report != "" {
		if err := printReport(ctx, store, notifier, *report); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	engCfg, err := cfg.EngineConfig()
	if err != nil {
		slog.Error("invalid config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	gateway := paper.NewGateway(paper.GatewayConfig{
		PayoutPercent:        cfg.Money.PayoutPercent,
		MinStake:             cfg.Paper.MinStake,
		DuplicateSettlements: cfg.Paper.DuplicateSettlements,
	})
	feed := paper.NewFeed(paper.FeedConfig{
		Symbols:    cfg.Bot.Symbols,
		Interval:   time.Duration(cfg.Paper.TickIntervalMS) * time.Millisecond,
		Decimals:   cfg.Paper.Decimals,
		StartQuote: cfg.Paper.StartQuote,
		Volatility: cfg.Paper.Volatility,
		Seed:       cfg.Paper.Seed,
	})
	// el bróker liquida con el tick antes de que el engine lo vea
	feed.Observe(gateway.OnTick)

	eng := engine.New(engCfg, gateway, store, notifier, recorder)

	slog.Info("ghostbot starting",
		"config", *configPath,
		"bot", engCfg.Bot,
		"symbols", cfg.Bot.Symbols,
		"warmup", *warmup,
		"metrics", cfg.Metrics.Addr,
	)

	if *warmup {
		runWarmup(ctx, eng, cfg)
	}

	if err := eng.Start(ctx); err != nil {
		slog.Error("failed to start engine", "err", err)
		os.Exit(1)
	}

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return feed.Run(gctx, eng) })
	g.Go(func() error { return gateway.Run(gctx, eng) })
	g.Go(func() error {
		watch(gctx, eng)
		stopRun()
		return nil
	})
	if cfg.Metrics.Addr != "" {
		serveMetrics(gctx, g, cfg.Metrics.Addr, reg)
	}

	if err := g.Wait(); err != nil {
		slog.Error("ghostbot exited with error", "err", err)
	}

	// Ctrl+C o STOP: la sesión se cierra como parada del operador
	if eng.Snapshot().State == engine.StateRunning {
		if err := eng.Stop(context.Background()); err != nil {
			slog.Warn("engine stop failed", "err", err)
		}
	}

	snap := eng.Snapshot()
	if err := printReport(context.Background(), store, notifier, snap.RunID); err != nil {
		slog.Warn("report failed", "err", err)
	}
	slog.Info("ghostbot stopped cleanly", "run_id", snap.RunID)
}

func runWarmup(ctx context.Context, eng *engine.Engine, cfg *config.Config) {
	history, err := redis.NewHistoryStore(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		MaxAge:   time.Duration(cfg.Redis.MaxAgeSeconds) * time.Second,
	})
	if err != nil {
		slog.Warn("warmup skipped: redis unavailable", "err", err)
		return
	}
	defer history.Close()

	n, err := eng.Warmup(ctx, history, cfg.Bot.Symbols)
	if err != nil {
		slog.Warn("warmup failed", "err", err)
		return
	}
	slog.Info("warmup complete", "digits", n)
}

// watch vuelve cuando el engine se detiene solo, aparece el archivo STOP o
// se cancela ctx. Mientras tanto loguea el estado cada minuto.
func watch(ctx context.Context, eng *engine.Engine) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown requested (signal)")
			return
		case reason := <-eng.Stops():
			slog.Info("engine stopped, shutting down", "reason", reason.Kind)
			return
		case <-ticker.C:
			if _, err := os.Stat(stopFile); err == nil {
				slog.Info("STOP file detected, shutting down")
				os.Remove(stopFile)
				return
			}
			snap := eng.Snapshot()
			slog.Info("status",
				"total_pl", snap.Money.TotalPL,
				"wins", snap.Money.WinCount,
				"losses", snap.Money.LossCount,
				"recovery_step", snap.Money.RecoveryStepCount,
				"active", len(snap.Active),
			)
		}
	}
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
