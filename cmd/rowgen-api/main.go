package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmrzaf/rowgen/internal/api"
	"github.com/mmrzaf/rowgen/internal/app"
	"github.com/mmrzaf/rowgen/internal/config"
	"github.com/mmrzaf/rowgen/internal/infra/repos/runs"
	"github.com/mmrzaf/rowgen/internal/infra/repos/scenarios"
	"github.com/mmrzaf/rowgen/internal/infra/repos/targets"
	"github.com/mmrzaf/rowgen/internal/logging"
	"github.com/mmrzaf/rowgen/internal/registry"
)

func main() {
	configPath := flag.String("config", "", "Config file")
	bindAddr := flag.String("bind", "", "Bind address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.NewLogger("error").Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "config"})
		os.Exit(1)
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}

	root := logging.NewLogger(cfg.LogLevel)
	logger := root.WithComponent("api_main")

	runRepo := runs.NewSQLiteRepository(cfg.RunsDBPath)
	if err := runRepo.Init(); err != nil {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "init_run_repo"})
		os.Exit(1)
	}
	defer runRepo.Close()

	scenarioRepo := scenarios.NewFileRepository(cfg.ScenariosDir)
	targetRepo := targets.NewSQLiteRepository(runRepo.DB())
	runService := app.NewRunService(scenarioRepo, targetRepo, runRepo, registry.DefaultProviderRegistry(), root,
		app.WithTargetFiles(targets.NewFileRepository(cfg.TargetsDir)),
		app.WithDefaultMode(cfg.DefaultMode),
		app.WithBatchSize(cfg.BatchSize),
		app.WithExcludedStore(cfg.ExcludedStore, cfg.SpillDir),
	)

	handler := api.NewHandler(scenarioRepo, targetRepo, runService)
	srv := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.LoggingMiddleware(root.WithComponent("http"), handler.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Infow("shutdown.started", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infow("startup.listening", map[string]any{"bind": cfg.BindAddr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "listen"})
		os.Exit(1)
	}
	// Runs still in flight are cancelled and marked failed.
	runService.Close()
	logger.Infow("shutdown.completed", nil)
}
