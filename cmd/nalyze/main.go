// Command nalyze runs the local-first analytics chat service: an HTTP API
// that answers natural-language questions about registered tabular files.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/aiassist"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/config"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/convo"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/engine"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/registry"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/reports"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/server"
	"github.com/Kal-El-1412/Nalyze-sub001/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("NALYZE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("nalyze starting", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	reg, err := registry.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	logger.Info("dataset registry loaded", "datasets", len(reg.List()))

	reps, err := reports.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("reports: %w", err)
	}

	eng := engine.New(logger, engine.Options{
		Timeout:      cfg.QueryTimeout,
		MaxFileBytes: cfg.MaxInlineFileBytes,
	})
	defer eng.Close()

	// AI intent extraction is optional. The client exists only when the
	// master switch is on; whether a key is configured is the client's
	// business.
	var ai *aiassist.Client
	if cfg.AIEnabled() {
		ai = aiassist.New(aiassist.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.AIBaseURL,
			Model:   cfg.AIModel,
			Timeout: cfg.AITimeout,
		}, logger)
		logger.Info("ai intent extraction enabled", "model", cfg.AIModel, "key_configured", ai.Configured())
	} else {
		logger.Info("ai intent extraction disabled")
	}

	var extractor convo.Extractor
	if ai != nil {
		extractor = ai
	}
	machine := convo.NewMachine(convo.NewStore(), extractor, logger)

	srv := server.New(server.ServerConfig{
		Registry:            reg,
		Reports:             reps,
		Engine:              eng,
		Machine:             machine,
		AI:                  ai,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
