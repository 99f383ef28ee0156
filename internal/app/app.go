package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"watermark-studio/internal/compositor"
	"watermark-studio/internal/config"
	"watermark-studio/internal/export"
	batch_h "watermark-studio/internal/http-server/handler/batch"
	"watermark-studio/internal/http-server/router"
	"watermark-studio/internal/logogen"
	"watermark-studio/internal/orchestrator"
	settings_file "watermark-studio/internal/settings/file"
	"watermark-studio/internal/storage"
	fs_store "watermark-studio/internal/storage/filesystem"
	minio_store "watermark-studio/internal/storage/minio"

	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg    *config.Config
	server *http.Server
	logger *zlog.Zerolog
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	store, err := newObjectStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	settingsStore := settings_file.NewStore(cfg.Settings.Path)

	comp := compositor.New(logger)

	exp := export.NewExporter(store, cfg.Batch.ExportDelay, cfg.DefaultRetryStrategy(), logger)

	orch := orchestrator.New(comp, settingsStore, exp, cfg.Batch.Concurrency, cfg.Batch.PreviewQuiet, logger)

	logoGen, err := logogen.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create logo generator: %w", err)
	}

	batchHandler := batch_h.NewBatchHandler(orch, logoGen, store, cfg.Batch.MaxUploadBytes, logger)

	h := &router.Handler{
		BatchHandler: batchHandler,
	}

	mux := router.SetupRouter(h)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:    cfg,
		server: server,
		logger: logger,
	}, nil
}

func newObjectStore(cfg *config.Config, logger *zlog.Zerolog) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return minio_store.NewStore(cfg, logger)
	case "filesystem", "":
		return fs_store.NewStore(cfg.Storage.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
