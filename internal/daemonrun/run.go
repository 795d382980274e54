// Package daemonrun wires the daemon process: logger, queue store,
// transcription back-ends, pipeline stages, workflow manager, and the HTTP
// API server.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"scribe/internal/asr"
	"scribe/internal/assembling"
	"scribe/internal/batch"
	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/exporting"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/progress"
	"scribe/internal/queue"
	"scribe/internal/segmenting"
	"scribe/internal/server"
	"scribe/internal/transcribing"
	"scribe/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the scribe daemon and blocks until the context is cancelled or
// a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "scribe.log")
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "scribed.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open task store", logging.Error(err))
		return err
	}
	defer store.Close()

	registry, err := asr.NewRegistry(cfg)
	if err != nil {
		logger.Error("configure transcription back-ends", logging.Error(err))
		return err
	}

	hub := progress.NewHub()
	defer hub.Close()

	manager := workflow.NewManager(cfg, store, hub, buildStages(cfg, store, registry, hub, logger), logger)
	manager.SetNotifier(notifications.NewService(cfg))
	coordinator := batch.New(cfg, store, logger)
	apiServer := server.New(cfg, store, hub, registry, coordinator, manager, logger)

	d, err := daemon.New(cfg, store, logger, manager, apiServer)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("scribe daemon shutting down")
	return nil
}

func buildStages(cfg *config.Config, store *queue.Store, registry *asr.Registry, hub *progress.Hub, logger *slog.Logger) workflow.StageSet {
	return workflow.StageSet{
		Segmenter:   segmenting.New(cfg, store, hub, logger),
		Exporter:    exporting.New(cfg, store, hub, logger),
		Transcriber: transcribing.New(cfg, store, registry, hub, logger),
		Assembler:   assembling.New(cfg, store, hub, logger),
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
