package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/copilot-ai/copilot/internal/config"
	"github.com/copilot-ai/copilot/internal/event"
	"github.com/copilot-ai/copilot/internal/logging"
	"github.com/copilot-ai/copilot/internal/prompt"
	"github.com/copilot-ai/copilot/internal/provider"
	"github.com/copilot-ai/copilot/internal/queue"
	"github.com/copilot-ai/copilot/internal/server"
	"github.com/copilot-ai/copilot/internal/session"
	"github.com/copilot-ai/copilot/internal/storage"
	"github.com/copilot-ai/copilot/internal/workflow"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the copilot HTTP server",
	Long: `Start the copilot engine as an HTTP server.

The server exposes session, prompt, model and event endpoints, and runs
the background job queue (title generation, session cleanup).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Paths().Ensure(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// State store
	store := session.NewStore(storage.New(cfg.DataDir))

	// Prompt registry, with live reload when a prompt dir is configured
	registry, err := prompt.NewRegistry(cfg.PromptDir)
	if err != nil {
		return err
	}
	watcher, err := prompt.NewWatcher(registry)
	if err != nil {
		return err
	}
	if watcher != nil {
		watcher.Start()
		defer watcher.Stop()
	}

	// Providers
	factory, err := provider.InitializeProviders(ctx, cfg)
	if err != nil {
		return err
	}

	// Events and background jobs
	bus := event.NewBus()
	defer bus.Close()

	jobs := queue.New()
	defer jobs.Close()

	svc := session.NewService(store, registry, factory, jobs, bus, cfg.Quota)
	jobs.Register(session.JobGenerateTitle, svc.HandleTitleJob)
	jobs.Register(session.JobCleanupSessions, svc.HandleCleanupJob)

	executor, err := workflow.NewDefaultExecutor(workflow.NodeDeps{Prompts: registry, Factory: factory}, bus)
	if err != nil {
		return err
	}
	runner := workflow.NewRunner(executor, bus)
	jobs.Register(workflow.JobRunTranscription, runner.HandleTranscriptionJob)

	// Start blocks until ctx is canceled, so it gets its own goroutine; a
	// subscribe failure tears the whole process down through cancel.
	go func() {
		if err := jobs.Start(ctx); err != nil {
			logging.Error().Err(err).Msg("job queue error")
			cancel()
		}
	}()

	scheduler := queue.NewScheduler(jobs)
	scheduler.Every(24*time.Hour, session.JobCleanupSessions, nil)
	scheduler.Run(ctx)

	// HTTP surface
	serverConfig := server.DefaultConfig()
	serverConfig.Port = cfg.Server.Port
	serverConfig.EnableCORS = cfg.Server.EnableCORS
	if servePort > 0 {
		serverConfig.Port = servePort
	}

	srv := server.New(serverConfig, svc, registry, factory, bus)

	go func() {
		logging.Info().Int("port", serverConfig.Port).Msg("copilot server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}
