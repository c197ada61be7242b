// Package cmd builds the orchestrator command-line surface.
package cmd

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

	"github.com/opsmesh/opsmesh/internal/orchestrator/api"
	"github.com/opsmesh/opsmesh/internal/orchestrator/config"
	"github.com/opsmesh/opsmesh/internal/orchestrator/modelclient"
	"github.com/opsmesh/opsmesh/internal/orchestrator/store"
	"github.com/opsmesh/opsmesh/internal/orchestrator/toolclient"
	"github.com/opsmesh/opsmesh/internal/orchestrator/turnrunner"
)

var version = "dev"

// NewRootCmd builds the orchestrator root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "orchestrator",
		Short:         "orchestrator runs the turn orchestration service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the orchestrator version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg := config.FromEnv()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger = logger.With("component", "orchestrator")

	st := store.New()
	model := modelclient.New(cfg.OllamaBaseURL, cfg.ModelTimeout)
	tools := toolclient.New(cfg.OpsBaseURL, cfg.ToolTimeout, cfg.ToolMaxRetries, cfg.ToolRetryDelay)
	runner := turnrunner.New(st, model, tools, cfg, logger)

	srv := api.NewServer(runner, st, model, tools, cfg, logger)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
