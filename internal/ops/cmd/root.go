// Package cmd builds the opsd command-line surface.
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

	"github.com/opsmesh/opsmesh/internal/ops/config"
	"github.com/opsmesh/opsmesh/internal/ops/engine"
	"github.com/opsmesh/opsmesh/internal/ops/service"
	"github.com/opsmesh/opsmesh/internal/ops/transport"
)

// version is set at build time via -ldflags.
var version = "dev"

// NewRootCmd builds the opsd root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opsd",
		Short:         "opsd runs the operations service",
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
		Short: "Run the operations service HTTP/WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the opsd version",
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
	logger = logger.With("component", "opsd")

	svc := service.New(
		engine.NewFileEngine(cfg.ReadChunkRunes),
		engine.NewSearchEngine(cfg.SearchMaxDepth),
		engine.NewCommandEngine(cfg.DefaultCommandTimeout),
	)

	srv := transport.NewServer(svc, cfg, logger)
	srv.Version = version

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
