// Command orderrecon runs the order reconciliation tool: `serve` starts the
// workflow UI, `backend` starts the comparison service it drives.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/orderrecon/orderrecon/internal/comparator"
	"github.com/orderrecon/orderrecon/internal/compareapi"
	"github.com/orderrecon/orderrecon/internal/config"
	"github.com/orderrecon/orderrecon/internal/logging"
	"github.com/orderrecon/orderrecon/internal/web"
)

func main() {
	var cfg *config.Config

	cmdRoot := &cobra.Command{
		Use:   "orderrecon",
		Short: "订单比对与利润核算系统",
		Long:  "Reconciles an official order export against a service/support export and reports per-order profit.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env if present (Overload overwrites existing env vars).
			if err := godotenv.Overload(); err != nil {
				slog.Info("no .env file found, using environment variables")
			}

			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded

			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	cmdServe := &cobra.Command{
		Use:   "serve",
		Short: "Start the workflow UI server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := comparator.New(cfg.Backend.URL, cfg.Backend.Timeout)
			server := web.NewServer(cfg, client)

			slog.Info("configuration loaded",
				"addr", cfg.Server.Addr(),
				"backend_url", cfg.Backend.URL,
				"rate_limit_enabled", cfg.Rate.Enabled,
			)

			return runServer(cfg, server.Start, server.Shutdown)
		},
	}

	cmdBackend := &cobra.Command{
		Use:   "backend",
		Short: "Start the comparison service",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := compareapi.NewServer(cfg)

			slog.Info("configuration loaded",
				"addr", cfg.Backend.Addr(),
				"upload_max_file_size", cfg.Upload.MaxFileSize,
			)

			return runServer(cfg, server.Start, server.Shutdown)
		},
	}

	cmdRoot.AddCommand(cmdServe)
	cmdRoot.AddCommand(cmdBackend)

	if err := cmdRoot.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// runServer starts a server and blocks until it stops, shutting down
// gracefully on SIGINT/SIGTERM.
func runServer(cfg *config.Config, start func() error, shutdown func(context.Context) error) error {
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := start(); err != nil && err != http.ErrServerClosed {
		return err
	}
	slog.Info("server stopped")
	return nil
}
