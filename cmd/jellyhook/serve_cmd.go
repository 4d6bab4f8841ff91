package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/api"
	"github.com/Nomadcxx/jellyhook/internal/logging"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		syncMode bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook receiver",
		Long: `Start an HTTP server that accepts Jellyfin webhook plugin payloads and
handles each one like a hook invocation.

Endpoints:
  POST /webhooks/jellyfin   Jellyfin webhook plugin target
  GET  /health              Health check with invocation counters
  GET  /echo, POST /echo    Logs the request and answers {"status":"received"}

Examples:
  jellyhook serve                  # Listen on server.addr (default :8080)
  jellyhook serve --addr :9000     # Listen on port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, syncMode)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (overrides server.addr)")
	cmd.Flags().BoolVar(&syncMode, "sync", false, "answer webhooks only after the invocation finished")

	return cmd
}

func runServe(addr string, syncMode bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	rt := newApp(cfg, logger)
	defer rt.Close()

	server := api.NewServer(api.Config{
		Addr:               cfg.Server.Addr,
		WebhookSecret:      cfg.Server.WebhookSecret,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		Sync:               syncMode,
		InvocationTimeout:  cfg.InvocationTimeout(),
		Dispatcher:         rt.dispatcher,
		Logger:             logger,
	})

	if cfg.Server.WebhookSecret == "" {
		logger.Warn("server", "No webhook secret configured, accepting unauthenticated webhooks")
	}
	logger.Info("server", "Channels registered", logging.F("channels", rt.notifier.Names()))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("server", "Received shutdown signal", logging.F("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.InvocationTimeout()+10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}
