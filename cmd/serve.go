package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/originflow/sentinel/internal/api"
	"github.com/originflow/sentinel/internal/database"
	"github.com/originflow/sentinel/internal/incident"
	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/internal/posture"
	"github.com/originflow/sentinel/internal/ratelimit"
	"github.com/originflow/sentinel/internal/telemetry"
	"github.com/originflow/sentinel/internal/validator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the security operations API server",
	Long: `Start the HTTP API server exposing the security operations endpoint.

The server provides:
- POST /api/v1/security/operations (scan, threat analysis, validation, incident response)
- GET /health (unauthenticated, for load balancer probes)

Example:
  sentinel serve --port 8080
  SENTINEL_API_KEY=... sentinel serve --host 127.0.0.1
`,
	RunE: runServe,
}

var (
	serverPort int
	serverHost string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	serveLog := log.WithComponent("server")

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer tel.Close()

	store, err := database.NewStore(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	serveLog.Infow("Database connected", "driver", cfg.Database.Driver)

	if cfg.Database.Driver == "sqlite3" {
		serveLog.Warnw("Using SQLite database",
			"warning", "SQLite has concurrency limitations",
			"recommendation", "Use PostgreSQL for production deployments",
		)
	}

	limiter, err := ratelimit.New(cfg.Redis, ratelimit.Config{
		Limit:  cfg.Security.RateLimit.ActionLimit,
		Window: cfg.Security.RateLimit.ActionWindow,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	defer limiter.Close()

	matcher, err := posture.NewMatcherFromFile(cfg.Scanner.SignatureFile)
	if err != nil {
		return fmt.Errorf("failed to load attack signatures: %w", err)
	}

	audit := logger.NewAuditLogger(log, store)
	orch := posture.NewOrchestrator(store, audit, log, tel, cfg.Scanner)
	analyzer := posture.NewThreatAnalyzer(matcher, audit)
	val := validator.New(store, limiter, log, cfg.Scanner)
	responder := incident.NewResponder(store, audit, log, tel)

	server := api.NewServer(cfg, log, store, orch, analyzer, val, responder, tel)

	addr := fmt.Sprintf("%s:%d", serverHost, serverPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		serveLog.Infow("Security operations API listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		serveLog.Infow("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	serveLog.Infow("Server stopped")
	return nil
}
