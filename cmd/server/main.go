package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"binance-mcp/internal/binance"
	"binance-mcp/internal/cache"
	"binance-mcp/internal/catalog"
	"binance-mcp/internal/config"
	"binance-mcp/internal/handlers"
	"binance-mcp/internal/instrumentation"
	"binance-mcp/internal/mcp"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		transport string
		port      int
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:           "binance-mcp",
		Short:         "MCP server for Binance public market data",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile := os.Getenv("ENV_FILE")
			if envFile == "" {
				envFile = ".env"
			}

			cfg, err := config.LoadFromEnv(envFile)
			if err != nil {
				slog.Error("failed to load configuration", "error", err)
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("transport") {
				cfg.Transport = transport
			}
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			if err := cfg.Validate(); err != nil {
				slog.Error("invalid configuration", "error", err)
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", config.TransportStdio, "transport to serve: stdio or http")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (http transport)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	return cmd
}

func newLogger(cfg *config.Config) *slog.Logger {
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	// stdout belongs to the protocol in stdio mode.
	var out io.Writer = os.Stdout
	if cfg.Transport == config.TransportStdio {
		out = os.Stderr
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: logLevel}))
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("mcp_service_starting",
		"version", version,
		"transport", cfg.Transport,
		"binance_base_url", cfg.BinanceBaseURL,
		"request_timeout_ms", cfg.RequestTimeoutMS,
		"character_limit", cfg.CharacterLimit,
		"cache_enabled", cfg.CacheEnabled(),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := instrumentation.NewMetrics(registry)

	client := binance.NewClient(cfg.BinanceBaseURL, cfg.RequestTimeout(), logger, binance.WithObserver(metrics))

	// A nil Store disables the shared catalog cache.
	var store catalog.Store
	if cfg.CacheEnabled() {
		symbolStore, err := cache.New(cfg.RedisURL, cfg.RedisPassword, cfg.CatalogTTL(), logger)
		if err != nil {
			metrics.RecordError("cache", "connect")
			logger.Warn("catalog_cache_unavailable", "error", err)
		} else {
			defer symbolStore.Close()
			store = symbolStore
			logger.Info("catalog_cache_initialized")
		}
	}

	symbols := catalog.New(client, store, cfg.CatalogTTL(), logger)
	executor := mcp.NewToolExecutor(client, symbols, cfg.CharacterLimit, logger)

	invoker, err := mcp.NewToolInvoker(executor, metrics, logger)
	if err != nil {
		logger.Error("failed to create tool invoker", "error", err)
		return err
	}
	server := mcp.NewServer(invoker, version, logger)

	if port := cfg.MetricsPort(); port > 0 && !(cfg.Transport == config.TransportHTTP && port == cfg.Port) {
		go serveMetrics(ctx, port, registry, logger)
	}

	if cfg.Transport == config.TransportStdio {
		err = serveStdio(ctx, server)
	} else {
		err = serveHTTP(ctx, cfg, server, invoker, registry, logger)
	}
	if err != nil {
		logger.Error("server_error", "error", err)
		return err
	}

	logger.Info("mcp_service_stopped")
	return nil
}

// serveStdio returns when stdin closes or ctx is done. A read blocked on
// stdin is abandoned on shutdown.
func serveStdio(ctx context.Context, server *mcp.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ServeStdio(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}

func serveHTTP(ctx context.Context, cfg *config.Config, server *mcp.Server, invoker *mcp.ToolInvoker, registry *prometheus.Registry, logger *slog.Logger) error {
	// Two upstream calls fit in one request on the unknown-symbol path.
	mcpHandler := handlers.NewMCPHandler(server, 2*cfg.RequestTimeout(), logger)
	toolsHandler := handlers.NewToolsHandler(invoker, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(handlers.CorrelationIDMiddleware)
	r.Use(handlers.LoggingMiddleware(logger))

	r.Post("/mcp/sse", mcpHandler.ServeHTTP)
	r.Get("/tools", toolsHandler.ServeHTTP)
	r.Get("/health", handlers.HealthCheckHandler(logger))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.RequestTimeout() + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp_server_listening", "port", cfg.Port, "status", "healthy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown_signal_received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	return nil
}

// serveMetrics runs the standalone Prometheus listener until ctx is done.
func serveMetrics(ctx context.Context, port int, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info("metrics_server_starting", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics_server_failed", "error", err)
	}
}
