package cmd

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	tlsnhttp "github.com/summitto/tlsn-prover-gateway/internal/adapter/inbound/http"
	sqliteledger "github.com/summitto/tlsn-prover-gateway/internal/adapter/outbound/attemptlog"
	"github.com/summitto/tlsn-prover-gateway/internal/adapter/outbound/celpolicy"
	"github.com/summitto/tlsn-prover-gateway/internal/adapter/outbound/publisher"
	"github.com/summitto/tlsn-prover-gateway/internal/config"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/attemptlog"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/shaper"
	"github.com/summitto/tlsn-prover-gateway/internal/service"
	"github.com/summitto/tlsn-prover-gateway/internal/telemetry"
)

var (
	devMode    bool
	portFlag   uint16
	urlFlag    string
	socketFlag string
	modeFlag   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the notarization gateway HTTP server",
	Long: `Start the tlsn-prover HTTP server: it listens for proxied requests on
/proxy, runs each one through the full notarization pipeline, and serves
/health and /metrics alongside it.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "enable development mode (working defaults)")
	serveCmd.Flags().Uint16Var(&portFlag, "port", 0, "HTTP listener port (default 8080)")
	serveCmd.Flags().StringVar(&urlFlag, "url", "", "notary server address, host:port")
	serveCmd.Flags().StringVar(&socketFlag, "socket", "", "publisher IPC socket directory")
	serveCmd.Flags().StringVar(&modeFlag, "mode", "", "dev or prod")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if modeFlag != "" {
		cfg.Mode = modeFlag
	}
	if devMode {
		cfg.DevMode = true
		cfg.Mode = "dev"
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if urlFlag != "" {
		cfg.Notary.Addr = urlFlag
	}
	if socketFlag != "" {
		cfg.Publisher.SocketDir = socketFlag
	}

	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	registry := prometheus.NewRegistry()
	metrics := tlsnhttp.NewMetrics(registry)

	var ledger attemptlog.Ledger
	if cfg.AttemptLog.Enabled {
		sqliteLedger, err := sqliteledger.Open(cfg.AttemptLog.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open attempt log: %w", err)
		}
		defer sqliteLedger.Close()
		ledger = sqliteLedger
		logger.Info("attempt log enabled", "db_path", cfg.AttemptLog.DBPath)
	}

	var policy shaper.HeaderPolicy
	if len(cfg.HeaderPolicy) > 0 {
		compiled, err := celpolicy.New(cfg.HeaderPolicy)
		if err != nil {
			return fmt.Errorf("failed to compile header policy: %w", err)
		}
		policy = compiled
		logger.Info("header policy compiled", "rules", len(cfg.HeaderPolicy))
	}

	handlers := publisher.NewHandlerSet()
	bus, err := publisher.NewBus(ctx, publisher.Config{
		SocketDir: cfg.Publisher.SocketDir,
		PubName:   cfg.Publisher.PubName,
		ReqName:   cfg.Publisher.ReqName,
	}, handlers, logger)
	if err != nil {
		return fmt.Errorf("failed to start publisher bus: %w", err)
	}
	defer bus.Close()
	bus.OnPublishError(func(err error) {
		logger.Warn("proof publish failed", "error", err)
	})

	go func() {
		if err := bus.Serve(ctx); err != nil {
			logger.Error("publisher bus stopped", "error", err)
		}
	}()
	logger.Info("publisher bus listening", "socket_dir", cfg.Publisher.SocketDir)

	svcMetrics := &service.Metrics{
		ObserveRequest: func(method, status string, duration time.Duration) {
			metrics.RequestsTotal.WithLabelValues(method, status).Inc()
			metrics.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
		},
		SetActiveDelta: func(delta int) {
			metrics.ActiveNotarizations.Add(float64(delta))
		},
		ObserveHeaderPolicy: func(result string) {
			metrics.HeaderPolicyEvaluations.WithLabelValues(result).Inc()
		},
		IncProofsPublished: metrics.ProofsPublishedTotal.Inc,
		IncAttemptLogDrop:  metrics.AttemptLogDropsTotal.Inc,
	}

	svc := service.New(cfg.Notary, cfg.Timeouts, cfg.Publisher, policy, bus, ledger, svcMetrics)

	proxyHandler := tlsnhttp.NewProxyHandler(svc)

	healthChecker := tlsnhttp.NewHealthChecker(Version,
		tlsnhttp.NamedCheck{Name: "notary", Probe: func() (string, error) {
			return "configured", nil
		}},
	)

	mux := http.NewServeMux()
	mux.Handle("/proxy", proxyHandler)
	mux.Handle("/health", healthChecker.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = tlsnhttp.RealIPMiddleware(handler)
	handler = tlsnhttp.RequestIDMiddleware(logger)(handler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("tlsn-prover listening", "addr", addr, "mode", cfg.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown did not complete cleanly", "error", err)
	}

	logger.Info("tlsn-prover stopped")
	return nil
}

// parseLogLevel converts a string log level to slog.Level, defaulting to
// info for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
