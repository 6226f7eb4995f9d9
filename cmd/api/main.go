package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/calendar-booking-agent/cmd/mainconfig"
	"github.com/wolfman30/calendar-booking-agent/internal/agent"
	"github.com/wolfman30/calendar-booking-agent/internal/api/router"
	"github.com/wolfman30/calendar-booking-agent/internal/app/bootstrap"
	appconfig "github.com/wolfman30/calendar-booking-agent/internal/config"
	"github.com/wolfman30/calendar-booking-agent/internal/observability/metrics"
	"github.com/wolfman30/calendar-booking-agent/internal/webchat"
	"github.com/wolfman30/calendar-booking-agent/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("loaded .env")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting calendar booking agent",
		"env", cfg.Env,
		"port", cfg.Port,
		"nlu_provider", cfg.NLUProvider,
		"calendar_provider", cfg.CalendarProvider,
		"session_store", cfg.SessionStore,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	handler, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.NLUTimeout*3 + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
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

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// buildHandler wires every component from config and returns the router
// plus a cleanup that releases connections.
func buildHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	registry, metricsHandler := setupMetrics()
	agentMetrics := metrics.NewAgentMetrics(registry)
	loadAWS := awsLoader(cfg)

	nluClient, err := bootstrap.BuildNLUClient(ctx, cfg, loadAWS, logger)
	if err != nil {
		logger.Warn("nlu unavailable; using keyword and regex fallbacks", "error", err)
		nluClient = nil
	}

	cal, err := bootstrap.BuildCalendarService(ctx, cfg, agentMetrics, logger)
	if err != nil {
		return nil, cleanup, err
	}

	sessions, closeSessions := bootstrap.BuildSessionStore(ctx, cfg, logger)
	cleanups = append(cleanups, closeSessions)

	ledger, closeLedger := bootstrap.BuildLedger(ctx, cfg, logger)
	cleanups = append(cleanups, closeLedger)

	auditSvc, closeAudit, err := bootstrap.BuildAuditService(cfg, logger)
	if err != nil {
		logger.Warn("audit trail disabled", "error", err)
	}
	cleanups = append(cleanups, closeAudit)

	notifier, _ := bootstrap.BuildBookingNotifier(ctx, cfg, loadAWS, logger)

	var auditLogger agent.AuditLogger
	var auditQuerier agent.AuditQuerier
	if auditSvc != nil {
		auditLogger = auditSvc
		auditQuerier = auditSvc
	}

	orchestrator := agent.NewOrchestrator(agent.Config{
		Interpreter:            agent.NewInterpreter(nluClient, logger, agentMetrics, auditLogger),
		Calendar:               cal,
		Sessions:               sessions,
		Ledger:                 ledger,
		Audit:                  auditLogger,
		Notifier:               notifier,
		Metrics:                agentMetrics,
		Logger:                 logger,
		MaxOfferedSlots:        cfg.MaxOfferedSlots,
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
	})

	webchatHandler := webchat.NewHandler(orchestrator, logger, webchat.WithFrameLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	metrics.RegisterWebchatConnections(registry, webchatHandler.Connections)

	handler := router.New(&router.Config{
		Logger:             logger,
		AgentHandler:       agent.NewHandler(orchestrator, logger),
		AdminHandler:       agent.NewAdminHandler(orchestrator, ledger, auditQuerier, registry, logger),
		WebchatHandler:     webchatHandler,
		MetricsHandler:     metricsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		Context:            ctx,
	})
	return handler, cleanup, nil
}

// setupMetrics builds a private registry with the runtime collectors and
// the handler that exposes it.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// awsLoader loads the AWS config at most once, on first use.
func awsLoader(cfg *appconfig.Config) bootstrap.AWSConfigLoader {
	var (
		loaded bool
		awsCfg aws.Config
		err    error
	)
	return func(ctx context.Context) (aws.Config, error) {
		if !loaded {
			awsCfg, err = mainconfig.LoadAWSConfig(ctx, cfg)
			loaded = true
		}
		return awsCfg, err
	}
}
