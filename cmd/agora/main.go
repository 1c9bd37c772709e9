package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/agora-gov/agora/internal/adapter/fallback"
	aghttp "github.com/agora-gov/agora/internal/adapter/http"
	"github.com/agora-gov/agora/internal/adapter/inproc"
	agnats "github.com/agora-gov/agora/internal/adapter/nats"
	agotel "github.com/agora-gov/agora/internal/adapter/otel"
	"github.com/agora-gov/agora/internal/adapter/postgres"
	"github.com/agora-gov/agora/internal/adapter/ristretto"
	"github.com/agora-gov/agora/internal/adapter/ws"
	"github.com/agora-gov/agora/internal/config"
	"github.com/agora-gov/agora/internal/logger"
	"github.com/agora-gov/agora/internal/port/auditlog"
	"github.com/agora-gov/agora/internal/port/eventchannel"
	"github.com/agora-gov/agora/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logClose := logger.New(cfg.Logging)
	defer logClose.Close()
	slog.SetDefault(log)
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"max_sessions", cfg.Deliberation.MaxSessions,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// Event channel: broker-backed when reachable, in-process fallback
	// always. Broker failure is a degradation, never fatal.
	local := inproc.New()
	var broker eventchannel.Channel
	if cfg.NATS.URL != "" {
		b, err := agnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.ChannelPrefix)
		if err != nil {
			slog.Warn("broker unavailable, running with in-process delivery only", "error", err)
		} else {
			broker = b
		}
	}
	channel := fallback.New(broker, local)
	defer func() { _ = channel.Close() }()

	// Audit trail (optional)
	var audit auditlog.Store
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		audit = postgres.NewAuditStore(pool)
		slog.Info("audit trail enabled")
	}

	// Resolved-result cache
	results, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("result cache: %w", err)
	}
	defer results.Close()

	metrics, err := agotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---

	hub := ws.NewHub()
	coordinator := service.NewCoordinator(cfg.Deliberation, cfg.NATS.ChannelPrefix, channel, service.Options{
		Results:   results,
		ResultTTL: cfg.Cache.ResultTTL,
		Audit:     audit,
		Hub:       hub,
		Metrics:   metrics,
	})

	stopReaper := coordinator.StartReaper(ctx)
	defer stopReaper()

	// --- HTTP ---

	handlers := &aghttp.Handlers{
		Coordinator: coordinator,
		Audit:       audit,
	}

	r := chi.NewRouter()
	r.Use(aghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(aghttp.Logger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler(coordinator, audit))
	r.Get("/ws", hub.HandleWS)
	aghttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Writes stay open long enough for wait-for-resolution calls.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler reports service and transport health. Broker trouble shows
// up here, never on the vote submission path.
func healthHandler(c *service.Coordinator, audit auditlog.Store) http.HandlerFunc {
	type healthStatus struct {
		Status       string `json:"status"`
		Broker       string `json:"broker"`
		Audit        string `json:"audit"`
		LiveSessions int    `json:"live_sessions"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status: "ok",
			Broker: "degraded:in-process",
			Audit:  "disabled",
		}
		if c.IsConnected() {
			status.Broker = "connected"
		}
		if audit != nil {
			status.Audit = "enabled"
		}
		status.LiveSessions, _ = c.SessionCount()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
