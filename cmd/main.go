package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/vouch/internal/adapters/http/api"
	"github.com/okian/vouch/internal/adapters/http/swagger"
	service "github.com/okian/vouch/internal/app"
	"github.com/okian/vouch/internal/config"
	"github.com/okian/vouch/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	statsInterval     = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	// Sync flushes buffered log entries; its error is unactionable here.
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create the service with configuration options
	svc := service.New(
		service.WithLogger(loggerInstance),
		service.WithAuthority(cfg.Authority),
		service.WithMinStake(cfg.MinStake),
		service.WithMinEndorserCredibility(cfg.MinCredibilityToEndorse),
		service.WithMaxGain(cfg.MaxGain),
		service.WithSlashPenalty(cfg.SlashPenalty),
		service.WithFaucet(cfg.FaucetEnabled, cfg.FaucetAmount, cfg.FaucetMaxAmount),
		service.WithFeedCapacity(cfg.FeedCapacity),
		service.WithDispatcherCount(cfg.DispatcherCount),
		service.WithReplayGuardSize(cfg.ReplayGuardSize),
		service.WithSnapshotInterval(cfg.SnapshotInterval),
		service.WithDataDir(cfg.DataDir),
	)

	// The service drains and archives pending notices during Stop, so it
	// runs on a background context instead of the signal context.
	if err := svc.Start(context.Background()); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start the state gauge refresher
	go startStatsRefresher(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	auth := api.NewAuthenticator(cfg.AuthSecret)
	apiServer := api.NewServer(svc, svc, auth, cfg.MaxStandingsLimit)
	apiServer.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startStatsRefresher periodically reads service stats, which refreshes
// the ledger state gauges as a side effect.
func startStatsRefresher(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}
