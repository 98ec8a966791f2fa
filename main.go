package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"poiAPI/internal/backend"
	"poiAPI/internal/config"
	"poiAPI/internal/logger"
	"poiAPI/internal/metrics"
	"poiAPI/internal/store"
	"poiAPI/internal/workers"
	"poiAPI/middleware"
	"poiAPI/services"
)

const sweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("poi-api", "info").WithError(err).Fatal("Invalid configuration")
	}

	log := logger.New("poi-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verifier middleware.TokenVerifier
	switch cfg.AuthMode {
	case "local":
		verifier = middleware.LocalVerifier{Secret: []byte(cfg.LocalJWTSecret)}
		log.Entry().Warn("Using local JWT verification")
	default:
		clerk.SetKey(cfg.ClerkSecretKey)
		verifier = middleware.ClerkVerifier{}
		log.Entry().Info("Clerk initialized successfully")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	middleware.InitPrometheus(reg)
	m := metrics.New(reg)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Entry().WithError(err).Fatal("Failed to open leaderboard store")
	}
	defer func() {
		log.Entry().Info("Closing leaderboard store...")
		st.Close()
	}()

	agent := backend.NewAgent(backend.AgentConfig{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		RPS:     cfg.BackendRPS,
		Burst:   cfg.BackendBurst,
		Metrics: m,
		Logger:  log,
	})
	clients := services.NewClients(agent, cfg.PoiCanisterID, cfg.UserDataCanisterID, log)

	registry := services.NewPointsRegistry(clients.PointsFetcher, services.PointsCacheConfig{
		StaleAfter: cfg.PointsStaleAfter,
		Logger:     log,
		Metrics:    m,
	})
	leaderboardService := services.NewLeaderboardService(clients.Challenges(nil), st, services.LeaderboardConfig{
		RefreshExternal: cfg.LeaderboardRefreshExternal,
		Logger:          log,
		Metrics:         m,
	})
	profileService := services.NewProfileService(clients.ProfileFetcher)

	limiter := middleware.NewRateLimiter(5, 30, cfg.TrustedProxies...)
	go limiter.CleanupVisitors(ctx)
	pointsSweeperDone := workers.StartCleanupWorker(ctx, "points", registry, sweepInterval, cfg.PointsCacheIdle, log)
	profileSweeperDone := workers.StartCleanupWorker(ctx, "profile", profileService, sweepInterval, cfg.PointsCacheIdle, log)

	a := &app{
		log:         log,
		auth:        middleware.NewAuthenticator(verifier, log),
		limiter:     limiter,
		registry:    registry,
		profiles:    profileService,
		leaderboard: leaderboardService,
		clients:     clients,
		store:       st,
		gatherer:    reg,
		metricsUser: cfg.MetricsUser,
		metricsPass: cfg.MetricsPass,
		corsOrigins: cfg.CORSOrigins,
	}

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Entry().WithField("port", cfg.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Entry().WithError(err).Fatal("Error starting server")
		}
	}()

	<-ctx.Done()
	log.Entry().Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Entry().WithError(err).Error("Server shutdown error")
	}
	<-pointsSweeperDone
	<-profileSweeperDone

	log.Entry().Info("Server shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (store.LeaderboardStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "redis":
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return store.NewMemoryStore(), nil
	}
}
