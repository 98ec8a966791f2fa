package main

import (
	"net/http"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"poiAPI/handlers"
	"poiAPI/internal/logger"
	"poiAPI/internal/store"
	"poiAPI/middleware"
	"poiAPI/services"
)

// app is everything the router needs.
type app struct {
	log         *logger.Logger
	auth        *middleware.Authenticator
	limiter     *middleware.RateLimiter
	registry    *services.PointsRegistry
	profiles    *services.ProfileService
	leaderboard *services.LeaderboardService
	clients     *services.Clients
	store       store.LeaderboardStore
	gatherer    prometheus.Gatherer
	metricsUser string
	metricsPass string
	corsOrigins []string
}

func (a *app) router() http.Handler {
	pointsHandler := handlers.NewPointsHandler(a.registry)
	userHandler := handlers.NewUserHandler(a.profiles, a.registry, a.log)
	leaderboardHandler := handlers.NewLeaderboardHandler(a.leaderboard)
	challengeHandler := handlers.NewChallengeHandler(a.clients, a.registry, a.log)
	adminHandler := handlers.NewAdminHandler(a.clients, a.log)
	healthHandler := handlers.NewHealthHandler(a.store, a.clients)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(middleware.RequestLogger(a.log))
	standardRouter.Use(a.limiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(a.metricsUser, a.metricsPass,
		promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))).Methods("GET")
	standardRouter.HandleFunc("/health", healthHandler.Check).Methods("GET")

	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PUBLIC ROUTES (AUTH HEADER OPTIONAL)
	// -------------------------------------------------------------------------
	public := api.PathPrefix("").Subrouter()
	public.Use(a.auth.Optional)
	public.HandleFunc("/leaderboard", leaderboardHandler.GetLeaderboard).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(a.auth.Required)

	protected.HandleFunc("/points", pointsHandler.GetPoints).Methods("GET")
	protected.HandleFunc("/profile", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/logout", userHandler.Logout).Methods("POST")

	protected.HandleFunc("/challenges", challengeHandler.ListChallenges).Methods("GET")
	protected.HandleFunc("/challenges", challengeHandler.CreateChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{id}", challengeHandler.GetChallenge).Methods("GET")
	protected.HandleFunc("/challenges/{id}", challengeHandler.UpdateChallenge).Methods("PUT")
	protected.HandleFunc("/challenges/{id}", challengeHandler.DeleteChallenge).Methods("DELETE")
	protected.HandleFunc("/challenges/{id}/status", challengeHandler.GetChallengeStatus).Methods("GET")
	protected.HandleFunc("/challenges/{id}/verify", challengeHandler.VerifyChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{id}/enable", challengeHandler.EnableChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{id}/disable", challengeHandler.DisableChallenge).Methods("POST")

	protected.HandleFunc("/admin", adminHandler.GetAdmin).Methods("GET")
	protected.HandleFunc("/admin", adminHandler.ClaimAdmin).Methods("POST")
	protected.HandleFunc("/admin/apify", adminHandler.GetApifyStatus).Methods("GET")
	protected.HandleFunc("/admin/apify", adminHandler.SetApify).Methods("PUT")
	protected.HandleFunc("/admin/system", adminHandler.GetSystemData).Methods("GET")
	protected.HandleFunc("/admin/recalculate", adminHandler.RecalculatePoints).Methods("POST")
	protected.HandleFunc("/admin/users/{principal}", adminHandler.DeleteUser).Methods("DELETE")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(a.corsOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length", "X-Request-ID"}),
		gorillaHandlers.AllowCredentials(),
	)

	return corsHandler(r)
}
