package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dosada05/matchmaking-system/handlers"
	"github.com/Dosada05/matchmaking-system/middleware"
	"github.com/Dosada05/matchmaking-system/models"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	tenantHandler *handlers.TenantHandler,
	queueHandler *handlers.QueueHandler,
	matchHandler *handlers.MatchHandler,
	statsHandler *handlers.StatsHandler,
	configHandler *handlers.ConfigHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	secret := []byte(jwtSecret)
	authenticate := middleware.Authenticate(secret)
	staffOnly := middleware.Authorize(models.RoleStaff, models.RoleAdmin)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/auth/me", authHandler.Me)
	})

	router.Route("/tenants", func(r chi.Router) {
		r.Get("/", tenantHandler.List)
		r.Get("/{tenantID}", tenantHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Post("/", tenantHandler.Create)
		})

		r.Route("/{tenantID}/queues/{queueName}", func(r chi.Router) {
			// Public reads.
			r.Get("/", queueHandler.State)
			r.Get("/leaderboard", statsHandler.Leaderboard)
			r.Get("/matches", matchHandler.History)
			r.Get("/config", configHandler.Get)
			r.Get("/maps", configHandler.ListMaps)
			r.Get("/ranks", configHandler.ListRankBands)
			r.Get("/players/{userID}/stats", statsHandler.PlayerStats)

			// Player actions.
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/join", queueHandler.Join)
				r.Post("/leave", queueHandler.Leave)
			})

			// Staff administration.
			r.Group(func(r chi.Router) {
				r.Use(authenticate, staffOnly)
				r.Get("/activity", queueHandler.Activity)
				r.Post("/lock", queueHandler.Lock)
				r.Post("/unlock", queueHandler.Unlock)
				r.Post("/clear", queueHandler.Clear)
				r.Post("/players/{userID}/force-add", queueHandler.ForceAdd)
				r.Post("/players/{userID}/force-remove", queueHandler.ForceRemove)

				r.Patch("/config", configHandler.Update)
				r.Post("/maps", configHandler.AddMap)
				r.Delete("/maps/{mapName}", configHandler.RemoveMap)

				r.Post("/blacklist/{userID}", configHandler.Blacklist)
				r.Delete("/blacklist/{userID}", configHandler.Unblacklist)
				r.Get("/required-roles", configHandler.ListRequiredRoles)
				r.Post("/required-roles", configHandler.AddRequiredRole)
				r.Delete("/required-roles/{roleID}", configHandler.RemoveRequiredRole)

				r.Put("/ranks", configHandler.UpsertRankBand)
				r.Delete("/ranks/{bandName}", configHandler.RemoveRankBand)

				r.Put("/players/{userID}/mmr", configHandler.SetMMR)
				r.Patch("/players/{userID}/mmr", configHandler.AdjustMMR)
			})
		})
	})

	router.Route("/matches/{matchUID}", func(r chi.Router) {
		r.Get("/", matchHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/vote", matchHandler.Vote)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, staffOnly)
			r.Post("/report", matchHandler.ReportWin)
			r.Post("/cancel", matchHandler.Cancel)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Put("/result", matchHandler.ModifyResult)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate, adminOnly)
		r.Put("/users/{userID}/role", authHandler.SetRole)
		r.Post("/users/{userID}/grace", configHandler.GrantGrace)
	})

	router.Get("/leaderboard", statsHandler.GlobalLeaderboard)

	router.Get("/ws/tenants/{tenantID}/queues/{queueName}", webSocketHandler.ServeQueue)
	router.Get("/ws/matches/{matchUID}", webSocketHandler.ServeMatch)
}
