package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/mevamscale/internal/access"
	"github.com/hugh/mevamscale/internal/api/handlers"
	"github.com/hugh/mevamscale/internal/api/middleware"
	"github.com/hugh/mevamscale/internal/auth"
	"github.com/hugh/mevamscale/internal/projects"
	"github.com/hugh/mevamscale/internal/roster"
	"github.com/hugh/mevamscale/internal/skills"
	"github.com/hugh/mevamscale/internal/teams"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Policy         access.Policy
	Dispatcher     roster.Dispatcher // nil runs team fan-outs inline
	AllowedOrigins []string          // CORS allowed origins
	RateLimitReqs  int               // Rate limit requests per window
	RateLimitSecs  int               // Rate limit window in seconds
	SecureCookies  bool
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or the local SPA dev servers
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize services
	gate := access.NewGate(cfg.DB, cfg.Policy)
	projectService := projects.NewService(cfg.DB)
	teamService := teams.NewService(cfg.DB)
	skillService := skills.NewService(cfg.DB)
	rosterService := roster.NewService(cfg.DB, cfg.Logger)
	if cfg.Dispatcher != nil {
		rosterService.WithDispatcher(cfg.Dispatcher)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.SecureCookies)
	projectHandler := handlers.NewProjectHandler(projectService, gate)
	teamHandler := handlers.NewTeamHandler(teamService, gate)
	rosterHandler := handlers.NewRosterHandler(rosterService, gate)
	skillHandler := handlers.NewSkillHandler(skillService)

	// Public endpoints
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		var userLimit func(http.Handler) http.Handler
		if cfg.RateLimitReqs > 0 {
			userLimit = middleware.RateLimitByUser(cfg.RateLimitReqs, cfg.RateLimitSecs)
		}

		// Roster reads and confirmation are open unless the policy gates
		// them; a token, when sent, still identifies the caller.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWTService))
			if userLimit != nil {
				r.Use(userLimit)
			}

			r.Get("/projects/{id}/entries", rosterHandler.List)
			r.Post("/entries/{id}/confirm", rosterHandler.Confirm)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))
			if userLimit != nil {
				r.Use(userLimit)
			}

			r.Get("/me", authHandler.Me)

			r.Get("/projects", projectHandler.List)
			r.Post("/projects", projectHandler.Create)
			r.Get("/projects/{id}/members", projectHandler.Members)
			r.Post("/projects/{id}/members", projectHandler.LinkMember)
			r.Get("/projects/{id}/teams", teamHandler.List)
			r.Post("/projects/{id}/teams", teamHandler.Create)
			r.Post("/projects/{id}/entries", rosterHandler.CreateEntry)
			r.Post("/projects/{id}/teams/{teamID}/entries", rosterHandler.ScheduleTeam)

			r.Get("/teams/{id}/members", teamHandler.Members)
			r.Post("/teams/{id}/members", teamHandler.AddMember)

			r.Get("/batches/{id}", rosterHandler.GetBatch)

			r.Put("/users/me/skills", skillHandler.SetMine)
			r.Get("/users/{id}/skills", skillHandler.List)
		})
	})

	return &Router{r}
}
