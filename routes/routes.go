package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matchpoint-hq/backend/handlers"
	"github.com/matchpoint-hq/backend/metrics"
	"github.com/matchpoint-hq/backend/middleware"
	"github.com/matchpoint-hq/backend/models"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Organization *handlers.OrganizationHandler
	Player       *handlers.PlayerHandler
	Tournament   *handlers.TournamentHandler
	Division     *handlers.DivisionHandler
	Involvement  *handlers.InvolvementHandler
	Match        *handlers.MatchHandler
	WebSocket    *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret []byte) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(metrics.HTTPMiddleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Handle("/metrics", promhttp.Handler())

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Get("/ws/divisions/{divisionID}", h.WebSocket.ServeDivision)

	router.Route("/users", func(r chi.Router) {
		r.Get("/{userID}", h.User.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", h.User.GetMe)
			r.Put("/me", h.User.UpdateMe)
		})
	})

	router.Route("/organizations", func(r chi.Router) {
		r.Get("/", h.Organization.List)
		r.Get("/{organizationID}", h.Organization.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Post("/", h.Organization.Create)
			r.Put("/{organizationID}", h.Organization.Update)
			r.Delete("/{organizationID}", h.Organization.Deactivate)
			r.Post("/{organizationID}/logo", h.Organization.UploadLogo)
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/", h.Player.List)
		r.Get("/{playerID}", h.Player.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", h.Player.Create)
			r.Put("/{playerID}", h.Player.Update)
			r.Post("/{playerID}/avatar", h.Player.UploadAvatar)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Delete("/{playerID}", h.Player.Delete)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/{tournamentID}/divisions", h.Tournament.ListDivisions)

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Post("/", h.Tournament.Create)
			r.Put("/{tournamentID}", h.Tournament.Update)
			r.Patch("/{tournamentID}/status", h.Tournament.UpdateStatus)
			r.Delete("/{tournamentID}", h.Tournament.Delete)
			r.Post("/{tournamentID}/logo", h.Tournament.UploadLogo)
			r.Post("/{tournamentID}/divisions", h.Tournament.CreateDivision)
		})
	})

	router.Route("/divisions", func(r chi.Router) {
		r.Get("/{divisionID}", h.Division.GetByID)
		r.Get("/{divisionID}/involvements", h.Division.ListInvolvements)
		r.Get("/{divisionID}/bracket", h.Division.GetBracket)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{divisionID}/involvements", h.Division.Register)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Put("/{divisionID}", h.Division.Update)
			r.Post("/{divisionID}/publish", h.Division.Publish)
			r.Delete("/{divisionID}", h.Division.Delete)
			r.Post("/{divisionID}/bracket", h.Division.GenerateBracket)
		})
	})

	router.Route("/involvements", func(r chi.Router) {
		r.Get("/{involvementID}", h.Involvement.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Delete("/{involvementID}", h.Involvement.Withdraw)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Post("/{involvementID}/approve", h.Involvement.Approve)
			r.Post("/{involvementID}/reject", h.Involvement.Reject)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", h.Match.List)
		r.Get("/{matchID}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Post("/", h.Match.Create)
			r.Put("/{matchID}", h.Match.Update)
			r.Post("/{matchID}/cancel", h.Match.Cancel)
			r.Delete("/{matchID}", h.Match.Delete)
			r.Post("/{matchID}/scores", h.Match.RecordScores)
		})
	})

	return router
}
