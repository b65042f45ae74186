package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/bgmi-arena/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers собирает обработчики всех ресурсов API.
type Handlers struct {
	User       *handlers.UserHandler
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Invitation *handlers.InvitationHandler
	Match      *handlers.MatchHandler
	Replay     *handlers.ReplayHandler
	Ranking    *handlers.RankingHandler
}

// SetupRoutes регистрирует маршруты /api. authenticate проверяет токен и
// кладет пользователя в контекст.
func SetupRoutes(
	router chi.Router,
	authenticate func(http.Handler) http.Handler,
	allowedOrigins []string,
	h Handlers,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(chiMiddleware.Timeout(30 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/auth/user", h.User.GetMe)
			r.Get("/user/team", h.User.GetMyTeam)
			r.Get("/user/invitations", h.User.ListMyInvitations)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListHandler)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", h.Tournament.CreateHandler)
			})

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.Tournament.GetByIDHandler)
				r.Get("/registrations", h.Tournament.ListRegistrationsHandler)
				r.Get("/matches", h.Tournament.ListMatchesHandler)
				r.Get("/standings", h.Tournament.StandingsHandler)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Patch("/", h.Tournament.UpdateHandler)
					r.Delete("/", h.Tournament.DeleteHandler)
					r.Post("/banner", h.Tournament.UploadBannerHandler)
					r.Post("/register", h.Tournament.RegisterTeamHandler)
					r.Delete("/registrations/{teamID}", h.Tournament.WithdrawTeamHandler)
				})
			})
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.Team.ListTeams)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", h.Team.CreateTeam)
			})

			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", h.Team.GetTeamByID)
				r.Get("/members", h.Team.ListTeamMembers)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Delete("/", h.Team.DeleteTeam)
					r.Delete("/members/{userID}", h.Team.RemoveMember)
					r.Post("/logo", h.Team.UploadTeamLogo)
				})
			})
		})

		r.Route("/team-invitations", func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", h.Invitation.CreateInvitation)
			r.Patch("/{invitationID}", h.Invitation.RespondToInvitation)
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.Match.ListMatches)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", h.Match.CreateMatch)
			})

			r.Route("/{matchID}", func(r chi.Router) {
				r.Get("/", h.Match.GetMatch)
				r.Get("/results", h.Match.ListResults)
				r.Get("/chat", h.Match.ListChat)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Patch("/", h.Match.UpdateMatch)
					r.Delete("/", h.Match.DeleteMatch)
					r.Post("/results", h.Match.CreateResult)
					r.Post("/chat", h.Match.PostChat)
				})
			})
		})

		r.With(authenticate).Patch("/match-results/{resultID}", h.Match.UpdateResult)

		r.Route("/replays", func(r chi.Router) {
			r.Get("/", h.Replay.ListReplays)
			r.With(authenticate).Post("/", h.Replay.CreateReplay)
		})

		r.Get("/rankings/players", h.Ranking.TopPlayers)
		r.Get("/rankings/teams", h.Ranking.TopTeams)
		r.Get("/stats", h.Ranking.Stats)
	})
}
