package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rpx-gg/tournament-service/handlers"
	"github.com/rpx-gg/tournament-service/middleware"
	"github.com/rpx-gg/tournament-service/models"
)

// SetupRoutes собирает все HTTP-маршруты сервиса.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tournamentHandler *handlers.TournamentHandler,
	participantHandler *handlers.ParticipantHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	organizerOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)

	router.Get("/swagger/*", httpSwagger.Handler())

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.RegisterHandler)
		r.Post("/login", authHandler.LoginHandler)
	})

	router.Route("/users", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/me", userHandler.GetMeHandler)
		r.Get("/{userID}", userHandler.GetByIDHandler)
		r.Patch("/{userID}", userHandler.UpdateHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/participants", participantHandler.ListHandler)
		r.Get("/{tournamentID}/matches", matchHandler.ListHandler)

		// Защищённые маршруты
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			// Регистрация участников и репорт результатов доступны игрокам
			r.Post("/{tournamentID}/participants", participantHandler.EnrollHandler)
			r.Post("/{tournamentID}/matches/{matchID}/result", matchHandler.ReportResultHandler)

			// Управление турниром - только организаторы и админы
			r.Group(func(r chi.Router) {
				r.Use(organizerOnly)

				r.Post("/", tournamentHandler.CreateHandler)
				r.Put("/{tournamentID}", tournamentHandler.UpdateHandler)
				r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)
				r.Patch("/{tournamentID}/status", tournamentHandler.ChangeStatusHandler)
				r.Put("/{tournamentID}/prizes", tournamentHandler.SetPrizesHandler)
				r.Put("/{tournamentID}/banner", tournamentHandler.UploadBannerHandler)
				r.Post("/{tournamentID}/bracket", matchHandler.GenerateBracketHandler)
				r.Post("/{tournamentID}/matches/{matchID}/start", matchHandler.StartMatchHandler)
				r.Put("/{tournamentID}/matches/{matchID}/room", matchHandler.SetRoomCredentialsHandler)
			})
		})
	})

	router.Route("/participants", func(r chi.Router) {
		r.Use(authenticate)
		r.Patch("/{participantID}/status", participantHandler.ChangeStatusHandler)
		r.Patch("/{participantID}/seed", participantHandler.SetSeedHandler)
		r.Delete("/{participantID}", participantHandler.WithdrawHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
