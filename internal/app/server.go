package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/readaloud/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/readaloud/internal/api/middlewares"
	"github.com/markdave123-py/readaloud/internal/config"
	"github.com/markdave123-py/readaloud/internal/observability"
	"github.com/markdave123-py/readaloud/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *observability.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, users *services.UserService, docs *services.DocumentService, reader *services.ReaderService, health map[string]any, log *observability.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, users, docs, reader, health, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// NewRouter returns the HTTP routes of the service.
func NewRouter(cfg *config.Config, users *services.UserService, docs *services.DocumentService, reader *services.ReaderService, health map[string]any, log *observability.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(users, cfg.JWTSecret, log)
	docHandler := handlers.NewDocumentHandler(docs, log)
	sessionHandler := handlers.NewSessionHandler(reader, log)
	healthHandler := handlers.NewHealthHandler(health)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", healthHandler.Health)

	// Serve static files from the web directory
	fileServer := http.FileServer(http.Dir("./web"))
	r.Handle("/*", fileServer)

	// API routes
	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			// large multipart bodies and the S3 write can outlast the short timeout
			protected.Post("/documents/upload", docHandler.UploadDocument)

			protected.Group(func(short chi.Router) {
				short.Use(middleware.Timeout(60 * time.Second))
				short.Get("/documents", docHandler.GetDocuments)
				short.Post("/documents/{id}/open", docHandler.OpenDocument)
				short.Get("/voices", sessionHandler.Voices)

				short.Route("/session", func(s chi.Router) {
					s.Get("/", sessionHandler.State)
					s.Delete("/", sessionHandler.Close)
					s.Post("/start", sessionHandler.Start)
					s.Post("/stop", sessionHandler.Stop)
					s.Post("/next", sessionHandler.Next)
					s.Post("/previous", sessionHandler.Previous)
					s.Post("/jump", sessionHandler.Jump)
					s.Post("/narrations/{id}/complete", sessionHandler.CompleteNarration)
					s.Get("/narrations/{id}/audio", sessionHandler.NarrationAudio)
					s.Get("/pages/{n}/image", sessionHandler.PageImage)
					s.Get("/pages/{n}/text", sessionHandler.PageText)
				})
			})
		})
	})

	return r
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
