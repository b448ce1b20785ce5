package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solvencia-backend/internal/handlers"
	"solvencia-backend/internal/middleware"
	"solvencia-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	podcastHandler *handlers.PodcastHandler,
	knowledgeHandler *handlers.KnowledgeHandler,
	wsHub *websocket.Hub,
	healthCheck func(ctx context.Context) error,
	frontendURL string,
	trustProxy bool,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	// Without a trusted proxy the rate limiters key on the socket address;
	// forwarded headers would let a client pick its own IP.
	if trustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	sessionLimiter := middleware.NewRateLimiter(10, time.Minute)
	loginLimiter := middleware.NewRateLimiter(5, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if healthCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := healthCheck(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Public ────
		r.With(sessionLimiter.Middleware).Post("/sessions", authHandler.CreateSession)
		r.Get("/branding", knowledgeHandler.GetBranding)

		// ──── Student session ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Post("/chat", chatHandler.Send)
			r.Get("/chat/history", chatHandler.History)
			r.Delete("/chat/history", chatHandler.ClearHistory)

			r.Get("/podcasts/{id}", podcastHandler.GetPodcast)
			r.Get("/podcasts/{id}/audio", podcastHandler.Audio)
			r.Get("/jobs/{id}", podcastHandler.GetJob)
		})

		// ──── Admin ────
		r.Route("/admin", func(r chi.Router) {
			r.With(loginLimiter.Middleware).Post("/login", authHandler.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.AdminMiddleware)

				r.Route("/documents", func(r chi.Router) {
					r.Get("/", knowledgeHandler.List)
					r.Post("/", knowledgeHandler.Create)
					r.Post("/upload", knowledgeHandler.Upload)
					r.Post("/import-youtube", knowledgeHandler.ImportYouTube)
					r.Get("/{id}", knowledgeHandler.Get)
					r.Put("/{id}", knowledgeHandler.Update)
					r.Delete("/{id}", knowledgeHandler.Delete)
				})

				r.Get("/jobs/{id}", knowledgeHandler.GetJob)
				r.Put("/branding", knowledgeHandler.UpdateBranding)
				r.Post("/context/preview", knowledgeHandler.Preview)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
