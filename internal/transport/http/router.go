package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/article-live-api/internal/config"
	"github.com/article-live-api/internal/transport/http/handler"
	appmiddleware "github.com/article-live-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second with burst of 10 on registration.
	registerRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	articleH := handler.NewArticleHandler(deps.ArticleSvc)
	subH := handler.NewSubscriptionHandler(deps.SubscriptionRepo)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/articles/{id}", articleH.Get)
			r.With(registerRL.Limit).Post("/push-subscriptions", subH.Upsert)
			r.Delete("/push-subscriptions", subH.Delete)
			r.Get("/ws", deps.Gateway.Handle)
		})
	})

	return r
}
