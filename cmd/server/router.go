package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/pathwise/internal/api"
	apiMiddleware "github.com/phrazzld/pathwise/internal/api/middleware"
)

// setupRouter creates the router with the middleware chain and every route.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	rateLimiter := apiMiddleware.NewRateLimiter(app.config.RateLimit, nil)
	engineHandler := api.NewEngineHandler(app.dispatcher, app.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(rateLimiter.Middleware)
		engineHandler.RegisterRoutes(r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
