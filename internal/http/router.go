package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"semdex/internal/handlers"
)

// Deps holds the handlers the router mounts. Nil handlers are still
// mounted; each handler reports its own unavailability.
type Deps struct {
	Index  *handlers.IndexHandler
	Search *handlers.SearchHandler
	Ask    *handlers.AskHandler
	Status *handlers.StatusHandler
	Health *handlers.HealthHandler
}

// NewRouter creates a chi router with all API routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/index", deps.Index.ServeHTTP)
		r.Post("/search", deps.Search.ServeHTTP)
		r.Post("/ask", deps.Ask.ServeHTTP)
		r.Get("/status", deps.Status.ServeHTTP)
		r.Get("/health", deps.Health.ServeHTTP)
	})

	return r
}
