package api

import (
	"net/http"

	"dramadl/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Router struct {
	chi    *chi.Mux
	apiKey string
}

func NewRouter(apiKey string, l *zap.Logger) *Router {
	r := chi.NewRouter()

	r.Use(logger.Middleware(l))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	return &Router{
		chi:    r,
		apiKey: apiKey,
	}
}

func (rt *Router) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			// WebSocket clients cannot set headers, they pass a query param
			key = r.URL.Query().Get("token")
		}

		if key != rt.apiKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rt *Router) Handler() http.Handler {
	return rt.chi
}

func (rt *Router) MountV1(handler http.Handler) {
	rt.chi.Mount("/api/v1", handler)
}
