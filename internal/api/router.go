package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/imagegen-backend/internal/api/handlers"
	"github.com/baharkarakas/imagegen-backend/internal/api/httpx"
	"github.com/baharkarakas/imagegen-backend/internal/metrics"
	"github.com/baharkarakas/imagegen-backend/internal/middleware"
	"github.com/baharkarakas/imagegen-backend/internal/services"
)

type RouterDeps struct {
	CORSOrigins []string
	UserSvc     *services.UserService
	ImageSvc    *services.ImageService
	Guard       *middleware.Guard
	// RateLimit wraps /api routes; nil disables it.
	RateLimit func(http.Handler) http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// health & metrics
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("API is running...")) })
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	users := handlers.NewUserHandler(d.UserSvc)
	images := handlers.NewImageHandler(d.ImageSvc)
	guard := d.Guard

	r.Route("/api", func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit)
		}

		// ---------- users ----------
		r.Post("/users", users.Register)
		r.Post("/users/login", users.Login)
		r.With(guard.Authenticate).Get("/users/profile", users.Profile)
		r.With(guard.Authenticate, middleware.RequireAdmin).Get("/users", users.List)

		// ---------- images ----------
		r.Get("/images", images.List)
		r.With(guard.Authenticate).Post("/images/generate", images.Generate)
		r.With(guard.Authenticate).Get("/images/myimages", images.Mine)
		r.With(guard.Optional).Get("/images/{id}", images.Get)
		r.With(guard.Authenticate).Put("/images/{id}/like", images.Like)
		r.With(guard.Authenticate).Delete("/images/{id}", images.Delete)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Not Found - "+r.URL.Path, nil)
	})

	return r
}
