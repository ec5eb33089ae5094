package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/config"
	"github.com/pribylovaa/annotator/internal/http/handlers"
	"github.com/pribylovaa/annotator/internal/http/middleware"
	"github.com/pribylovaa/annotator/internal/metrics"
	"github.com/pribylovaa/annotator/internal/ratelimit"
	"github.com/pribylovaa/annotator/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Timeout time.Duration
	// Limiter ограничивает login/register; nil — без ограничения.
	Limiter ratelimit.Limiter
	// Metrics — nil отключает учёт.
	Metrics *metrics.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// Маршруты регистрируются под Config.HTTP.BasePath (например, "/api").
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	authn := auth.NewAuthenticator(svc.Issuer(), opts.Config.Cookie.Name)
	h := handlers.New(svc, authn, opts.Config, opts.Metrics)

	mw := routeMiddleware{
		access:    middleware.Authenticate(authn, auth.AccessOnly, opts.Metrics),
		orRefresh: middleware.Authenticate(authn, auth.AllowRefresh, opts.Metrics),
		limit:     middleware.RateLimit(opts.Limiter, opts.Metrics),
	}

	if base := opts.Config.HTTP.BasePath; base != "" && base != "/" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, mw)
		root.Mount(base, sub)
		return root
	}

	registerRoutes(root, h, mw)
	return root
}

type routeMiddleware struct {
	access    func(http.Handler) http.Handler
	orRefresh func(http.Handler) http.Handler
	limit     func(http.Handler) http.Handler
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
// Изменяющие маршруты принимают только access-токен; refresh допускается лишь для GET /auth/me.
func registerRoutes(r chi.Router, h *handlers.Handlers, mw routeMiddleware) {
	// auth
	r.With(mw.limit).Post("/auth/register", h.Register)
	r.With(mw.limit).Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
	r.With(mw.orRefresh).Get("/auth/me", h.Me)

	r.Group(func(r chi.Router) {
		r.Use(mw.access)

		// users
		r.Get("/users", h.ListUsers)
		r.Post("/users", h.CreateUser)
		r.Get("/users/{userID}", h.GetUser)
		r.Patch("/users/{userID}", h.UpdateUser)
		r.Delete("/users/{userID}", h.DeleteUser)

		// projects
		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.CreateProject)
		r.Get("/projects/{projectID}", h.GetProject)
		r.Patch("/projects/{projectID}", h.UpdateProject)
		r.Delete("/projects/{projectID}", h.DeleteProject)

		// images
		r.Get("/projects/{projectID}/images", h.ListImages)
		r.Post("/projects/{projectID}/images", h.CreateImage)
		r.Get("/projects/{projectID}/images/{imageID}", h.GetImage)
		r.Patch("/projects/{projectID}/images/{imageID}", h.UpdateImage)
		r.Delete("/projects/{projectID}/images/{imageID}", h.DeleteImage)
	})
}
