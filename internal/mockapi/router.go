package mockapi

import (
	"net/http"

	"github.com/amanpay/appcore/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the mock backend routes:
//
//	POST /api/auth/register/  → Handler.Register
//	POST /api/auth/login/     → Handler.Login
//	POST /api/auth/refresh/   → Handler.Refresh
//	GET  /api/auth/me/        → Handler.Me (bearer auth)
//
// JSON content type is enforced on the POST endpoints and every request
// is logged through zap.
func NewRouter(h *Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/register/", h.Register)
			r.Post("/login/", h.Login)
			r.Post("/refresh/", h.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(h.Tokens))
			r.Get("/me/", h.Me)
		})
	})

	return r
}
