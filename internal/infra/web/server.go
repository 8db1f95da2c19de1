package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"guild-registration-bot/internal/domain/ports/repository"
)

// Server is the read-only ops API: health, metrics, and per-guild views of
// the registration record and admin-role list. It never mutates anything;
// all writes go through the bot commands.
type Server struct {
	configs    repository.ConfigRepository
	adminRoles repository.AdminRoleRepository
	auth       *AuthManager
	log        *zerolog.Logger
}

func NewServer(
	configs repository.ConfigRepository,
	adminRoles repository.AdminRoleRepository,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		configs:    configs,
		adminRoles: adminRoles,
		auth:       auth,
		log:        logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/guilds/{guildID}/registration", s.registrationGetHandler)
		r.Get("/guilds/{guildID}/admin-roles", s.adminRolesGetHandler)
	})
	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
