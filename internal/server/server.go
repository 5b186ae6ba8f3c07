package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/courseflow/courseflow/internal/auth"
	"github.com/courseflow/courseflow/internal/consent"
	"github.com/courseflow/courseflow/internal/course"
	"github.com/courseflow/courseflow/internal/database"
	"github.com/courseflow/courseflow/internal/embed"
	"github.com/courseflow/courseflow/internal/httputil"
	"github.com/courseflow/courseflow/internal/language"
	"github.com/courseflow/courseflow/internal/player"
	"github.com/courseflow/courseflow/internal/ratelimit"
	"github.com/courseflow/courseflow/internal/subscription"
	"github.com/courseflow/courseflow/internal/validate"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB               database.DBTX
	Pinger           Pinger
	Storage          course.ThumbnailStore
	JWTSecret        string
	BaseURL          string
	S3PublicEndpoint string
	ActivationSender auth.ActivationSender
}

type Server struct {
	router chi.Router
	pinger Pinger

	authHandler         *auth.Handler
	courseHandler       *course.Handler
	subscriptionHandler *subscription.Handler
	languageHandler     *language.Handler
	playerHandler       *player.Handler
	embedHandler        *embed.Handler
	consentHandler      *consent.Handler
	broadcaster         *language.Broadcaster
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(slogMiddleware)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:         cfg.BaseURL,
		StorageEndpoint: cfg.S3PublicEndpoint,
	}))

	s := &Server{router: r, pinger: cfg.Pinger}

	if cfg.DB != nil {
		jwtSecret := cfg.JWTSecret
		if jwtSecret == "" {
			log.Fatal("JWT_SECRET is required; set the environment variable")
		}

		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}

		secureCookies := strings.HasPrefix(baseURL, "https://")
		s.authHandler = auth.NewHandler(cfg.DB, jwtSecret, secureCookies)
		if cfg.ActivationSender != nil {
			s.authHandler.SetActivationSender(cfg.ActivationSender, baseURL)
		}

		s.broadcaster = language.NewBroadcaster()
		s.courseHandler = course.NewHandler(cfg.DB, cfg.Storage)
		s.subscriptionHandler = subscription.NewHandler(cfg.DB)
		s.languageHandler = language.NewHandler(cfg.DB, s.broadcaster, auth.UserIDFromContext)
		s.playerHandler = player.NewHandler()
		s.embedHandler = embed.NewHandler(cfg.DB, jwtSecret, func(r *http.Request) (string, bool) {
			return s.authHandler.SessionUserID(r)
		})
		s.consentHandler = consent.NewHandler(secureCookies)

		// Caption tracks follow the viewer's language from then on.
		s.broadcaster.Subscribe(s.playerHandler.Manager().SetCaptionLocale)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown tears down live playback sessions.
func (s *Server) Shutdown() {
	if s.playerHandler != nil {
		s.playerHandler.Manager().Shutdown()
	}
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", handleLimits)

	if s.consentHandler != nil {
		s.router.Get("/api/consent", s.consentHandler.Status)
		s.router.Post("/api/consent", s.consentHandler.Update)
	}

	if s.authHandler != nil {
		authLimiter := ratelimit.NewLimiter(0.5, 5)
		s.router.Route("/api/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", s.authHandler.Register)
			r.Post("/login", s.authHandler.Login)
			r.Post("/refresh", s.authHandler.Refresh)
			r.Post("/logout", s.authHandler.Logout)
		})
		s.router.Get("/api/auth/confirm", s.authHandler.Confirm)
		s.router.With(s.authHandler.Middleware).Get("/api/auth/me", s.authHandler.Me)
	}

	if s.languageHandler != nil {
		s.router.Get("/api/languages", s.languageHandler.List)
		s.router.Route("/api/language", func(r chi.Router) {
			r.Use(s.authHandler.Middleware)
			r.Get("/", s.languageHandler.Get)
			r.Put("/", s.languageHandler.Update)
		})
	}

	if s.courseHandler != nil {
		s.router.Route("/api/courses", func(r chi.Router) {
			r.Use(s.authHandler.Middleware)
			r.Get("/", s.courseHandler.List)
			r.Get("/{id}", s.courseHandler.Get)
			r.Post("/{id}/thumbnail-upload", s.courseHandler.ThumbnailUpload)
		})
	}

	if s.subscriptionHandler != nil {
		s.router.With(s.authHandler.Middleware).
			Get("/api/subscription", s.subscriptionHandler.Current)
	}

	if s.playerHandler != nil {
		playerLimiter := ratelimit.NewLimiter(10, 30)
		s.router.Route("/api/player/sessions", func(r chi.Router) {
			r.Use(playerLimiter.Middleware)
			r.Post("/", s.playerHandler.Create)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.playerHandler.Get)
				r.Delete("/", s.playerHandler.Delete)
				r.Post("/events", s.playerHandler.Event)
				r.Post("/commands", s.playerHandler.Command)
				r.Get("/commands", s.playerHandler.Commands)
				r.Post("/resume", s.playerHandler.Resume)
			})
		})
	}

	if s.embedHandler != nil {
		s.router.Get("/embed/{courseID}", s.embedHandler.Page)
		s.router.Get("/api/embed/{courseID}/token", s.embedHandler.Token)
	}

	s.router.Get("/", s.handleLoginPage)
	if s.authHandler != nil {
		s.router.Get("/courses", s.requireSession(s.handleCoursesPage))
		s.router.Get("/today", s.requireSession(s.handleTodayPage))
	}
}

// requireSession gates a page behind a signed-in session. The original
// destination survives the round trip through the login page.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.authHandler.SessionUserID(r); !ok {
			http.Redirect(w, r, "/?from="+r.URL.Path, http.StatusFound)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleLimits publishes the field length limits so clients can validate
// before submitting.
func handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
