package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/logging"
	"github.com/Amund-Fremming/tero.platform/internal/middleware"
	"github.com/Amund-Fremming/tero.platform/internal/repository"
	"github.com/Amund-Fremming/tero.platform/internal/services/keyvault"
	"github.com/Amund-Fremming/tero.platform/internal/services/pagecache"
	"github.com/Amund-Fremming/tero.platform/internal/services/popup"
	"github.com/Amund-Fremming/tero.platform/internal/services/syslog"
	"github.com/Amund-Fremming/tero.platform/internal/services/validation"
	"github.com/Amund-Fremming/tero.platform/internal/telemetry"
)

// GamePage is the cached value of one game listing page.
type GamePage = repository.Page[models.GameBase]

// SessionClient is the game-session service. Satisfied by *gsclient.Client.
type SessionClient interface {
	InitiateSession(ctx context.Context, kind games.Kind, key string, value json.RawMessage) error
	Health(ctx context.Context) bool
}

// Dispatcher runs detached work. Satisfied by *background.Queue.
type Dispatcher interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// RouterOptions holds everything the HTTP surface needs. Every service is
// constructed once at startup and shared by all requests.
type RouterOptions struct {
	GSDomain   string
	PageSize   int
	WebhookKey string

	Users     repository.UserRepository
	Games     repository.GameRepository
	Vault     *keyvault.Vault
	Cache     *pagecache.Cache[GamePage]
	Popups    *popup.Manager
	Sessions  SessionClient
	Validator *validation.SessionValidator
	Audit     *syslog.Logger
	Jobs      Dispatcher

	Resolver middleware.SubjectResolver
	Policy   middleware.Policy
	// PseudoUserLimiter throttles anonymous POST /pseudo-users. Nil disables it.
	PseudoUserLimiter *middleware.RateLimiter
	DBHealth          func(ctx context.Context) bool

	Metrics     *telemetry.ServerMetrics
	CORSOptions *cors.Options
	Logger      logrus.FieldLogger
	Now         func() time.Time
}

// DefaultCORSOptions allows the mobile web client and local development.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-Guest-Authentication",
		},
		MaxAge: 300,
	}
}

// handlers carries the shared services into every handler method.
type handlers struct {
	RouterOptions
	log logrus.FieldLogger
}

// NewRouter assembles the chi router with shared middleware and every route.
func NewRouter(opts RouterOptions) chi.Router {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	h := &handlers{RouterOptions: opts, log: opts.Logger.WithField("component", "http")}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(opts.Metrics))

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.health)
		r.Get("/detailed", h.healthDetailed)
	})

	r.Route("/pseudo-users", func(r chi.Router) {
		if opts.PseudoUserLimiter != nil {
			r.With(opts.PseudoUserLimiter.Middleware).Post("/", h.ensurePseudoUser)
		} else {
			r.Post("/", h.ensurePseudoUser)
		}
		r.Get("/popups", h.getPopup)
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookSecret(opts.WebhookKey, h.log))
		r.With(h.allow(auth.WebhookAuth0)).Post("/auth0/{pseudo_id}", h.auth0Webhook)
	})

	// Everything below needs a resolved subject.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Resolver, h.log))

		r.Route("/users", func(r chi.Router) {
			r.With(h.allow(auth.UsersList), h.require(auth.ReadAdmin)).Get("/", h.listUsers)
			r.With(h.allow(auth.UsersMe)).Get("/me", h.getMe)
			r.With(h.allow(auth.UsersStats), h.require(auth.ReadAdmin)).Get("/activity-stats", h.activityStats)
			r.With(h.allow(auth.PopupUpdate), h.require(auth.WriteAdmin)).Put("/popups", h.updatePopup)
			r.With(h.allow(auth.UsersPatch)).Patch("/{user_id}", h.patchUser)
		})

		r.Route("/games", func(r chi.Router) {
			r.Route("/general", func(r chi.Router) {
				r.With(h.allow(auth.GamesPage)).Post("/page", h.gamePage)
				r.With(h.allow(auth.GamesDelete), h.require(auth.WriteAdmin)).Delete("/{game_id}", h.deleteGame)
				r.With(h.allow(auth.SessionFreeKey), h.require(auth.WriteGame)).Patch("/free-key/{key}", h.freeKey)
				r.With(h.allow(auth.GamesSave)).Post("/save/{game_id}", h.saveGame)
				r.With(h.allow(auth.GamesUnsave)).Delete("/unsave/{game_id}", h.unsaveGame)
				r.With(h.allow(auth.GamesSaved)).Get("/saved", h.savedGames)
			})

			r.Route("/session", func(r chi.Router) {
				r.With(h.allow(auth.SessionCreate)).Post("/{kind}/create", h.createSession)
				r.With(h.allow(auth.SessionInitiate)).Post("/{kind}/initiate/{game_id}", h.initiateSession)
				r.With(h.allow(auth.SessionJoin)).Post("/join/{key}", h.joinSession)
				r.With(h.allow(auth.SessionPersist), h.require(auth.WriteGame)).Post("/persist/{kind}", h.persistSession)
			})
			r.With(h.allow(auth.SessionPersist), h.require(auth.WriteGame)).Post("/persist/{kind}", h.persistSession)

			r.Route("/static", func(r chi.Router) {
				r.With(h.allow(auth.StaticInitiate)).Get("/{kind}/initiate/{game_id}", h.initiateStatic)
				r.With(h.allow(auth.StaticPersist)).Post("/persist/{kind}", h.persistStatic)
			})
		})
	})

	return r
}

func (h *handlers) allow(action string) func(http.Handler) http.Handler {
	return middleware.Authorize(h.Policy, action, h.log)
}

func (h *handlers) require(perms ...auth.Permission) func(http.Handler) http.Handler {
	return middleware.RequirePermissions(h.log, perms...)
}

// NewHTTPServer wraps handler for HTTP/1.1 and cleartext HTTP/2.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
