package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"contas/internal/auth"
	"contas/internal/log"
	"contas/internal/middleware/ratelimit"
	"contas/internal/middleware/security"
	"contas/internal/middleware/trace"
	"contas/internal/services"
)

// Authenticator signs users in and resolves bearer tokens. *auth.Provider
// satisfies it.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (auth.Session, error)
	Session(token string) (auth.Session, error)
	SignOut(ctx context.Context, token string) error
}

// Options wires a Server. Session is required. A nil Auth leaves the API
// open; nil Limiter and Detector get defaults.
type Options struct {
	Session     *services.Session
	Auth        Authenticator
	Logger      *log.Logger
	CORSOrigins []string
	Limiter     *ratelimit.Limiter
	Detector    *security.Detector
	// BehindProxy trusts X-Forwarded-Proto when deciding on HSTS.
	BehindProxy bool
	Ready       func(ctx context.Context) error
}

// Server is the JSON API over one session.
type Server struct {
	http.Server
	session  *services.Session
	auth     Authenticator
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	ready    func(ctx context.Context) error

	shutdownOnce sync.Once
}

type ctxKey string

const sessionKey ctxKey = "auth_session"

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if opts.Detector == nil {
		opts.Detector = security.NewDetector()
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		session:  opts.Session,
		auth:     opts.Auth,
		logger:   logger,
		limiter:  opts.Limiter,
		detector: opts.Detector,
		tracer:   trace.NewMiddleware(opts.Detector.ExtractClientIP, logger),
		ready:    opts.Ready,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.CORSOrigins, opts.BehindProxy),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(origins []string, behindProxy bool) http.Handler {
	headers := security.DefaultHeadersConfig()
	headers.TrustForwardedProto = behindProxy

	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(headers).Middleware)
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", trace.HeaderRequestID},
			ExposedHeaders:   []string{trace.HeaderRequestID, "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/auth/session", s.handleSession)
			r.Post("/auth/logout", s.handleLogout)
			r.Get("/metrics", s.handleMetrics)
			r.Get("/company", s.handleCompany)

			r.Route("/payables", func(r chi.Router) {
				r.Get("/", s.handleListPayables)
				r.Post("/", s.handleCreatePayable)
				r.Post("/recurring", s.handleGenerateRecurring)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetPayable)
					r.Patch("/", s.handleUpdatePayable)
					r.Delete("/", s.handleDeletePayable)
					r.Post("/payment", s.handleConfirmPayment)
					r.Put("/fields/{field}", s.handleEditField)
				})
			})

			r.Route("/taxonomy", func(r chi.Router) {
				r.Get("/", s.handleGetTaxonomy)
				r.Get("/export", s.handleExportTaxonomy)
				r.Post("/import", s.handleImportTaxonomy)
				r.Post("/groups", s.handleAddGroup)
				r.Route("/groups/{group}", func(r chi.Router) {
					r.Put("/", s.handleRenameGroup)
					r.Delete("/", s.handleDeleteGroup)
					r.Post("/subgroups", s.handleAddSubgroup)
					r.Route("/subgroups/{subgroup}", func(r chi.Router) {
						r.Put("/", s.handleRenameSubgroup)
						r.Delete("/", s.handleDeleteSubgroup)
						r.Post("/codes", s.handleAddCode)
						r.Delete("/codes/{code}", s.handleRemoveCode)
					})
				})
			})

			r.Post("/reports", s.handleReport)
			r.Post("/reports/workbook", s.handleReportWorkbook)

			r.Post("/import", s.handleImportSpreadsheet)

			r.Get("/backup", s.handleExportBackup)
			r.Post("/backup", s.handleRestoreBackup)

			r.Route("/pending", func(r chi.Router) {
				r.Get("/", s.handleListPending)
				r.Post("/{changeID}/commit", s.handleCommitPending)
				r.Delete("/{changeID}", s.handleDiscardPending)
			})
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requireAuth rejects requests without a valid bearer token. With no
// authenticator configured every request passes.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			UnauthorizedError("missing bearer token").Write(w)
			return
		}
		sess, err := s.auth.Session(token)
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected session token",
				log.FieldError, err,
				log.FieldPath, r.URL.Path)
			FromError(err).Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(auth.Session)
	return sess, ok
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

// fail writes err as a response, logging what the caller will not see.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldError, err)
	}
	resp.Write(w)
}
