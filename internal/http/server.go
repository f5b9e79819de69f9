package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	applog "calorie/internal/log"
	"calorie/internal/middleware/ratelimit"
	"calorie/internal/middleware/security"
	"calorie/internal/middleware/trace"
	"calorie/internal/store"
	appweb "calorie/web"
)

// Options configures NewServer.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs or addresses allowed to set forwarding headers.
	TrustedProxies []string
	Logger         *applog.Logger
}

// Server is the web host of the diary.
type Server struct {
	http.Server
	templates *template.Template
	diary     store.Diary
	logger    *applog.Logger

	rateLimiter     *ratelimit.Limiter
	detector        *security.Detector
	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

// appMetrics tracks diary activity; fields are updated atomically.
type appMetrics struct {
	entriesAdded     int64
	balancesComputed int64
	invalidInputs    int64
	clears           int64
	uptime           time.Time
}

// NewServer parses the embedded templates and wires routes and middleware.
// A template failure is logged and reported by /readyz.
func NewServer(opts Options, diary store.Diary) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		diary:      diary,
		logger:     logger,
		detector:   security.NewDetector(),
		appMetrics: &appMetrics{uptime: time.Now()},
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	for _, proxy := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(proxy); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.Get("/", s.handleIndex)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))
		r.Post("/entries", s.handleAddEntry)
		r.Post("/balance", s.handleBalance)
		r.Post("/clear", s.handleClear)
		r.Post("/api/balance", s.handleAPIBalance)
	})

	return r
}

// Shutdown stops the rate limiter and gracefully shuts the HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
