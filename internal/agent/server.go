package agent

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tapwire/internal/clock"
	"tapwire/internal/config"
	"tapwire/internal/logging"
	"tapwire/internal/metrics"
	"tapwire/internal/nfc"
	"tapwire/internal/ratelimit"
	"tapwire/internal/session"
	"tapwire/internal/store"
	"tapwire/internal/sweeper"
)

// Injector feeds a raw NDEF message into the device as if a tag had been
// detected. Only emulated devices support it; on real hardware the endpoint
// is absent.
type Injector interface {
	Inject(message []byte) bool
}

type Dependencies struct {
	Config     config.Config
	Controller *session.Controller
	Device     nfc.Device
	Injector   Injector
	Store      store.Store
	Metrics    *metrics.Counters
	Liveness   *sweeper.Liveness
	Logger     *log.Logger
	Version    string
}

type Server struct {
	cfg          config.Config
	controller   *session.Controller
	device       nfc.Device
	injector     Injector
	store        store.Store
	metrics      *metrics.Counters
	liveness     *sweeper.Liveness
	logger       *log.Logger
	version      string
	rateLimiters map[string]*ratelimit.Limiter
	Router       http.Handler
}

func NewServer(deps Dependencies) *Server {
	logSink := deps.Logger
	if logSink == nil {
		logSink = log.New(io.Discard, "", 0)
	}
	version := deps.Version
	if version == "" {
		version = "0.1"
	}
	counters := deps.Metrics
	if counters == nil {
		counters = metrics.NewCounters()
	}

	rateLimiters := map[string]*ratelimit.Limiter{}
	clk := clock.RealClock{}
	if deps.Config.RateLimitHealth.Max > 0 {
		rateLimiters["health"] = ratelimit.New(deps.Config.RateLimitHealth.Max, deps.Config.RateLimitHealth.Window, clk)
	}
	if deps.Config.RateLimitV1.Max > 0 {
		rateLimiters["v1"] = ratelimit.New(deps.Config.RateLimitV1.Max, deps.Config.RateLimitV1.Window, clk)
	}
	if deps.Config.RateLimitMode.Max > 0 {
		rateLimiters["mode"] = ratelimit.New(deps.Config.RateLimitMode.Max, deps.Config.RateLimitMode.Window, clk)
	}

	server := &Server{
		cfg:          deps.Config,
		controller:   deps.Controller,
		device:       deps.Device,
		injector:     deps.Injector,
		store:        deps.Store,
		metrics:      counters,
		liveness:     deps.Liveness,
		logger:       logSink,
		version:      version,
		rateLimiters: rateLimiters,
	}

	server.Router = server.routes()
	return server
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.safeLogger)

	r.With(s.rateLimit("health")).Get("/healthz", s.handleHealth)
	r.With(s.rateLimit("health")).Get("/metricsz", s.handleMetrics)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit("v1"))
		r.Get("/capabilities", s.handleCapabilities)
		r.Get("/state", s.handleState)
		r.With(s.rateLimit("mode")).Post("/mode", s.handleEnableMode)
		r.Delete("/mode", s.handleDisableMode)
		r.Get("/contacts", s.handleListContacts)
		r.Delete("/contacts/{id}", s.handleDeleteContact)
		r.Get("/taps", s.handleListTaps)
		if s.injector != nil {
			r.Post("/tag", s.handleInjectTag)
		}
	})

	return r
}

func (s *Server) safeLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		logging.Allowlist(s.logger, map[string]string{
			"method":      r.Method,
			"route":       route,
			"status":      strconv.Itoa(ww.Status()),
			"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
			"ip_hash":     anonHash(clientIP(r)),
		})
	})
}

func (s *Server) rateLimit(group string) func(http.Handler) http.Handler {
	limiter := s.rateLimiters[group]
	if limiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := group + ":" + clientIP(r)
			if !limiter.Allow(key) {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate_limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
