package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yegors/metar-fetcher/pkg/logger"
)

// Router wires the handlers into a chi mux
type Router struct {
	handler            *Handler
	gatherer           prometheus.Gatherer
	rateLimitPerMinute int
	logger             *logger.Logger
}

// NewRouter creates a router. gatherer may be nil to disable /metrics and a
// rateLimitPerMinute of 0 disables the per-client limit on /api.
func NewRouter(handler *Handler, gatherer prometheus.Gatherer, rateLimitPerMinute int, logger *logger.Logger) *Router {
	return &Router{
		handler:            handler,
		gatherer:           gatherer,
		rateLimitPerMinute: rateLimitPerMinute,
		logger:             logger.Named("api-router"),
	}
}

// Routes returns the HTTP handler with all routes configured
func (r *Router) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(r.requestLogger)
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", r.handler.Healthz)
	if r.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/api", func(api chi.Router) {
		// every /api request costs one upstream fetch
		if r.rateLimitPerMinute > 0 {
			api.Use(httprate.Limit(
				r.rateLimitPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByRealIP),
				httprate.WithLimitHandler(rateLimitExceeded),
			))
		}
		api.Get("/stations", r.handler.ListStations)
		api.Route("/metar/{station}", func(metar chi.Router) {
			metar.Get("/", r.handler.GetMETAR)
			metar.Get("/raw", r.handler.GetRawMETAR)
		})
		api.Get("/taf/{station}", r.handler.GetTAF)
	})

	return mux
}

// requestLogger logs one line per completed request
func (r *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		r.logger.Info("Request completed",
			logger.String("request_id", middleware.GetReqID(req.Context())),
			logger.String("method", req.Method),
			logger.String("path", req.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("remote_addr", req.RemoteAddr))
	})
}

func rateLimitExceeded(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded, try again later"})
}
