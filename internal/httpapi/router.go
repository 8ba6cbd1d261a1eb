package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/posdenous/naviya-launcher-sub002/internal/service"
)

const apiPrefix = "/guardian/api/v1"

// Router serves the guardian API on the standard library mux.
type Router struct {
	mux    *http.ServeMux
	svc    *service.GuardianService
	logger *zap.Logger
}

func NewRouter(svc *service.GuardianService, gatherer prometheus.Gatherer, logger *zap.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		svc:    svc,
		logger: logger,
	}
	r.registerCaregiverRoutes()
	r.registerFlagRoutes()
	r.registerContactRoutes()
	if gatherer != nil {
		r.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (r *Router) handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(sw, req)
	r.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", sw.status),
		zap.Duration("duration", time.Since(start)),
	)
}

// fail logs server-side failures and writes the error envelope.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error("Request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, Fail(msg))
}

func (r *Router) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, Fail(msg))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
