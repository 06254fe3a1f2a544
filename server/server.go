// Package server is the HTTP API for remote operation of the pump. It forwards each request to the device over
// the serial link.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	ivadmin "github.com/TheBlueOompaLoompa/iv-admin"
	"github.com/TheBlueOompaLoompa/iv-admin/controller"
)

// Device is the pump as seen from the API
type Device interface {
	Start(context.Context, ivadmin.DosingRequest) error
	Stop(context.Context) error
	Reset(context.Context) error
	Status(context.Context) (ivadmin.Status, error)
}

// Server serves the API
type Server struct {
	device  Device
	logger  *zap.Logger
	metrics *metrics
	router  chi.Router
}

// New creates a Server. Metrics are registered on a registry of its own and served at /metrics.
func New(device Device, logger *zap.Logger) *Server {
	s := &Server{
		device:  device,
		logger:  logger,
		metrics: newMetrics(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(enableCORS)

	r.HandleFunc("/run", s.run)
	r.HandleFunc("/stop", s.stop)
	r.HandleFunc("/reset", s.reset)
	r.Get("/status", s.statusText)
	r.Get("/status.json", s.statusJSON)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			s.logger.Error("error shutting down server", zap.Error(err))
		}
	}()

	s.logger.Info("listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// run starts a dose from the volume and minutes query parameters
func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req, err := ivadmin.ParseRequest(query.Get("volume"), query.Get("minutes"))
	if err != nil {
		s.logger.Warn("invalid run request", zap.String("query", r.URL.RawQuery), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.device.Start(r.Context(), req)
	switch {
	case errors.Is(err, controller.ErrRefused):
		s.metrics.refused.Inc()
		s.logger.Warn("start refused by device", zap.Float64("volume_ml", req.VolumeML), zap.Int64("minutes", req.DurationMinutes))
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.deviceError(w, "start", err)
		return
	}

	s.metrics.starts.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	err := s.device.Stop(r.Context())
	if err != nil {
		s.deviceError(w, "stop", err)
		return
	}

	s.metrics.stops.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	err := s.device.Reset(r.Context())
	if err != nil {
		s.deviceError(w, "reset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusText answers in the "<volume>,<remainingSeconds>" form
func (s *Server) statusText(w http.ResponseWriter, r *http.Request) {
	status, ok := s.status(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, err := w.Write([]byte(ivadmin.StatusText(status)))
	if err != nil {
		s.logger.Error("error writing response", zap.Error(err))
	}
}

func (s *Server) statusJSON(w http.ResponseWriter, r *http.Request) {
	status, ok := s.status(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(status)
	if err != nil {
		s.logger.Error("error writing response", zap.Error(err))
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) (ivadmin.Status, bool) {
	status, err := s.device.Status(r.Context())
	if err != nil {
		s.deviceError(w, "status", err)
		return ivadmin.Status{}, false
	}

	s.metrics.observe(status)
	return status, true
}

func (s *Server) deviceError(w http.ResponseWriter, op string, err error) {
	s.metrics.serialErrors.Inc()
	s.logger.Error("device request failed", zap.String("op", op), zap.Error(err))
	http.Error(w, "device error: "+err.Error(), http.StatusBadGateway)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// enableCORS lets a page served from anywhere drive the pump, as the browser client does
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type metrics struct {
	registry *prometheus.Registry

	starts       prometheus.Counter
	stops        prometheus.Counter
	refused      prometheus.Counter
	serialErrors prometheus.Counter

	remaining prometheus.Gauge
	volume    prometheus.Gauge
	tripped   prometheus.Gauge
	running   prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		starts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iv_admin_starts_total",
			Help: "Doses started through the API",
		}),
		stops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iv_admin_stops_total",
			Help: "Stop requests sent through the API",
		}),
		refused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iv_admin_refused_total",
			Help: "Starts refused because the emergency stop was tripped",
		}),
		serialErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iv_admin_serial_errors_total",
			Help: "Requests that failed on the serial link",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iv_admin_remaining_seconds",
			Help: "Seconds left in the current dose",
		}),
		volume: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iv_admin_volume_ml",
			Help: "Volume of the current dosing request",
		}),
		tripped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iv_admin_tripped",
			Help: "1 while the emergency stop is latched",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iv_admin_running",
			Help: "1 while the motor is moving",
		}),
	}

	m.registry.MustRegister(m.starts, m.stops, m.refused, m.serialErrors, m.remaining, m.volume, m.tripped, m.running)
	return m
}

func (m *metrics) observe(s ivadmin.Status) {
	m.remaining.Set(float64(s.RemainingSeconds))
	m.volume.Set(s.VolumeML)
	m.tripped.Set(b2f(s.Tripped))
	m.running.Set(b2f(s.Running))
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
