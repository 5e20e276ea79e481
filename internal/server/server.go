// Package server exposes device state and the ingestion pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/synheart/synheart-stress/internal/encoding"
	"github.com/synheart/synheart-stress/internal/models"
	"github.com/synheart/synheart-stress/internal/state"
)

const maxBodyBytes = 1 << 20

// Ingester turns a raw sample into the reading now cached in device state.
type Ingester interface {
	Ingest(ctx context.Context, sample models.RawSample) (models.Reading, error)
}

// Config holds the HTTP server configuration
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string
	Version     string
	// Models lists the loaded classifier names for the info endpoints.
	Models []string
}

// Server is the device-facing and dashboard-facing HTTP API.
type Server struct {
	config   Config
	state    *state.DeviceState
	ingester Ingester
	streams  map[string]http.Handler
	server   *http.Server
	logger   *zap.Logger
}

// NewServer creates a new server. A nil logger discards output.
func NewServer(config Config, st *state.DeviceState, ingester Ingester, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config:   config,
		state:    st,
		ingester: ingester,
		streams:  make(map[string]http.Handler),
		logger:   logger,
	}
}

// Mount registers a push endpoint such as /ws or /events. Call before
// Handler or Start.
func (s *Server) Mount(path string, h http.Handler) {
	s.streams[path] = h
}

// Handler builds the routed handler with CORS and access logging applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/set-interval", s.handleSetInterval).Methods(http.MethodPost)
	r.HandleFunc("/sensor-control", s.handleSensorControl).Methods(http.MethodPost)
	r.HandleFunc("/display-mode", s.handleDisplayMode).Methods(http.MethodPost)
	r.HandleFunc("/recalibrate", s.handleRecalibrate).Methods(http.MethodPost)
	r.HandleFunc("/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	for path, h := range s.streams {
		r.Handle(path, h).Methods(http.MethodGet)
	}
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Accept"}),
	)

	access := zap.NewStdLog(s.logger.Named("http")).Writer()
	return handlers.LoggingHandler(access, cors(r))
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.GetAddress()))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetAddress returns the server address
func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Debug("read predict body", zap.Error(err))
	}

	// Malformed bodies degrade to defaults, which is the Idle disposition.
	sample, err := models.ParseSample(body)
	if err != nil {
		s.logger.Debug("malformed predict body, using defaults", zap.Error(err))
	}

	// A scoring failure still answers 200 with the cached reading so the
	// device keeps following the controls it carries.
	reading, err := s.ingester.Ingest(r.Context(), sample)
	if err != nil {
		s.logger.Error("ingest failed, returning cached reading", zap.Error(err))
	}

	s.writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var req models.IntervalRequest
	s.decodeControl(r, &req)

	interval := s.state.Controls().SendInterval
	if req.Interval != nil {
		interval = s.state.SetInterval(*req.Interval)
	}
	s.writeJSON(w, http.StatusOK, models.IntervalResponse{Status: models.StatusSuccess, Interval: interval})
}

func (s *Server) handleSensorControl(w http.ResponseWriter, r *http.Request) {
	var req models.SensorControlRequest
	s.decodeControl(r, &req)

	active := s.state.Controls().IsSensorActive
	if req.Active != nil {
		active = s.state.SetActive(*req.Active)
	}
	s.writeJSON(w, http.StatusOK, models.SensorControlResponse{Status: models.StatusSuccess, IsSensorActive: active})
}

func (s *Server) handleDisplayMode(w http.ResponseWriter, r *http.Request) {
	var req models.DisplayModeRequest
	s.decodeControl(r, &req)

	mode := s.state.Controls().DisplayMode
	if req.Mode != nil {
		mode = s.state.SetDisplayMode(*req.Mode)
	}
	s.writeJSON(w, http.StatusOK, models.DisplayModeResponse{Status: models.StatusSuccess, Mode: mode})
}

func (s *Server) handleRecalibrate(w http.ResponseWriter, r *http.Request) {
	s.state.TriggerRecalibration()
	s.writeJSON(w, http.StatusOK, models.RecalibrateResponse{
		Status:  models.StatusSuccess,
		Message: "Recalibration triggered",
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	enc := encoding.ForAccept(r.Header.Get("Accept"))
	data, err := enc.Encode(s.state.Snapshot())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to encode snapshot: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	latest := s.state.Latest()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"models":        s.config.Models,
		"last_updated":  latest.LastUpdated,
		"feed_dropped":  s.state.Dropped(),
		"sensor_active": latest.IsSensorActive,
		"display_mode":  latest.DisplayMode,
		"send_interval": latest.SendInterval,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	endpoints := []string{
		"POST /predict",
		"POST /set-interval",
		"POST /sensor-control",
		"POST /display-mode",
		"POST /recalibrate",
		"GET /latest",
		"GET /health",
	}
	for path := range s.streams {
		endpoints = append(endpoints, "GET "+path)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":   "synheart-stress",
		"version":   s.config.Version,
		"models":    s.config.Models,
		"endpoints": endpoints,
	})
}

// decodeControl reads an optional JSON body; absent or malformed fields are
// left nil and the control keeps its current value.
func (s *Server) decodeControl(r *http.Request, v any) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		return
	}
	if err := json.Unmarshal(body, v); err != nil {
		s.logger.Debug("malformed control body", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
