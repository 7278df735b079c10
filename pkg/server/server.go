// Package server exposes the message boundary over HTTP: requests are posted
// as JSON envelopes and outgoing messages stream as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"followscan/pkg/logger"
	"followscan/pkg/messages"
	"followscan/pkg/models"
	"followscan/pkg/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// Server is the HTTP surface of a hub
type Server struct {
	hub     *service.Hub
	metrics *service.Metrics
	router  chi.Router
	logger  logger.Logger
	http    *http.Server
	// heartbeat is the SSE keep-alive interval
	heartbeat time.Duration
}

// New creates a server. metrics may be nil.
func New(hub *service.Hub, metrics *service.Metrics, log logger.Logger) *Server {
	s := &Server{
		hub:       hub,
		metrics:   metrics,
		logger:    logger.OrGlobal(log).WithField("component", "server"),
		heartbeat: 15 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", s.instrument("/api/messages", s.handleMessage))
		r.Get("/events", s.handleEvents)
		r.Get("/accounts", s.instrument("/api/accounts", s.handleGetAccounts))
		r.Delete("/accounts", s.instrument("/api/accounts", s.handleClearAccounts))
		r.Route("/scans/{platform}", func(r chi.Router) {
			r.Get("/", s.instrument("/api/scans/{platform}", s.handleScanStatus))
			r.Post("/", s.instrument("/api/scans/{platform}", s.handleStartScan))
			r.Post("/stop", s.instrument("/api/scans/{platform}/stop", s.handleStopScan))
		})
	})

	s.router = r
}

func (s *Server) instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return h
	}
	return s.metrics.InstrumentHandler(path, h).ServeHTTP
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.LogComponentStart("server", map[string]interface{}{"addr": addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	logger.LogComponentStop("server", "shutdown")
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugWithFields("HTTP request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messages.Failed("Invalid request"))
		return
	}
	msg, err := messages.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messages.Failed(err.Error()))
		return
	}
	s.respond(w, s.hub.Handle(r.Context(), msg))
}

func (s *Server) handleGetAccounts(w http.ResponseWriter, r *http.Request) {
	p, ok := platformParam(w, r.URL.Query().Get("platform"))
	if !ok {
		return
	}
	filter, err := models.ParseFilterType(r.URL.Query().Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messages.Failed(err.Error()))
		return
	}

	resp := s.hub.Handle(r.Context(), messages.GetAccounts{Platform: p})
	if resp.Error == "" {
		resp = messages.WithAccounts(models.Filter(resp.Accounts, filter))
	}
	s.respond(w, resp)
}

func (s *Server) handleClearAccounts(w http.ResponseWriter, r *http.Request) {
	p, ok := platformParam(w, r.URL.Query().Get("platform"))
	if !ok {
		return
	}
	s.respond(w, s.hub.Handle(r.Context(), messages.ClearData{Platform: p}))
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	raw := map[string]interface{}{"type": messages.TypeStartScan, "platform": chi.URLParam(r, "platform")}
	var data json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, messages.Failed("Invalid request"))
		return
	}
	if len(data) > 0 {
		raw["data"] = data
	}
	env, err := json.Marshal(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messages.Failed("Invalid request"))
		return
	}
	msg, err := messages.Decode(env)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messages.Failed(err.Error()))
		return
	}
	resp := s.hub.Handle(r.Context(), msg)
	if resp.Error != "" {
		s.respond(w, resp)
		return
	}
	writeJSON(w, http.StatusAccepted, s.scanStatus(msg.Target()))
}

func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	p, ok := platformParam(w, chi.URLParam(r, "platform"))
	if !ok {
		return
	}
	s.respond(w, s.hub.Handle(r.Context(), messages.StopScan{Platform: p}))
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := platformParam(w, chi.URLParam(r, "platform"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.scanStatus(p))
}

type scanStatus struct {
	Platform  models.Platform   `json:"platform"`
	Status    models.ScanStatus `json:"status"`
	SessionID string            `json:"sessionId,omitempty"`
	StartedAt *time.Time        `json:"startedAt,omitempty"`
	Stopping  bool              `json:"stopping,omitempty"`
}

func (s *Server) scanStatus(p models.Platform) scanStatus {
	st := scanStatus{Platform: p, Status: models.StatusIdle}
	if sess := s.hub.Orchestrator().Active(p); sess != nil {
		started := sess.StartedAt
		st.Status = models.StatusScanning
		st.SessionID = sess.ID
		st.StartedAt = &started
		st.Stopping = sess.Stopped()
	}
	return st
}

// handleEvents streams outgoing messages as server-sent events until the client leaves
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, messages.Failed("Streaming unsupported"))
		return
	}
	filter, ok := platformParam(w, r.URL.Query().Get("platform"))
	if !ok {
		return
	}

	id := uuid.NewString()
	events, cancel := s.hub.Subscribe(64)
	defer cancel()

	log := s.logger.WithField("subscriber", id)
	log.Info("Event subscriber connected")
	defer log.Info("Event subscriber disconnected")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": subscriber %s\n\n", id)
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg, open := <-events:
			if !open {
				return
			}
			if filter != "" && msg.Target() != "" && msg.Target() != filter {
				continue
			}
			payload, err := messages.Encode(msg)
			if err != nil {
				log.WithError(err).Warn("Failed to encode event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type(), payload)
			flusher.Flush()
		}
	}
}

// --- Helpers ---

func (s *Server) respond(w http.ResponseWriter, resp messages.Response) {
	status := http.StatusOK
	if resp.Error != "" {
		status = http.StatusBadRequest
		if resp.Error != "Unknown message type" {
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, resp)
}

func platformParam(w http.ResponseWriter, value string) (models.Platform, bool) {
	if value == "" {
		return "", true
	}
	p, err := models.ParsePlatform(value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messages.Failed(err.Error()))
		return "", false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
