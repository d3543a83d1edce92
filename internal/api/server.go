package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tada-pipeline/internal/delivery"
	"tada-pipeline/internal/realtime"
	"tada-pipeline/internal/runtime"
	"tada-pipeline/internal/store"
)

// Server is the control-plane HTTP surface: pipeline CRUD, stats, and the
// realtime websocket endpoint.
type Server struct {
	orch  *runtime.Orchestrator
	store *store.Store
	hub   *realtime.Hub
	auth  *AuthMiddleware
	svix  *delivery.SvixBackend

	httpServer *http.Server
}

// Config for the control-plane server.
type Config struct {
	Port           int
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int

	// Svix, when set, has webhook endpoints synced on pipeline writes so the
	// hosted delivery backend stays current.
	Svix *delivery.SvixBackend
}

func NewServer(orch *runtime.Orchestrator, st *store.Store, hub *realtime.Hub, cfg Config) *Server {
	s := &Server{
		orch:  orch,
		store: st,
		hub:   hub,
		auth:  NewAuthMiddleware(cfg.JWTSecret, st.LookupAPIKey),
		svix:  cfg.Svix,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", hub.ServeWS)

	v1 := r.PathPrefix("/v1").Subrouter()
	if cfg.RateLimitRPS > 0 {
		limiter := newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		v1.Use(limiter.middleware)
	}
	v1.Use(s.auth.Middleware)
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	v1.HandleFunc("/pipelines", s.handleListPipelines).Methods(http.MethodGet)
	v1.HandleFunc("/pipelines", s.handleCreatePipeline).Methods(http.MethodPost)
	v1.HandleFunc("/pipelines/{id}", s.handleGetPipeline).Methods(http.MethodGet)
	v1.HandleFunc("/pipelines/{id}", s.handleUpdatePipeline).Methods(http.MethodPut)
	v1.HandleFunc("/pipelines/{id}", s.handleDeletePipeline).Methods(http.MethodDelete)
	v1.HandleFunc("/pipelines/{id}/pause", s.handlePausePipeline).Methods(http.MethodPost)
	v1.HandleFunc("/pipelines/{id}/resume", s.handleResumePipeline).Methods(http.MethodPost)
	v1.HandleFunc("/pipelines/{id}/test", s.handleTestPipeline).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	log.Printf("[api] listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("[api] shutdown: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Stats().Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
