// Package api translates the job-submit and job-poll operations to and
// from the HTTP wire.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/petcord/compositor/internal/logger"
	"github.com/petcord/compositor/internal/model"
	"github.com/petcord/compositor/internal/registry"
	"github.com/petcord/compositor/internal/renderer"
)

// statusRecorder captures the response status written by the handler
// chain, so access logging can report it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// WithAccessLog wraps a handler (typically the Server's mux) to log
// method, path, status, and duration for every request, matching the
// teacher's verbose "[Component] action: detail" texture.
func WithAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Infof("[API] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// Server exposes the job-submit/poll/artifact-serve HTTP surface.
type Server struct {
	planner       *registry.Planner
	apiToken      string
	jsonBodyLimit int64
	outputDir     string
	startedAt     time.Time
}

// Config configures a Server.
type Config struct {
	Planner       *registry.Planner
	APIToken      string
	JSONBodyLimit int64
	OutputDir     string
}

// New builds a Server; register its handlers on a mux with Routes.
func New(cfg Config) *Server {
	return &Server{
		planner:       cfg.Planner,
		apiToken:      cfg.APIToken,
		jsonBodyLimit: cfg.JSONBodyLimit,
		outputDir:     cfg.OutputDir,
		startedAt:     time.Now(),
	}
}

// Routes registers the service's HTTP surface on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /jobs", s.withAuth(s.handleSubmit))
	mux.HandleFunc("GET /jobs/{id}", s.withAuth(s.handlePoll))
	mux.Handle("GET /out/", http.StripPrefix("/out/", s.cacheForeverFileServer()))
}

func (s *Server) cacheForeverFileServer() http.Handler {
	fs := http.FileServer(http.Dir(s.outputDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	})
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	if s.apiToken == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.apiToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "compositor",
		"uptime":  time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.jsonBodyLimit)
	defer body.Close()

	var job model.Job
	if err := json.NewDecoder(body).Decode(&job); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty request body")
			return
		}
		writeError(w, http.StatusBadRequest, "malformed json: "+err.Error())
		return
	}

	jobID, err := s.planner.Submit(job)
	if err != nil {
		if errors.Is(err, renderer.ErrInvalidPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Errorf("[API] submit failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"jobId": jobID})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	rec, err := s.planner.Poll(jobID)
	if err != nil {
		if errors.Is(err, renderer.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		logger.Errorf("[API] poll failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("[API] failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
