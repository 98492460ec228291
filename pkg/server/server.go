package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/kimdw524/trendcast/internal/store"
	"github.com/kimdw524/trendcast/pkg/pipeline"
	"github.com/kimdw524/trendcast/pkg/trend"
)

// Server provides the HTTP API consumed by the dashboard and operators.
// Responses are always structured success/failure JSON; raw internal error
// values never cross this boundary.
type Server struct {
	store        store.Store
	engine       *trend.Engine
	orchestrator *pipeline.Orchestrator
	port         int
	autoJobs     bool
}

// New creates a new HTTP server. When autoJobs is set, a triggered
// discovery run also launches a video job for the selected topic.
func New(s store.Store, engine *trend.Engine, orchestrator *pipeline.Orchestrator, port int, autoJobs bool) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:        s,
		engine:       engine,
		orchestrator: orchestrator,
		port:         port,
		autoJobs:     autoJobs,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/topics", s.handleTopics)
	mux.HandleFunc("GET /api/v1/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/v1/jobs/active", s.handleActiveJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}/progress", s.handleJobProgress)
	mux.HandleFunc("POST /api/v1/jobs/{id}/retry", s.handleRetryJob)
	mux.HandleFunc("POST /api/v1/discover", s.handleDiscover)

	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("trendcast server listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 20)
	if err != nil {
		s.internalError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	var runID int64
	if v := r.URL.Query().Get("run_id"); v != "" {
		fmt.Sscanf(v, "%d", &runID)
	}

	topics, err := s.store.ListTopics(r.Context(), runID, 50)
	if err != nil {
		s.internalError(w, "list topics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  topics,
		"count": len(topics),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListRecentJobs(r.Context(), 50)
	if err != nil {
		s.internalError(w, "list jobs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  jobs,
		"count": len(jobs),
	})
}

func (s *Server) handleActiveJobs(w http.ResponseWriter, r *http.Request) {
	active := s.orchestrator.Progress().Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  active,
		"count": len(active),
	})
}

func (s *Server) handleJobProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	if p, ok := s.orchestrator.Progress().Get(jobID); ok {
		writeJSON(w, http.StatusOK, map[string]any{"data": p, "live": true})
		return
	}

	// No live entry (finished long ago, or before a restart): fall back to
	// the persisted job status.
	job, err := s.store.GetJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if err != nil {
		s.internalError(w, "get job", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"job_id":  job.ID,
			"stage":   job.Status,
			"message": job.ErrorMessage,
		},
		"live": false,
	})
}

func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := s.orchestrator.RetryJob(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "job cannot be retried in its current state"})
		return
	}

	// The new job runs detached from this request.
	go s.orchestrator.Run(context.Background(), job)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"data": map[string]string{
			"job_id": job.ID,
			"topic":  job.Topic,
		},
	})
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Discover(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"run_id": result.Run.ID,
				"status": result.Run.Status,
			},
			"error": "no topic could be selected from any source",
		})
		return
	}

	resp := map[string]any{
		"run_id":         result.Run.ID,
		"status":         result.Run.Status,
		"topics_found":   result.Run.TopicsFound,
		"selected_topic": result.Run.SelectedTopic,
	}

	if s.autoJobs && result.Selected != nil {
		job, err := s.orchestrator.CreateJob(r.Context(), result.Selected.CanonicalKeyword, result.Selected.Category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discover: create job error: %v\n", err)
		} else {
			go s.orchestrator.Run(context.Background(), job)
			resp["job_id"] = job.ID
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": resp})
}

// internalError logs the cause and answers with a generic message.
func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	fmt.Fprintf(os.Stderr, "server: %s error: %v\n", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
