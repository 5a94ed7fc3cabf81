package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanheo/podwire/internal/models"
	"github.com/evanheo/podwire/internal/pipeline"
	"github.com/evanheo/podwire/internal/repositories"
	"github.com/evanheo/podwire/internal/shared"
)

// Supervisor is the slice of the pipeline supervisor the HTTP surface needs.
type Supervisor interface {
	Trigger() error
	Status() pipeline.Status
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// PipelineHandler exposes supervisor status and manual triggering.
type PipelineHandler struct {
	supervisor Supervisor
}

// NewPipelineHandler creates a handler for the pipeline endpoints.
func NewPipelineHandler(supervisor Supervisor) *PipelineHandler {
	return &PipelineHandler{supervisor: supervisor}
}

// Routes returns the path patterns this handler serves.
func (h *PipelineHandler) Routes() []string {
	return []string{"/pipeline/status", "/pipeline/trigger"}
}

func (h *PipelineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/pipeline/status" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.supervisor.Status())
	case r.URL.Path == "/pipeline/trigger" && r.Method == http.MethodPost:
		h.trigger(w)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// trigger starts the pipeline; a busy supervisor maps to 409.
func (h *PipelineHandler) trigger(w http.ResponseWriter) {
	if err := h.supervisor.Trigger(); err != nil {
		if errors.Is(err, shared.ErrPipelineBusy) {
			writeError(w, http.StatusConflict, "pipeline is already running")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, h.supervisor.Status())
}

// jobResponse is the wire form of a job.
type jobResponse struct {
	ID                string    `json:"id"`
	PlaylistID        string    `json:"playlist_id"`
	Action            string    `json:"action"`
	Status            string    `json:"status"`
	ShouldUpload      bool      `json:"should_upload"`
	Note              string    `json:"note,omitempty"`
	ProgressTotal     int       `json:"progress_total"`
	ProgressCompleted int       `json:"progress_completed"`
	CurrentTask       string    `json:"current_task,omitempty"`
	ProgressMessage   string    `json:"progress_message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toJobResponse(job *models.Job) jobResponse {
	return jobResponse{
		ID:                job.ID,
		PlaylistID:        job.PlaylistID,
		Action:            job.Action,
		Status:            job.Status.String(),
		ShouldUpload:      job.ShouldUpload,
		Note:              job.Note,
		ProgressTotal:     job.ProgressTotal,
		ProgressCompleted: job.ProgressCompleted,
		CurrentTask:       job.CurrentTask,
		ProgressMessage:   job.ProgressMessage,
		CreatedAt:         job.CreatedAt,
		UpdatedAt:         job.UpdatedAt,
	}
}

// JobsHandler lists jobs and accepts cancellation requests.
type JobsHandler struct {
	jobs *repositories.JobRepository
}

// NewJobsHandler creates a handler for the job endpoints.
func NewJobsHandler(jobs *repositories.JobRepository) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Routes returns the path patterns this handler serves.
func (h *JobsHandler) Routes() []string {
	return []string{"/jobs", "/jobs/"}
}

func (h *JobsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/jobs" && r.Method == http.MethodGet:
		h.list(w)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/cancel"):
		h.cancel(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *JobsHandler) list(w http.ResponseWriter) {
	jobs, err := h.jobs.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	responses := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, toJobResponse(job))
	}
	writeJSON(w, http.StatusOK, responses)
}

// cancel handles POST /jobs/{id}/cancel.
func (h *JobsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/cancel")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.jobs.RequestCancel(id); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, shared.ErrInvalidInput):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	job, err := h.jobs.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

// Routes returns the path patterns this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LoggingMiddleware logs each request with method, path, status, and elapsed
// time.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// NewRouter assembles the automation service's HTTP surface.
func NewRouter(supervisor Supervisor, jobs *repositories.JobRepository, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	if logger != nil {
		router.Use(LoggingMiddleware(logger))
	}
	router.Handler(NewPipelineHandler(supervisor))
	router.Handler(NewJobsHandler(jobs))
	router.Handler(&HealthHandler{})
	return router
}
