package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/api/shared"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/platform/logger"
)

// JobQueue is the part of the job queue the HTTP API drives.
type JobQueue interface {
	Submit(spec domain.JobSpec) (uuid.UUID, error)
	SubmitAll(specs []domain.JobSpec) ([]uuid.UUID, error)
	Remove(id uuid.UUID) error
	ClearFinished() int
	Retry(id uuid.UUID) error
	Jobs() []domain.Job
	Job(id uuid.UUID) (domain.Job, bool)
	Total() int
	QueuedJobs() []domain.Job
	RunningJobs() []domain.Job
	HasPendingWork() bool
	MaxConcurrent() int
	RunningCount() int
}

// JobHandler handles job and queue HTTP requests.
type JobHandler struct {
	queue JobQueue
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(queue JobQueue) *JobHandler {
	return &JobHandler{queue: queue}
}

// Submit handles POST /api/jobs. The job is queued and may start before the
// response is written; 202 Accepted reflects that work continues in the
// background.
func (h *JobHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	id, err := h.queue.Submit(req.ToSpec())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Debug("job accepted", "job_id", id, "job_kind", req.Kind)
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitJobResponse{ID: id.String()})
}

// SubmitBatch handles POST /api/jobs/batch.
func (h *JobHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	specs := make([]domain.JobSpec, 0, len(req.Jobs))
	for _, job := range req.Jobs {
		specs = append(specs, job.ToSpec())
	}

	ids, err := h.queue.SubmitAll(specs)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	resp := SubmitBatchResponse{IDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.IDs = append(resp.IDs, id.String())
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, resp)
}

// List handles GET /api/jobs. An optional status query parameter filters
// the list.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	var jobs []domain.Job
	switch status := domain.JobStatus(r.URL.Query().Get("status")); status {
	case "":
		jobs = h.queue.Jobs()
	case domain.JobStatusQueued:
		jobs = h.queue.QueuedJobs()
	case domain.JobStatusRunning:
		jobs = h.queue.RunningJobs()
	case domain.JobStatusSuccess, domain.JobStatusError:
		for _, job := range h.queue.Jobs() {
			if job.Status == status {
				jobs = append(jobs, job)
			}
		}
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid status filter")
		return
	}

	if jobs == nil {
		jobs = []domain.Job{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, JobListResponse{Jobs: jobs, Total: h.queue.Total()})
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	job, found := h.queue.Job(id)
	if !found {
		shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, job)
}

// Delete handles DELETE /api/jobs/{id}. Running jobs are refused with 409.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.queue.Remove(id); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Retry handles POST /api/jobs/{id}/retry.
func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.queue.Retry(id); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	job, found := h.queue.Job(id)
	if !found {
		// Removed between retry and lookup
		w.WriteHeader(http.StatusAccepted)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, job)
}

// ClearFinished handles POST /api/jobs/clear.
func (h *JobHandler) ClearFinished(w http.ResponseWriter, r *http.Request) {
	removed := h.queue.ClearFinished()
	shared.RespondWithJSON(w, r, http.StatusOK, ClearResponse{Removed: removed})
}

// Queue handles GET /api/queue.
func (h *JobHandler) Queue(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, QueueResponse{
		Total:          h.queue.Total(),
		Queued:         len(h.queue.QueuedJobs()),
		Running:        h.queue.RunningCount(),
		MaxConcurrent:  h.queue.MaxConcurrent(),
		HasPendingWork: h.queue.HasPendingWork(),
	})
}
