package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/events"
)

// MaxBatchSize bounds the number of jobs in one batch submission.
const MaxBatchSize = 50

// SubmitJobRequest is the request body for POST /api/jobs.
type SubmitJobRequest struct {
	Kind      string            `json:"kind"                 validate:"required,oneof=extract rewrite download"`
	Title     string            `json:"title,omitempty"      validate:"max=512"`
	Platform  string            `json:"platform,omitempty"   validate:"max=64"`
	Cover     string            `json:"cover,omitempty"`
	HistoryID string            `json:"history_id,omitempty" validate:"omitempty,uuid"`
	VideoInfo *domain.VideoInfo `json:"video_info,omitempty"`
	Params    JobParamsRequest  `json:"params"`
	LocalData *LocalDataRequest `json:"local_data,omitempty"`
}

// JobParamsRequest carries kind-specific job arguments.
type JobParamsRequest struct {
	RewriteStyle string                 `json:"rewrite_style,omitempty" validate:"max=64"`
	AIModel      string                 `json:"ai_model,omitempty"      validate:"max=64"`
	Download     *DownloadParamsRequest `json:"download,omitempty"`
}

// DownloadParamsRequest are the arguments of a download job.
type DownloadParamsRequest struct {
	URL        string   `json:"url"                   validate:"omitempty,url"`
	FileName   string   `json:"file_name"             validate:"max=255"`
	BackupURLs []string `json:"backup_urls,omitempty" validate:"omitempty,max=16,dive,url"`
}

// LocalDataRequest is the payload of a job working on an uploaded file or
// ad hoc text.
type LocalDataRequest struct {
	IsLocal         bool   `json:"is_local"`
	LocalType       string `json:"local_type,omitempty"        validate:"omitempty,oneof=audio text"`
	LocalAudioPath  string `json:"local_audio_path,omitempty"`
	LocalSourceType string `json:"local_source_type,omitempty" validate:"omitempty,oneof=audio video"`
	OriginalText    string `json:"original_text,omitempty"`
	Style           string `json:"style,omitempty"             validate:"max=64"`
	Model           string `json:"model,omitempty"             validate:"max=64"`
	CustomPrompt    string `json:"custom_prompt,omitempty"     validate:"max=2000"`
}

// ToSpec converts the request into a job spec. The request must already be
// validated.
func (r SubmitJobRequest) ToSpec() domain.JobSpec {
	spec := domain.JobSpec{
		Kind:      domain.JobKind(r.Kind),
		Title:     r.Title,
		Platform:  r.Platform,
		Cover:     r.Cover,
		VideoInfo: r.VideoInfo,
		Params: domain.JobParams{
			RewriteStyle: r.Params.RewriteStyle,
			AIModel:      r.Params.AIModel,
		},
	}
	if r.HistoryID != "" {
		// Validated as a uuid already
		spec.HistoryID = uuid.MustParse(r.HistoryID)
	}
	if d := r.Params.Download; d != nil {
		spec.Params.Download = &domain.DownloadParams{
			URL:        d.URL,
			FileName:   d.FileName,
			BackupURLs: d.BackupURLs,
		}
	}
	if l := r.LocalData; l != nil {
		spec.LocalData = &domain.LocalData{
			IsLocal:         l.IsLocal,
			LocalType:       l.LocalType,
			LocalAudioPath:  l.LocalAudioPath,
			LocalSourceType: l.LocalSourceType,
			OriginalText:    l.OriginalText,
			Style:           l.Style,
			Model:           l.Model,
			CustomPrompt:    l.CustomPrompt,
		}
	}
	return spec
}

// SubmitBatchRequest is the request body for POST /api/jobs/batch. Jobs are
// admitted as one batch, so the last job in the list is the first to start.
type SubmitBatchRequest struct {
	Jobs []SubmitJobRequest `json:"jobs" validate:"required,min=1,max=50,dive"`
}

// SubmitJobResponse returns the id of a submitted job.
type SubmitJobResponse struct {
	ID string `json:"id"`
}

// SubmitBatchResponse returns the ids of a submitted batch, in request order.
type SubmitBatchResponse struct {
	IDs []string `json:"ids"`
}

// JobListResponse lists job snapshots, newest first.
type JobListResponse struct {
	Jobs  []domain.Job `json:"jobs"`
	Total int          `json:"total"`
}

// ClearResponse reports how many finished jobs were removed.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// QueueResponse summarizes the queue for the UI's status bar.
type QueueResponse struct {
	Total          int  `json:"total"`
	Queued         int  `json:"queued"`
	Running        int  `json:"running"`
	MaxConcurrent  int  `json:"max_concurrent"`
	HasPendingWork bool `json:"has_pending_work"`
}

// ConcurrencyRequest is the request body for PUT /api/settings/concurrency.
type ConcurrencyRequest struct {
	MaxConcurrent int `json:"max_concurrent" validate:"gte=1,lte=32"`
}

// ConcurrencyResponse echoes the limit now in effect.
type ConcurrencyResponse struct {
	MaxConcurrent int `json:"max_concurrent"`
}

// HistoryListResponse lists history records, newest first.
type HistoryListResponse struct {
	Records []domain.HistoryRecord `json:"records"`
}

// EventsResponse returns the events after the client's cursor. Clients pass
// LastSeq as since on their next poll.
type EventsResponse struct {
	Events  []events.JobEvent `json:"events"`
	LastSeq int64             `json:"last_seq"`
}

// AudioUploadResponse describes a stored upload. Ref goes into a job's
// local_data.local_audio_path.
type AudioUploadResponse struct {
	Ref      string `json:"ref"`
	FileType string `json:"file_type"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}
