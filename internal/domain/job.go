package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies which executor drives a job. It is fixed for the
// lifetime of the job.
type JobKind string

// Possible job kinds
const (
	JobKindExtract  JobKind = "extract"
	JobKindRewrite  JobKind = "rewrite"
	JobKindDownload JobKind = "download"
)

// JobKinds lists every known job kind.
var JobKinds = []JobKind{JobKindExtract, JobKindRewrite, JobKindDownload}

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindExtract, JobKindRewrite, JobKindDownload:
		return true
	default:
		return false
	}
}

// JobStatus represents the lifecycle state of a job
type JobStatus string

// Possible job status values
const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusError   JobStatus = "error"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusSuccess, JobStatusError:
		return true
	default:
		return false
	}
}

// IsFinished reports whether the status is terminal (success or error).
func (s JobStatus) IsFinished() bool {
	return s == JobStatusSuccess || s == JobStatusError
}

// IsPending reports whether the job still has work ahead of it.
func (s JobStatus) IsPending() bool {
	return s == JobStatusQueued || s == JobStatusRunning
}

// CanTransition enforces the job state machine edges:
//
//	queued  -> running
//	running -> success | error
//	error   -> queued (retry)
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusRunning
	case JobStatusRunning:
		return to == JobStatusSuccess || to == JobStatusError
	case JobStatusError:
		return to == JobStatusQueued
	default:
		return false
	}
}

// DefaultJobTitle is used when neither the spec nor its video info carry a title.
const DefaultJobTitle = "Untitled task"

// Local payload types carried by LocalData.LocalType.
const (
	LocalTypeAudio = "audio"
	LocalTypeText  = "text"
)

// DownloadParams are the invocation arguments of a download job.
type DownloadParams struct {
	URL        string   `json:"url"`
	FileName   string   `json:"file_name"`
	BackupURLs []string `json:"backup_urls,omitempty"`
}

// JobParams holds kind-specific invocation arguments.
type JobParams struct {
	RewriteStyle string          `json:"rewrite_style,omitempty"`
	AIModel      string          `json:"ai_model,omitempty"`
	Download     *DownloadParams `json:"download,omitempty"`
}

// Clone returns a deep copy of the params.
func (p JobParams) Clone() JobParams {
	out := p
	if p.Download != nil {
		d := *p.Download
		d.BackupURLs = cloneStrings(p.Download.BackupURLs)
		out.Download = &d
	}
	return out
}

// LocalData is the payload of jobs whose input is a local file or ad hoc
// text instead of a remote video.
type LocalData struct {
	IsLocal         bool   `json:"is_local"`
	LocalType       string `json:"local_type,omitempty"`
	LocalAudioPath  string `json:"local_audio_path,omitempty"`
	LocalSourceType string `json:"local_source_type,omitempty"`
	OriginalText    string `json:"original_text,omitempty"`
	Style           string `json:"style,omitempty"`
	Model           string `json:"model,omitempty"`
	CustomPrompt    string `json:"custom_prompt,omitempty"`
}

// IsLocalAudio reports whether the payload points at a local audio file.
func (d *LocalData) IsLocalAudio() bool {
	return d != nil && d.IsLocal && d.LocalType == LocalTypeAudio
}

// IsLocalText reports whether the payload carries ad hoc text.
func (d *LocalData) IsLocalText() bool {
	return d != nil && d.IsLocal && d.LocalType == LocalTypeText
}

// Clone returns a copy of the payload, or nil for a nil receiver.
func (d *LocalData) Clone() *LocalData {
	if d == nil {
		return nil
	}
	out := *d
	return &out
}

// JobSpec is what a caller submits to create a job.
type JobSpec struct {
	Kind      JobKind    `json:"kind"`
	Title     string     `json:"title,omitempty"`
	Platform  string     `json:"platform,omitempty"`
	Cover     string     `json:"cover,omitempty"`
	HistoryID uuid.UUID  `json:"history_id,omitempty"`
	VideoInfo *VideoInfo `json:"video_info,omitempty"`
	Params    JobParams  `json:"params"`
	LocalData *LocalData `json:"local_data,omitempty"`
}

// Job is one unit of scheduled asynchronous work. Identity, kind and display
// metadata never change after creation; status, error, progress and the
// history link are mutated only by the job queue.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	Kind         JobKind    `json:"kind"`
	Status       JobStatus  `json:"status"`
	Title        string     `json:"title"`
	Platform     string     `json:"platform"`
	Cover        string     `json:"cover"`
	VideoInfo    *VideoInfo `json:"video_info,omitempty"`
	Params       JobParams  `json:"params"`
	LocalData    *LocalData `json:"local_data,omitempty"`
	Error        string     `json:"error,omitempty"`
	Progress     int        `json:"progress"`
	ProgressText string     `json:"progress_text"`
	HistoryID    uuid.UUID  `json:"history_id"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewJob creates a queued Job from spec. The video info, params and local
// payload are deep-copied so later mutation of the caller's values cannot
// reach the job. Title, platform and cover default from the video info.
func NewJob(spec JobSpec) (*Job, error) {
	if !spec.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobKind, spec.Kind)
	}

	info := spec.VideoInfo.Clone()
	if info == nil {
		info = &VideoInfo{}
	}

	job := &Job{
		ID:        uuid.New(),
		Kind:      spec.Kind,
		Status:    JobStatusQueued,
		Title:     firstNonEmpty(spec.Title, info.Title, DefaultJobTitle),
		Platform:  firstNonEmpty(spec.Platform, info.Platform),
		Cover:     firstNonEmpty(spec.Cover, info.Cover),
		VideoInfo: info,
		Params:    spec.Params.Clone(),
		LocalData: spec.LocalData.Clone(),
		HistoryID: spec.HistoryID,
		CreatedAt: time.Now().UTC(),
	}

	return job, nil
}

// Clone returns a deep copy of the job, safe to hand to another goroutine.
func (j *Job) Clone() Job {
	out := *j
	out.VideoInfo = j.VideoInfo.Clone()
	out.Params = j.Params.Clone()
	out.LocalData = j.LocalData.Clone()
	return out
}

// Transition moves the job to status to, returning ErrInvalidTransition when
// the state machine does not allow it.
func (j *Job) Transition(to JobStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidJobStatus, to)
	}
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	return nil
}

// ResetProgress restores progress fields to their initial values.
func (j *Job) ResetProgress() {
	j.Progress = 0
	j.ProgressText = ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
