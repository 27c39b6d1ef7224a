package domain

import (
	"time"

	"github.com/google/uuid"
)

// TextNotRecognized is stored as the extracted text when transcription
// returns nothing.
const TextNotRecognized = "no speech recognized"

// HistoryRecord is the persisted result object jobs write extracted and
// rewritten text into. Jobs hold only its ID.
type HistoryRecord struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Platform        string    `json:"platform"`
	OriginalText    string    `json:"original_text,omitempty"`
	RewrittenText   string    `json:"rewritten_text,omitempty"`
	IsLocal         bool      `json:"is_local"`
	LocalType       string    `json:"local_type,omitempty"`
	LocalAudioPath  string    `json:"local_audio_path,omitempty"`
	LocalSourceType string    `json:"local_source_type,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HistoryFields is a partial update of a history record; nil fields are
// left unchanged.
type HistoryFields struct {
	Title           *string
	Platform        *string
	OriginalText    *string
	RewrittenText   *string
	IsLocal         *bool
	LocalType       *string
	LocalAudioPath  *string
	LocalSourceType *string
}

// Apply copies every non-nil field onto r and bumps UpdatedAt.
func (r *HistoryRecord) Apply(f HistoryFields) {
	setString(&r.Title, f.Title)
	setString(&r.Platform, f.Platform)
	setString(&r.OriginalText, f.OriginalText)
	setString(&r.RewrittenText, f.RewrittenText)
	setString(&r.LocalType, f.LocalType)
	setString(&r.LocalAudioPath, f.LocalAudioPath)
	setString(&r.LocalSourceType, f.LocalSourceType)
	if f.IsLocal != nil {
		r.IsLocal = *f.IsLocal
	}
	r.UpdatedAt = time.Now().UTC()
}

// NewHistoryRecord builds a record with a fresh ID from fields.
func NewHistoryRecord(f HistoryFields) *HistoryRecord {
	now := time.Now().UTC()
	r := &HistoryRecord{
		ID:        uuid.New(),
		CreatedAt: now,
	}
	r.Apply(f)
	return r
}

// Ptr returns a pointer to v. It keeps HistoryFields literals short.
func Ptr[T any](v T) *T {
	return &v
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
