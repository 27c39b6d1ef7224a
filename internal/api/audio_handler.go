package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/phrazzld/clipscribe/internal/api/shared"
	"github.com/phrazzld/clipscribe/internal/platform/localfs"
)

// MaxUploadBytes bounds the size of an uploaded media file.
const MaxUploadBytes = 512 << 20

// uploadFormField is the multipart field carrying the file.
const uploadFormField = "file"

// AudioSaver stores uploaded media and returns a reference to it.
type AudioSaver interface {
	Save(name string, r io.Reader) (string, error)
}

// AudioHandler accepts local media uploads for extract jobs.
type AudioHandler struct {
	storage AudioSaver
}

// NewAudioHandler creates a new AudioHandler.
func NewAudioHandler(storage AudioSaver) *AudioHandler {
	return &AudioHandler{storage: storage}
}

// Upload handles POST /api/audio with a multipart "file" field. The returned
// ref is what an extract job's local_data.local_audio_path expects.
func (h *AudioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "File is too large", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "A file field is required", err)
		return
	}
	defer func() { _ = file.Close() }()

	ref, err := h.storage.Save(header.Filename, file)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AudioUploadResponse{
		Ref:      ref,
		FileType: string(localfs.DetectFileType(header.Filename)),
	})
}
