package api

import (
	"net/http"

	"github.com/phrazzld/clipscribe/internal/api/shared"
	"github.com/phrazzld/clipscribe/internal/platform/logger"
)

// ConcurrencySetting reads and replaces the live concurrency limit.
type ConcurrencySetting interface {
	MaxConcurrent() int
	SetMaxConcurrent(n int) error
}

// SettingsHandler handles runtime settings requests.
type SettingsHandler struct {
	limits ConcurrencySetting
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(limits ConcurrencySetting) *SettingsHandler {
	return &SettingsHandler{limits: limits}
}

// GetConcurrency handles GET /api/settings/concurrency.
func (h *SettingsHandler) GetConcurrency(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ConcurrencyResponse{MaxConcurrent: h.limits.MaxConcurrent()})
}

// SetConcurrency handles PUT /api/settings/concurrency. The new limit applies
// from the queue's next scheduling pass; running jobs are not interrupted.
func (h *SettingsHandler) SetConcurrency(w http.ResponseWriter, r *http.Request) {
	var req ConcurrencyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	previous := h.limits.MaxConcurrent()
	if err := h.limits.SetMaxConcurrent(req.MaxConcurrent); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("concurrency limit changed",
		"previous", previous,
		"max_concurrent", req.MaxConcurrent)
	shared.RespondWithJSON(w, r, http.StatusOK, ConcurrencyResponse{MaxConcurrent: h.limits.MaxConcurrent()})
}
