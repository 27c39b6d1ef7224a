package api

import (
	"net/http"

	"github.com/phrazzld/clipscribe/internal/api/shared"
	"github.com/phrazzld/clipscribe/internal/domain"
	"github.com/phrazzld/clipscribe/internal/store"
)

// DefaultHistoryPageSize is the number of records listed when no limit is given.
const DefaultHistoryPageSize = 50

// HistoryHandler handles history record requests.
type HistoryHandler struct {
	history store.HistoryStore
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(history store.HistoryStore) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List handles GET /api/history?limit=N.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultHistoryPageSize)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	records, err := h.history.List(r.Context(), int(limit))
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HistoryListResponse{Records: records})
}

// Get handles GET /api/history/{id}.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	record, err := h.history.Find(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, record)
}

// Delete handles DELETE /api/history/{id}.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.history.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
