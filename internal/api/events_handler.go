package api

import (
	"net/http"

	"github.com/phrazzld/clipscribe/internal/api/shared"
	"github.com/phrazzld/clipscribe/internal/events"
)

// EventLog is a sequence-numbered log of recent job events.
type EventLog interface {
	Since(seq int64) []events.JobEvent
	LastSeq() int64
}

// EventsHandler serves job events to polling clients.
type EventsHandler struct {
	log EventLog
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(log EventLog) *EventsHandler {
	return &EventsHandler{log: log}
}

// Since handles GET /api/events?since=N. Events older than the buffer's
// capacity are gone; clients that fall behind see a gap in Seq.
func (h *EventsHandler) Since(w http.ResponseWriter, r *http.Request) {
	since, err := queryInt(r, "since", 0)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	// Events buffered between the two reads are returned and advance the cursor.
	last := h.log.LastSeq()
	evs := h.log.Since(since)
	if n := len(evs); n > 0 && evs[n-1].Seq > last {
		last = evs[n-1].Seq
	}

	shared.RespondWithJSON(w, r, http.StatusOK, EventsResponse{Events: evs, LastSeq: last})
}
