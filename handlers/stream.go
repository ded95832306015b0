package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// minAdventureIDLength guards against obviously malformed stream targets
// before any backend call.
const minAdventureIDLength = 10

// StreamAdventure serves GET /api/adventure/stream/{adventureId}: a
// server-sent-event stream that polls the store and pushes the current turn
// whenever it changes, by id or by full serialized equality. Fetch failures
// are reported as error events without closing the stream. The connection
// ends on client disconnect or when the configured lifetime is reached.
func (h *Handler) StreamAdventure(w http.ResponseWriter, r *http.Request) {
	adventureID := mux.Vars(r)["adventureId"]
	if len(adventureID) < minAdventureIDLength {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid adventure id")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorMessage(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.cfg.StreamPollInterval)
	defer ticker.Stop()
	lifetime := time.NewTimer(h.cfg.StreamMaxLifetime)
	defer lifetime.Stop()

	var last []byte
	emit := func() {
		turn, err := h.sessions.CurrentTurn(r.Context(), adventureID)
		if err != nil {
			log.Printf("[STREAM] fetch failed for adventure %s: %v", adventureID, err)
			fmt.Fprintf(w, "event: error\ndata: {\"error\": %q}\n\n", "failed to fetch turn")
			flusher.Flush()
			return
		}

		payload, err := json.Marshal(turn)
		if err != nil {
			log.Printf("[STREAM] encode failed for adventure %s: %v", adventureID, err)
			return
		}

		if bytes.Equal(payload, last) {
			return
		}
		last = payload

		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	emit()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-lifetime.C:
			return
		case <-ticker.C:
			emit()
		}
	}
}
