package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
	"ms-volunteering/internal/utils"
)

// Handler streams event changes as Server-Sent Events.
type Handler struct {
	Emitter *ChangeEmitter
	Logger  *logger.Logger
}

func NewHandler(emitter *ChangeEmitter, log *logger.Logger) *Handler {
	return &Handler{Emitter: emitter, Logger: log}
}

// StreamAll streams every created, updated and deleted event.
func (h *Handler) StreamAll(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteMessage(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	setupSSEHeaders(w)
	changes := h.Emitter.Subscribe(r.Context())

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to event changes (%d clients)", h.Emitter.ClientCount()))

	h.stream(w, r, flusher, changes)
}

// StreamEvent streams the changes of a single event.
func (h *Handler) StreamEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, "Event id must be an integer")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteMessage(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	setupSSEHeaders(w)
	changes := h.Emitter.SubscribeToEvent(r.Context(), eventID)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"eventID\":%d}\n\n", eventID)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to changes of event %d (%d clients)", eventID, h.Emitter.ClientCount()))

	h.stream(w, r, flusher, changes)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, flusher http.Flusher, changes <-chan models.EventChange) {
	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize event change: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Action, data)
			flusher.Flush()
		case <-r.Context().Done():
			h.Logger.Debug("SSE", "Client disconnected from event changes")
			return
		}
	}
}

// setupSSEHeaders also lifts the server write deadline, which would
// otherwise cut the stream.
func setupSSEHeaders(w http.ResponseWriter) {
	// writers without deadline support (test recorders) just keep streaming
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}
