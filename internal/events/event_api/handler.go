package event_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-volunteering/internal/auth"
	"ms-volunteering/internal/events"
	"ms-volunteering/internal/events/service"
	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
	"ms-volunteering/internal/sse"
	"ms-volunteering/internal/utils"
)

// Handler serves /api/events.
type Handler struct {
	EventService *service.EventService
	Logger       *logger.Logger
	// Changes serves the live change streams when set.
	Changes *sse.Handler
}

func NewHandler(eventService *service.EventService, log *logger.Logger) *Handler {
	return &Handler{EventService: eventService, Logger: log}
}

// RegisterRoutes registers the event routes. requireAuth guards the writes
// that need a logged in user.
func (h *Handler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/api/events", func(r chi.Router) {
		r.With(requireAuth).Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Put("/", h.UpdateEvent)
		r.With(requireAuth).Delete("/", h.DeleteEvent)
		r.Get("/query", h.QueryEvents)
		r.Get("/get_by_id/{id}", h.EventsByOwner)
		r.Get("/{id}/qrcode", h.EventQRCode)
		r.With(requireAuth).Post("/checkin", h.CheckIn)
		if h.Changes != nil {
			r.Get("/changes", h.Changes.StreamAll)
			r.Get("/{id}/changes", h.Changes.StreamEvent)
		}
	})
}

// CreateEvent expects {title, description, address, zipcode, agegroup, date}.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), body)
	if err != nil {
		if errors.Is(err, events.ErrCreateFailed) {
			title, _ := body["title"].(string)
			utils.WriteMessage(w, http.StatusBadRequest, fmt.Sprintf("Error creating %s", title))
			return
		}
		h.writeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.NewEventResponse(event))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.EventService.ListEvents(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.NewEventResponses(list))
}

// UpdateEvent expects {id, data}; only whitelisted keys in data are applied.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID   json.RawMessage            `json:"id"`
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, err := parseID(body.ID)
	if err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.EventService.UpdateEvent(r.Context(), id, body.Data)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := models.NewEventResponse(event)
	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{
		Message: fmt.Sprintf("Event %d updated", event.ID),
		Event:   response,
	})
}

// DeleteEvent expects {id}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, err := parseID(body.ID)
	if err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.EventService.DeleteEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{
		Message: fmt.Sprintf("Deleted event %d: %s", event.ID, event.Title),
		Event:   models.NewEventResponse(event),
	})
}

// QueryEvents filters unclaimed events by title, description, address and zipcode.
func (h *Handler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := events.ParseFilter(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}

	list, err := h.EventService.QueryEvents(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.NewEventResponses(list))
}

// EventsByOwner lists the events claimed by a user. "null" lists unclaimed ones.
func (h *Handler) EventsByOwner(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	var owner *int64
	if !strings.EqualFold(raw, "null") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			utils.WriteMessage(w, http.StatusBadRequest, "User id must be an integer")
			return
		}
		owner = &id
	}

	list, err := h.EventService.EventsByOwner(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.NewEventResponses(list))
}

// EventQRCode returns the PNG check-in code of an event.
func (h *Handler) EventQRCode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, "Event id must be an integer")
		return
	}

	png, err := h.EventService.EventQRCode(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// CheckIn expects {code}, the text of an event check-in QR code.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		utils.WriteMessage(w, http.StatusBadRequest, "Check-in code is missing")
		return
	}

	event, err := h.EventService.CheckIn(r.Context(), body.Code, auth.CurrentUser(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{
		Message: fmt.Sprintf("Checked in to event %d: %s", event.ID, event.Title),
		Event:   models.NewEventResponse(event),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if ve, ok := events.IsValidation(err); ok {
		utils.WriteMessage(w, http.StatusBadRequest, ve.Message)
		return
	}
	if errors.Is(err, events.ErrEventNotFound) {
		utils.WriteMessage(w, http.StatusNotFound, err.Error())
		return
	}
	if errors.Is(err, events.ErrInvalidCheckIn) {
		utils.WriteMessage(w, http.StatusBadRequest, events.ErrInvalidCheckIn.Error())
		return
	}
	if errors.Is(err, events.ErrNotEventOwner) {
		utils.WriteMessage(w, http.StatusForbidden, events.ErrNotEventOwner.Error())
		return
	}
	h.Logger.Error("EVENT", err.Error())
	utils.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
}

// parseID accepts a JSON integer or a string holding one.
func parseID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("Event id is missing")
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return id, nil
		}
	}
	return 0, errors.New("Event id must be an integer")
}
