package user_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
	"ms-volunteering/internal/users"
	"ms-volunteering/internal/users/service"
	"ms-volunteering/internal/utils"
)

type Handler struct {
	UserService *service.UserService
	Logger      *logger.Logger
}

func NewHandler(userService *service.UserService, log *logger.Logger) *Handler {
	return &Handler{UserService: userService, Logger: log}
}

// RegisterRoutes registers /api/users. Changing or removing a user needs a token.
func (h *Handler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
		r.Get("/{id}", h.GetUser)
		r.With(requireAuth).Put("/{id}", h.UpdateUser)
		r.With(requireAuth).Delete("/{id}", h.DeleteUser)
	})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.UserService.CreateUser(r.Context(), body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.response(user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]models.UserResponse, 0, len(list))
	for i := range list {
		out = append(out, h.response(&list[i]))
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	user, err := h.UserService.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.response(user))
}

// UpdateUser accepts name, uid and password.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var data map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.UserService.UpdateUser(r.Context(), id, data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{
		Message: fmt.Sprintf("User %s updated", user.UID),
		User:    h.response(user),
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	user, err := h.UserService.DeleteUser(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.MessageResponse{
		Message: fmt.Sprintf("Deleted user %s and %d events", user.UID, len(user.Events)),
		User:    h.response(user),
	})
}

func (h *Handler) response(user *models.User) models.UserResponse {
	return models.NewUserResponse(user, time.Now())
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if ve, ok := users.IsValidation(err); ok {
		utils.WriteMessage(w, http.StatusBadRequest, ve.Message)
		return
	}
	switch {
	case errors.Is(err, users.ErrDuplicateUID):
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrUserNotFound):
		utils.WriteMessage(w, http.StatusNotFound, err.Error())
	default:
		h.Logger.Error("USER", err.Error())
		utils.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, "User id must be an integer")
		return 0, false
	}
	return id, true
}
