package review_api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/reviews"
	"ms-volunteering/internal/utils"
)

type Handler struct {
	Store  reviews.Store
	Loader *reviews.Loader
	Logger *logger.Logger
}

func NewHandler(store reviews.Store, loader *reviews.Loader, log *logger.Logger) *Handler {
	return &Handler{Store: store, Loader: loader, Logger: log}
}

// RegisterRoutes registers /api/reviews. Refreshing needs a token.
func (h *Handler) RegisterRoutes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/api/reviews", func(r chi.Router) {
		r.Get("/rand", h.RandomReview)
		r.With(requireAuth).Post("/refresh", h.Refresh)
	})
}

func (h *Handler) RandomReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.Store.Random(r.Context())
	if errors.Is(err, reviews.ErrNoReviews) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.Logger.Error("REVIEWS", fmt.Sprintf("Failed to pick a review: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.WriteJSON(w, http.StatusOK, review)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	n, err := h.Loader.Refresh(r.Context())
	if err != nil {
		h.Logger.Error("REVIEWS", fmt.Sprintf("Refresh failed: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Failed to reload reviews")
		return
	}
	utils.WriteMessage(w, http.StatusOK, fmt.Sprintf("Loaded %d reviews", n))
}
