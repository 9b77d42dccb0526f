package handlers

import (
	"net/http"

	"github.com/Dosada05/bracket-engine/services"
	"github.com/go-chi/chi/v5"
)

type RatingHandler struct {
	ratingService services.RatingService
}

func NewRatingHandler(rs services.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: rs}
}

// SnapshotHandler обрабатывает GET /api/ratings/{playerID}/{gameID}
func (h *RatingHandler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	record, err := h.ratingService.GetRatingSnapshot(r.Context(), chi.URLParam(r, "playerID"), chi.URLParam(r, "gameID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rating": record}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CasualHandler applies a game played outside any tournament.
func (h *RatingHandler) CasualHandler(w http.ResponseWriter, r *http.Request) {
	var input services.RatingMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	update, err := h.ratingService.ApplyCasual(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if update.Applied {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, jsonResponse{"rating_update": update}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
