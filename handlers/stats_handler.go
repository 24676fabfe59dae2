package handlers

import (
	"net/http"

	"github.com/Dosada05/matchmaking-system/services"
)

type StatsHandler struct {
	ratings services.RatingService
}

func NewStatsHandler(ratings services.RatingService) *StatsHandler {
	return &StatsHandler{ratings: ratings}
}

func (h *StatsHandler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := intParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.ratings.Stats(r.Context(), tenantID, queueName, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.ratings.Leaderboard(r.Context(), tenantID, queueName, limitQuery(r, 10, 100))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StatsHandler) GlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.ratings.GlobalLeaderboard(r.Context(), limitQuery(r, 10, 100))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
