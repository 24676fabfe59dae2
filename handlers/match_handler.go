package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/matchmaking-system/middleware"
	"github.com/Dosada05/matchmaking-system/services"
)

type MatchHandler struct {
	matches services.MatchService
}

func NewMatchHandler(matches services.MatchService) *MatchHandler {
	return &MatchHandler{matches: matches}
}

func matchUID(r *http.Request) (string, error) {
	uid := chi.URLParam(r, "matchUID")
	if uid == "" {
		return "", errors.New("missing match uid in URL")
	}
	return uid, nil
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, err := matchUID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.matches.Get(r.Context(), uid)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Vote(w http.ResponseWriter, r *http.Request) {
	uid, err := matchUID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Team int `json:"team"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.matches.Vote(r.Context(), uid, userID, input.Team)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ReportWin(w http.ResponseWriter, r *http.Request) {
	uid, err := matchUID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Team int `json:"team"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.matches.ReportWin(r.Context(), uid, input.Team)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	uid, err := matchUID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matches.Cancel(r.Context(), uid); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "match cancelled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ModifyResult(w http.ResponseWriter, r *http.Request) {
	uid, err := matchUID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Winner 0 or null voids the result.
	var input struct {
		Winner *int `json:"winner"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	winner := input.Winner
	if winner != nil && *winner == 0 {
		winner = nil
	}

	if err := h.matches.ModifyResult(r.Context(), uid, winner); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "result updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) History(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matches.History(r.Context(), tenantID, queueName, limitQuery(r, 20, 100))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
