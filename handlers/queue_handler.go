package handlers

import (
	"net/http"

	"github.com/Dosada05/matchmaking-system/middleware"
	"github.com/Dosada05/matchmaking-system/services"
)

type QueueHandler struct {
	admission services.AdmissionService
}

func NewQueueHandler(admission services.AdmissionService) *QueueHandler {
	return &QueueHandler{admission: admission}
}

func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	state, err := h.admission.Join(r.Context(), tenantID, queueName, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"queue": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	state, err := h.admission.Leave(r.Context(), tenantID, queueName, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"queue": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QueueHandler) State(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	state, err := h.admission.State(r.Context(), tenantID, queueName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"queue": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QueueHandler) ForceAdd(w http.ResponseWriter, r *http.Request) {
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

	state, err := h.admission.ForceAdd(r.Context(), tenantID, queueName, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"queue": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QueueHandler) ForceRemove(w http.ResponseWriter, r *http.Request) {
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

	state, err := h.admission.ForceRemove(r.Context(), tenantID, queueName, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"queue": state}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QueueHandler) Clear(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	cleared, err := h.admission.Clear(r.Context(), tenantID, queueName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"cleared": cleared}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QueueHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, true)
}

func (h *QueueHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, false)
}

func (h *QueueHandler) setLocked(w http.ResponseWriter, r *http.Request, locked bool) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.admission.SetLocked(r.Context(), tenantID, queueName, locked); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"locked": locked}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *QueueHandler) Activity(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	activity, err := h.admission.Activity(r.Context(), tenantID, queueName, limitQuery(r, 50, 200))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"activity": activity}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
