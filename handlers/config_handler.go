package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/matchmaking-system/models"
	"github.com/Dosada05/matchmaking-system/services"
)

// ConfigHandler covers the staff-facing queue administration surface:
// queue settings, map pools, eligibility lists, rank bands, and manual
// rating adjustments.
type ConfigHandler struct {
	configs services.ConfigService
	ranks   services.RankService
	ratings services.RatingService
}

func NewConfigHandler(configs services.ConfigService, ranks services.RankService, ratings services.RatingService) *ConfigHandler {
	return &ConfigHandler{
		configs: configs,
		ranks:   ranks,
		ratings: ratings,
	}
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	cfg, err := h.configs.Get(r.Context(), tenantID, queueName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"config": cfg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var update services.ConfigUpdate
	if err := readJSON(w, r, &update); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	cfg, err := h.configs.Update(r.Context(), tenantID, queueName, update)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"config": cfg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) ListMaps(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	maps, err := h.configs.ListMaps(r.Context(), tenantID, queueName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"maps": maps}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) AddMap(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Map string `json:"map"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.configs.AddMap(r.Context(), tenantID, queueName, input.Map); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"message": "map added"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) RemoveMap(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	mapName := chi.URLParam(r, "mapName")
	if mapName == "" {
		badRequestResponse(w, r, errors.New("missing map name in URL"))
		return
	}

	if err := h.configs.RemoveMap(r.Context(), tenantID, queueName, mapName); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "map removed"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) Blacklist(w http.ResponseWriter, r *http.Request) {
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

	var input struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.configs.Blacklist(r.Context(), tenantID, queueName, userID, input.Reason); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"message": "user blacklisted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) Unblacklist(w http.ResponseWriter, r *http.Request) {
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

	if err := h.configs.Unblacklist(r.Context(), tenantID, queueName, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "user removed from blacklist"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) ListRequiredRoles(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	roles, err := h.configs.ListRequiredRoles(r.Context(), tenantID, queueName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"roles": roles}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) AddRequiredRole(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		RoleID string `json:"role_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.configs.AddRequiredRole(r.Context(), tenantID, queueName, input.RoleID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"message": "required role added"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) RemoveRequiredRole(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roleID := chi.URLParam(r, "roleID")
	if roleID == "" {
		badRequestResponse(w, r, errors.New("missing role id in URL"))
		return
	}

	if err := h.configs.RemoveRequiredRole(r.Context(), tenantID, queueName, roleID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "required role removed"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) ListRankBands(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bands, err := h.ranks.ListBands(r.Context(), tenantID, queueName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bands": bands}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) UpsertRankBand(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var band models.RankBand
	if err := readJSON(w, r, &band); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	band.TenantID = tenantID
	band.QueueName = queueName

	if err := h.ranks.UpsertBand(r.Context(), &band); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"band": band}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) RemoveRankBand(w http.ResponseWriter, r *http.Request) {
	tenantID, queueName, err := tenantAndQueue(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	name := chi.URLParam(r, "bandName")
	if name == "" {
		badRequestResponse(w, r, errors.New("missing band name in URL"))
		return
	}

	if err := h.ranks.RemoveBand(r.Context(), tenantID, queueName, name); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "rank band removed"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) SetMMR(w http.ResponseWriter, r *http.Request) {
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

	var input struct {
		MMR *int `json:"mmr"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.MMR == nil {
		badRequestResponse(w, r, errors.New("mmr is required"))
		return
	}

	if err := h.ratings.SetMMR(r.Context(), tenantID, queueName, userID, *input.MMR); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "mmr updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) AdjustMMR(w http.ResponseWriter, r *http.Request) {
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

	var input struct {
		Delta *int `json:"delta"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Delta == nil {
		badRequestResponse(w, r, errors.New("delta is required"))
		return
	}

	if err := h.ratings.AdjustMMR(r.Context(), tenantID, queueName, userID, *input.Delta); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "mmr adjusted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ConfigHandler) GrantGrace(w http.ResponseWriter, r *http.Request) {
	userID, err := intParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Days int `json:"days"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.ratings.GrantGracePeriod(r.Context(), userID, input.Days); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "grace period granted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
