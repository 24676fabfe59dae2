package handlers

import (
	"net/http"

	"github.com/Dosada05/matchmaking-system/services"
)

type TenantHandler struct {
	tenants services.TenantService
}

func NewTenantHandler(tenants services.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tenant, err := h.tenants.Create(r.Context(), input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tenant": tenant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := intParam(r, "tenantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tenant, err := h.tenants.Get(r.Context(), tenantID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tenant": tenant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenants.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tenants": tenants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
