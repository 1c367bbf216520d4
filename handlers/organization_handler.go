package handlers

import (
	"net/http"

	"github.com/matchpoint-hq/backend/middleware"
	"github.com/matchpoint-hq/backend/services"
)

type OrganizationHandler struct {
	orgService services.OrganizationService
}

func NewOrganizationHandler(orgService services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, "", "invalid authentication token")
		return
	}

	var input services.OrganizationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	org, err := h.orgService.Create(r.Context(), input, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"organization": org}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *OrganizationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "organizationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	org, err := h.orgService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"organization": org}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("include_inactive") != "true"

	orgs, err := h.orgService.List(r.Context(), onlyActive)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"organizations": orgs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "organizationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.OrganizationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	org, err := h.orgService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"organization": org}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *OrganizationHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "organizationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.orgService.Deactivate(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrganizationHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "organizationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, header, err := formFile(r, "logo")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	org, err := h.orgService.UploadLogo(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"organization": org}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
