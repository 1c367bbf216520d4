package handlers

import (
	"net/http"

	"github.com/matchpoint-hq/backend/middleware"
	"github.com/matchpoint-hq/backend/services"
)

type InvolvementHandler struct {
	involvementService services.InvolvementService
}

func NewInvolvementHandler(involvementService services.InvolvementService) *InvolvementHandler {
	return &InvolvementHandler{involvementService: involvementService}
}

func (h *InvolvementHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "involvementID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	involvement, err := h.involvementService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"involvement": involvement}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InvolvementHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

func (h *InvolvementHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *InvolvementHandler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := getIDFromURL(r, "involvementID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reviewerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, "", "invalid authentication token")
		return
	}

	var involvement interface{}
	if approve {
		involvement, err = h.involvementService.Approve(r.Context(), id, reviewerID)
	} else {
		involvement, err = h.involvementService.Reject(r.Context(), id, reviewerID)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"involvement": involvement}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *InvolvementHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "involvementID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.involvementService.Withdraw(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
