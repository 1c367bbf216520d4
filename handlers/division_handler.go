package handlers

import (
	"net/http"
	"strings"

	"github.com/matchpoint-hq/backend/middleware"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/services"
)

type DivisionHandler struct {
	divisionService    services.DivisionService
	involvementService services.InvolvementService
	bracketService     services.BracketService
}

func NewDivisionHandler(
	divisionService services.DivisionService,
	involvementService services.InvolvementService,
	bracketService services.BracketService,
) *DivisionHandler {
	return &DivisionHandler{
		divisionService:    divisionService,
		involvementService: involvementService,
		bracketService:     bracketService,
	}
}

func (h *DivisionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	division, err := h.divisionService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"division": division}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DivisionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.DivisionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	division, err := h.divisionService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"division": division}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DivisionHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	division, err := h.divisionService.Publish(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"division": division}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DivisionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.divisionService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DivisionHandler) Register(w http.ResponseWriter, r *http.Request) {
	divisionID, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RegisterInvolvementInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	involvement, err := h.involvementService.Register(r.Context(), divisionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"involvement": involvement}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DivisionHandler) ListInvolvements(w http.ResponseWriter, r *http.Request) {
	divisionID, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var status *models.InvolvementStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := models.InvolvementStatus(raw)
		status = &s
	}

	involvements, err := h.involvementService.ListByDivision(r.Context(), divisionID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"involvements": involvements}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DivisionHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	divisionID, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, "", "invalid authentication token")
		return
	}

	var input services.GenerateBracketInput
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	matches, err := h.bracketService.Generate(r.Context(), divisionID, input, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DivisionHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	divisionID, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.GetDivisionBracket(r.Context(), divisionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
