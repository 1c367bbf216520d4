package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/matchpoint-hq/backend/middleware"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
	"github.com/matchpoint-hq/backend/services"
)

type MatchHandler struct {
	matchService services.MatchService
	scoreService services.ScoreService
}

func NewMatchHandler(matchService services.MatchService, scoreService services.ScoreService) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		scoreService: scoreService,
	}
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		errorResponse(w, r, http.StatusUnauthorized, "", "invalid authentication token")
		return
	}

	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Create(r.Context(), input, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := matchFilterFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Update(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Cancel(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordScores accepts a batch of set results and returns the match after the
// scoring engine has applied them.
func (h *MatchHandler) RecordScores(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.RecordSetsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.scoreService.RecordSets(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func matchFilterFromQuery(r *http.Request) (repositories.MatchFilter, error) {
	filter := repositories.MatchFilter{}
	query := r.URL.Query()

	intParam := func(name string) (*int, error) {
		raw := query.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errInvalidQueryParam(name)
		}
		return &v, nil
	}

	var err error
	if filter.DivisionID, err = intParam("division_id"); err != nil {
		return filter, err
	}
	if filter.TournamentID, err = intParam("tournament_id"); err != nil {
		return filter, err
	}
	if filter.RoundNumber, err = intParam("round"); err != nil {
		return filter, err
	}
	if filter.PlayerID, err = intParam("player_id"); err != nil {
		return filter, err
	}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := models.MatchStatus(raw)
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		matchType := models.MatchType(raw)
		filter.MatchType = &matchType
	}
	if raw := query.Get("losers_bracket"); raw != "" {
		losers, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errInvalidQueryParam("losers_bracket")
		}
		filter.IsLosersBracket = &losers
	}
	filter.MatchCode = strings.TrimSpace(query.Get("code"))

	return filter, nil
}
