package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/matchpoint-hq/backend/brackets"
)

func wsRequest(divisionID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws/divisions/"+divisionID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("divisionID", divisionID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestServeDivisionRejectsBadDivisionID(t *testing.T) {
	handler := NewWebSocketHandler(brackets.NewHub(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name       string
		divisionID string
	}{
		{name: "non numeric", divisionID: "abc"},
		{name: "zero", divisionID: "0"},
		{name: "negative", divisionID: "-3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeDivision(rec, wsRequest(tc.divisionID))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "divisionID")
		})
	}
}

func TestServeDivisionFailedUpgradeWritesSingleResponse(t *testing.T) {
	handler := NewWebSocketHandler(brackets.NewHub(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	// A plain GET without the websocket handshake headers cannot be upgraded.
	rec := httptest.NewRecorder()
	handler.ServeDivision(rec, wsRequest("7"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
