package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/matchpoint-hq/backend/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, message interface{}) {
	env := jsonResponse{"error": message}
	if code != "" {
		env["code"] = code
	}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Default().ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Default().ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, "ERROR_INTERNAL",
		"the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, "", err.Error())
}

func errInvalidQueryParam(name string) error {
	return fmt.Errorf("invalid %s query parameter", name)
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return nil, nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	return r.FormFile(field)
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s parameter: %q", param, raw)
	}
	return id, nil
}

// mapServiceErrorToHTTP translates service errors into responses. Service
// errors carry stable machine-readable codes which are echoed in the body so
// clients never have to parse messages.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		serverErrorResponse(w, r, err)
		return
	}
	errorResponse(w, r, statusForServiceError(svcErr), svcErr.Code, svcErr.Message)
}

func statusForServiceError(err *services.Error) int {
	switch err {
	case services.ErrNotFound,
		services.ErrUserNotFound,
		services.ErrOrganizationNotFound,
		services.ErrPlayerNotFound,
		services.ErrTournamentNotFound,
		services.ErrDivisionNotFound,
		services.ErrInvolvementNotFound,
		services.ErrMatchNotFound:
		return http.StatusNotFound

	case services.ErrUserEmailConflict,
		services.ErrInvolvementExists,
		services.ErrMatchCodeConflict,
		services.ErrDuplicateMatch,
		services.ErrDivisionHasMatches,
		services.ErrDivisionAlreadyPublished,
		services.ErrMatchAlreadyCompleted,
		services.ErrMatchCancelled:
		return http.StatusConflict

	case services.ErrInvalidCredentials:
		return http.StatusUnauthorized

	case services.ErrForbiddenOperation:
		return http.StatusForbidden

	case services.ErrValidationFailed,
		services.ErrPasswordTooShort,
		services.ErrTournamentInvalidStatusTransition,
		services.ErrTournamentNotEditable,
		services.ErrDivisionNotPublished,
		services.ErrPlayerNotApproved,
		services.ErrPartnerRequired,
		services.ErrPartnerNotAllowed,
		services.ErrInvolvementNotPending,
		services.ErrInvalidMatchFormat,
		services.ErrMatchSlotsIncomplete,
		services.ErrMatchHasDependents,
		services.ErrSamePlayerBothSlots,
		services.ErrSetNumberExceedsMax,
		services.ErrNegativeScore,
		services.ErrInsufficientPlayers,
		services.ErrUnsupportedFormat,
		services.ErrConfigurationOutOfRange:
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
