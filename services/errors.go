package services

// Error is a service-level failure with a stable machine-readable code.
// Handlers map codes to HTTP statuses and return them in the response body
// so clients can branch without parsing messages.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Shared errors used across services and the HTTP mapping layer.
var (
	ErrNotFound         = newError("ERROR_NOT_FOUND", "requested resource not found")
	ErrValidationFailed = newError("ERROR_VALIDATION_FAILED", "validation failed")

	// Authentication and authorization
	ErrInvalidCredentials = newError("ERROR_INVALID_CREDENTIALS", "invalid email or password")
	ErrPasswordTooShort   = newError("ERROR_PASSWORD_TOO_SHORT", "password is too short")
	ErrForbiddenOperation = newError("ERROR_FORBIDDEN", "operation not allowed for the current user")

	// Entity lookups
	ErrUserNotFound         = newError("ERROR_USER_NOT_FOUND", "user not found")
	ErrOrganizationNotFound = newError("ERROR_ORGANIZATION_NOT_FOUND", "organization not found")
	ErrPlayerNotFound       = newError("ERROR_PLAYER_NOT_FOUND", "player not found")
	ErrTournamentNotFound   = newError("ERROR_TOURNAMENT_NOT_FOUND", "tournament not found")
	ErrDivisionNotFound     = newError("ERROR_DIVISION_NOT_FOUND", "division not found")
	ErrInvolvementNotFound  = newError("ERROR_INVOLVEMENT_NOT_FOUND", "involvement not found")
	ErrMatchNotFound        = newError("ERROR_MATCH_NOT_FOUND", "match not found")

	// Conflicts
	ErrUserEmailConflict  = newError("ERROR_EMAIL_ALREADY_IN_USE", "email address is already in use")
	ErrInvolvementExists  = newError("ERROR_INVOLVEMENT_ALREADY_EXISTS", "player is already registered for this division")
	ErrMatchCodeConflict  = newError("ERROR_MATCH_CODE_ALREADY_EXISTS", "match code already exists in this division")
	ErrDuplicateMatch     = newError("ERROR_DUPLICATE_MATCH", "a pending match between these participants already exists in this division")
	ErrDivisionHasMatches = newError("ERROR_DIVISION_HAS_EXISTING_MATCHES", "division already has generated matches")

	// Tournament lifecycle
	ErrTournamentInvalidStatusTransition = newError("ERROR_INVALID_STATUS_TRANSITION", "invalid tournament status transition")
	ErrTournamentNotEditable             = newError("ERROR_TOURNAMENT_NOT_EDITABLE", "tournament can no longer be modified")

	// Division and registration rules
	ErrDivisionNotPublished     = newError("ERROR_DIVISION_NOT_PUBLISHED", "division is not published")
	ErrDivisionAlreadyPublished = newError("ERROR_DIVISION_ALREADY_PUBLISHED", "division is already published")
	ErrPlayerNotApproved        = newError("ERROR_PLAYER_NOT_APPROVED", "player is not approved for this division")
	ErrPartnerRequired          = newError("ERROR_PARTNER_REQUIRED", "doubles registration requires a partner")
	ErrPartnerNotAllowed        = newError("ERROR_PARTNER_NOT_ALLOWED", "singles registration cannot include a partner")
	ErrInvolvementNotPending    = newError("ERROR_INVOLVEMENT_NOT_PENDING", "involvement has already been reviewed")

	// Match configuration and lifecycle
	ErrInvalidMatchFormat    = newError("ERROR_INVALID_MATCH_FORMAT", "match format is out of allowed range")
	ErrMatchAlreadyCompleted = newError("ERROR_MATCH_ALREADY_COMPLETED", "match has already been completed")
	ErrMatchCancelled        = newError("ERROR_MATCH_CANCELLED", "match has been cancelled")
	ErrMatchSlotsIncomplete  = newError("ERROR_MATCH_SLOTS_INCOMPLETE", "match does not have both participants assigned")
	ErrMatchHasDependents    = newError("ERROR_MATCH_HAS_DEPENDENTS", "match feeds other matches and cannot be deleted")
	ErrSamePlayerBothSlots   = newError("ERROR_SAME_PLAYER_BOTH_SLOTS", "a player cannot occupy both sides of a match")

	// Scoring
	ErrSetNumberExceedsMax = newError("ERROR_SET_NUMBER_EXCEEDS_MAX", "set number exceeds the match set limit")
	ErrNegativeScore       = newError("ERROR_NEGATIVE_SCORE", "set scores cannot be negative")

	// Bracket generation
	ErrInsufficientPlayers     = newError("ERROR_INSUFFICIENT_PLAYERS_FOR_GENERATION", "not enough approved participants to generate a bracket")
	ErrUnsupportedFormat       = newError("ERROR_UNSUPPORTED_DIVISION_FORMAT", "bracket generation is not supported for this division format")
	ErrConfigurationOutOfRange = newError("ERROR_CONFIGURATION_OUT_OF_RANGE", "bracket configuration is out of allowed range")
)
