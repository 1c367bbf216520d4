package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matchpoint-hq/backend/brackets"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
)

// BracketBroadcaster pushes live events to division rooms. *brackets.Hub is
// the production implementation.
type BracketBroadcaster interface {
	BroadcastToRoom(room string, event brackets.Event)
}

type MatchService interface {
	Create(ctx context.Context, input CreateMatchInput, createdBy int) (*models.Match, error)
	GetByID(ctx context.Context, id int) (*models.Match, error)
	List(ctx context.Context, filter repositories.MatchFilter) ([]*models.Match, error)
	Update(ctx context.Context, id int, input UpdateMatchInput) (*models.Match, error)
	Cancel(ctx context.Context, id int) (*models.Match, error)
	Delete(ctx context.Context, id int) error
}

type CreateMatchInput struct {
	DivisionID   int        `json:"division_id"`
	MatchCode    string     `json:"match_code"`
	Player1ID    *int       `json:"player1_id"`
	Player2ID    *int       `json:"player2_id"`
	Partner1ID   *int       `json:"partner1_id"`
	Partner2ID   *int       `json:"partner2_id"`
	MaxSets      *int       `json:"max_sets"`
	PointsPerSet *int       `json:"points_per_set"`
	RoundNumber  *int       `json:"round_number"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	Location     *string    `json:"location"`
	Notes        *string    `json:"notes"`
}

type UpdateMatchInput struct {
	MatchCode    *string    `json:"match_code"`
	Player1ID    *int       `json:"player1_id"`
	Player2ID    *int       `json:"player2_id"`
	Partner1ID   *int       `json:"partner1_id"`
	Partner2ID   *int       `json:"partner2_id"`
	MaxSets      *int       `json:"max_sets"`
	PointsPerSet *int       `json:"points_per_set"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	Location     *string    `json:"location"`
	Notes        *string    `json:"notes"`
}

type matchService struct {
	matchRepo       repositories.MatchRepository
	setRepo         repositories.SetRepository
	divisionRepo    repositories.DivisionRepository
	involvementRepo repositories.InvolvementRepository
	broadcaster     BracketBroadcaster
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	divisionRepo repositories.DivisionRepository,
	involvementRepo repositories.InvolvementRepository,
	broadcaster BracketBroadcaster,
) MatchService {
	return &matchService{
		matchRepo:       matchRepo,
		setRepo:         setRepo,
		divisionRepo:    divisionRepo,
		involvementRepo: involvementRepo,
		broadcaster:     broadcaster,
	}
}

func (s *matchService) Create(ctx context.Context, input CreateMatchInput, createdBy int) (*models.Match, error) {
	division, err := s.divisionRepo.GetByID(ctx, input.DivisionID)
	if err != nil {
		if errors.Is(err, repositories.ErrDivisionNotFound) {
			return nil, ErrDivisionNotFound
		}
		return nil, fmt.Errorf("failed to load division %d: %w", input.DivisionID, err)
	}
	if !division.IsPublished {
		return nil, ErrDivisionNotPublished
	}

	code := strings.TrimSpace(input.MatchCode)
	if code == "" {
		return nil, ErrValidationFailed
	}

	maxSets := models.DefaultMaxSets
	if input.MaxSets != nil {
		maxSets = *input.MaxSets
	}
	pointsPerSet := models.DefaultPointsPerSet
	if input.PointsPerSet != nil {
		pointsPerSet = *input.PointsPerSet
	}
	if err := validateMatchFormat(maxSets, pointsPerSet); err != nil {
		return nil, err
	}

	match := &models.Match{
		DivisionID:   input.DivisionID,
		MatchCode:    code,
		Player1ID:    input.Player1ID,
		Player2ID:    input.Player2ID,
		Partner1ID:   input.Partner1ID,
		Partner2ID:   input.Partner2ID,
		MatchType:    matchTypeFor(division.ParticipantType),
		Status:       models.MatchPending,
		MaxSets:      maxSets,
		PointsPerSet: pointsPerSet,
		RoundNumber:  input.RoundNumber,
		ScheduledAt:  input.ScheduledAt,
		Location:     input.Location,
		CreatedBy:    &createdBy,
	}
	if input.Notes != nil {
		match.Notes = *input.Notes
	}
	if err := s.validateSlots(ctx, division, match); err != nil {
		return nil, err
	}
	if match.Player1ID != nil && match.Player2ID != nil {
		if err := s.checkDuplicatePending(ctx, match); err != nil {
			return nil, err
		}
	}

	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		if errors.Is(err, repositories.ErrMatchCodeConflict) {
			return nil, ErrMatchCodeConflict
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	sets, err := s.setRepo.ListByMatch(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	match.Sets = sets
	return match, nil
}

func (s *matchService) List(ctx context.Context, filter repositories.MatchFilter) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) Update(ctx context.Context, id int, input UpdateMatchInput) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	if err := requireWritable(match); err != nil {
		return nil, err
	}

	division, err := s.divisionRepo.GetByID(ctx, match.DivisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load division %d: %w", match.DivisionID, err)
	}

	if input.MatchCode != nil {
		code := strings.TrimSpace(*input.MatchCode)
		if code == "" {
			return nil, ErrValidationFailed
		}
		match.MatchCode = code
	}

	slotsChanged := input.Player1ID != nil || input.Player2ID != nil ||
		input.Partner1ID != nil || input.Partner2ID != nil
	if slotsChanged {
		if match.Status != models.MatchPending {
			return nil, ErrValidationFailed
		}
		if input.Player1ID != nil {
			match.Player1ID = nilIfZero(input.Player1ID)
		}
		if input.Player2ID != nil {
			match.Player2ID = nilIfZero(input.Player2ID)
		}
		if input.Partner1ID != nil {
			match.Partner1ID = nilIfZero(input.Partner1ID)
		}
		if input.Partner2ID != nil {
			match.Partner2ID = nilIfZero(input.Partner2ID)
		}
		if err := s.validateSlots(ctx, division, match); err != nil {
			return nil, err
		}
	}

	if input.MaxSets != nil || input.PointsPerSet != nil {
		// Format is locked once scoring has started.
		if match.Status != models.MatchPending {
			return nil, ErrMatchAlreadyCompleted
		}
		if input.MaxSets != nil {
			match.MaxSets = *input.MaxSets
		}
		if input.PointsPerSet != nil {
			match.PointsPerSet = *input.PointsPerSet
		}
		if err := validateMatchFormat(match.MaxSets, match.PointsPerSet); err != nil {
			return nil, err
		}
	}

	if input.ScheduledAt != nil {
		match.ScheduledAt = input.ScheduledAt
	}
	if input.Location != nil {
		match.Location = input.Location
	}
	if input.Notes != nil {
		match.Notes = *input.Notes
	}

	if err := s.matchRepo.Update(ctx, nil, match); err != nil {
		if errors.Is(err, repositories.ErrMatchCodeConflict) {
			return nil, ErrMatchCodeConflict
		}
		return nil, fmt.Errorf("failed to update match %d: %w", id, err)
	}
	s.broadcastMatch(match)
	return match, nil
}

func (s *matchService) Cancel(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	if err := requireWritable(match); err != nil {
		return nil, err
	}

	match.Status = models.MatchCancelled
	if err := s.matchRepo.Update(ctx, nil, match); err != nil {
		return nil, fmt.Errorf("failed to cancel match %d: %w", id, err)
	}
	s.broadcastMatch(match)
	return match, nil
}

func (s *matchService) Delete(ctx context.Context, id int) error {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to get match %d: %w", id, err)
	}
	if match.Status == models.MatchCompleted {
		return ErrMatchAlreadyCompleted
	}

	dependents, err := s.matchRepo.HasDependents(ctx, id)
	if err != nil {
		return err
	}
	if dependents {
		return ErrMatchHasDependents
	}

	if err := s.matchRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return nil
}

func (s *matchService) broadcastMatch(match *models.Match) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToRoom(fmt.Sprintf("division:%d", match.DivisionID), brackets.Event{
		Type:       brackets.EventMatchUpdated,
		DivisionID: fmt.Sprintf("%d", match.DivisionID),
		Payload:    match,
	})
}

// validateSlots enforces the division's participant type on the occupied
// slots and checks every referenced player holds an approved involvement.
func (s *matchService) validateSlots(ctx context.Context, division *models.TournamentDivision, match *models.Match) error {
	if match.Player1ID != nil && match.Player2ID != nil && *match.Player1ID == *match.Player2ID {
		return ErrSamePlayerBothSlots
	}

	switch division.ParticipantType {
	case models.ParticipantSingle:
		if match.Partner1ID != nil || match.Partner2ID != nil {
			return ErrPartnerNotAllowed
		}
	case models.ParticipantDoubles:
		if (match.Player1ID != nil && match.Partner1ID == nil) ||
			(match.Player2ID != nil && match.Partner2ID == nil) {
			return ErrPartnerRequired
		}
	}

	for _, playerID := range occupantIDs(match) {
		approved, err := s.involvementRepo.IsPlayerApproved(ctx, division.ID, playerID)
		if err != nil {
			return fmt.Errorf("failed to check approval for player %d: %w", playerID, err)
		}
		if !approved {
			return ErrPlayerNotApproved
		}
	}
	return nil
}

// checkDuplicatePending rejects a second pending match between the same two
// participants in a division. Other statuses do not block a rematch.
func (s *matchService) checkDuplicatePending(ctx context.Context, match *models.Match) error {
	status := models.MatchPending
	existing, err := s.matchRepo.List(ctx, repositories.MatchFilter{
		DivisionID: &match.DivisionID,
		Status:     &status,
	})
	if err != nil {
		return fmt.Errorf("failed to check for duplicate match: %w", err)
	}
	for _, other := range existing {
		if other.ID != match.ID && samePairing(match, other) {
			return ErrDuplicateMatch
		}
	}
	return nil
}

func samePairing(a, b *models.Match) bool {
	if a.Player1ID == nil || a.Player2ID == nil || b.Player1ID == nil || b.Player2ID == nil {
		return false
	}
	return (*a.Player1ID == *b.Player1ID && *a.Player2ID == *b.Player2ID) ||
		(*a.Player1ID == *b.Player2ID && *a.Player2ID == *b.Player1ID)
}

func occupantIDs(match *models.Match) []int {
	ids := make([]int, 0, 4)
	for _, id := range []*int{match.Player1ID, match.Player2ID, match.Partner1ID, match.Partner2ID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

func requireWritable(match *models.Match) error {
	switch match.Status {
	case models.MatchCompleted:
		return ErrMatchAlreadyCompleted
	case models.MatchCancelled:
		return ErrMatchCancelled
	}
	return nil
}

func validateMatchFormat(maxSets, pointsPerSet int) error {
	if maxSets < models.MinMaxSets || maxSets > models.MaxMaxSets {
		return ErrInvalidMatchFormat
	}
	if pointsPerSet < models.MinPointsPerSet || pointsPerSet > models.MaxPointsPerSet {
		return ErrInvalidMatchFormat
	}
	return nil
}

func matchTypeFor(participantType models.ParticipantType) models.MatchType {
	if participantType == models.ParticipantDoubles {
		return models.MatchDoubles
	}
	return models.MatchSingles
}

func nilIfZero(id *int) *int {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}
