package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/matchpoint-hq/backend/brackets"
	"github.com/matchpoint-hq/backend/metrics"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
)

// ScoreService is the scoring engine. RecordSets is the single entry point
// for score data: it accepts a batch of set results for one match, decides
// set winners, drives the match through its lifecycle and, on completion,
// routes the winner and loser to their successor matches inside the same
// transaction.
type ScoreService interface {
	RecordSets(ctx context.Context, matchID int, input RecordSetsInput) (*models.Match, error)
}

type RecordSetsInput struct {
	Sets []SetScoreInput `json:"sets"`
}

type SetScoreInput struct {
	SetNumber    int `json:"set_number"`
	Player1Score int `json:"player1_score"`
	Player2Score int `json:"player2_score"`
}

type scoreService struct {
	db          *sql.DB
	matchRepo   repositories.MatchRepository
	setRepo     repositories.SetRepository
	clock       clockwork.Clock
	logger      *slog.Logger
	broadcaster BracketBroadcaster
}

func NewScoreService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	clock clockwork.Clock,
	logger *slog.Logger,
	broadcaster BracketBroadcaster,
) ScoreService {
	return &scoreService{
		db:          db,
		matchRepo:   matchRepo,
		setRepo:     setRepo,
		clock:       clock,
		logger:      logger,
		broadcaster: broadcaster,
	}
}

func (s *scoreService) RecordSets(ctx context.Context, matchID int, input RecordSetsInput) (*models.Match, error) {
	if len(input.Sets) == 0 {
		return nil, ErrValidationFailed
	}

	var match *models.Match
	var touched []*models.Match

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		match, err = s.matchRepo.GetForUpdate(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}

		if err := requireWritable(match); err != nil {
			return err
		}
		if match.OccupantCount() < 2 {
			return ErrMatchSlotsIncomplete
		}
		if err := validateSetScores(match, input.Sets); err != nil {
			return err
		}

		now := s.clock.Now()

		batch := make([]SetScoreInput, len(input.Sets))
		copy(batch, input.Sets)
		sort.Slice(batch, func(i, j int) bool { return batch[i].SetNumber < batch[j].SetNumber })

		for _, in := range batch {
			set := &models.Set{
				MatchID:      matchID,
				SetNumber:    in.SetNumber,
				Player1Score: in.Player1Score,
				Player2Score: in.Player2Score,
			}
			if winner := decideSetWinner(match, in); winner != nil {
				set.Winner = winner
				completedAt := now
				set.CompletedAt = &completedAt
			}
			if err := s.setRepo.Upsert(ctx, tx, set); err != nil {
				return err
			}
		}
		metrics.SetsRecorded.Add(float64(len(batch)))

		if match.Status == models.MatchPending {
			match.Status = models.MatchInProgress
			match.StartedAt = &now
		}

		// Tally across everything stored for the match, not just this batch:
		// corrections to earlier sets change the outcome.
		sets, err := s.setRepo.ListByMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		match.Sets = sets

		if winnerSide := matchWinnerSide(match); winnerSide != nil {
			match.Status = models.MatchCompleted
			match.CompletedAt = &now
			if *winnerSide == models.SetWinnerPlayer1 {
				match.WinnerID = match.Player1ID
				match.WinnerPartnerID = match.Partner1ID
			} else {
				match.WinnerID = match.Player2ID
				match.WinnerPartnerID = match.Partner2ID
			}
			metrics.MatchesCompleted.Inc()
			s.logger.InfoContext(ctx, "match completed",
				slog.Int("match_id", matchID),
				slog.String("match_code", match.MatchCode),
				slog.Int("winner_id", *match.WinnerID))
		}

		if err := s.matchRepo.Update(ctx, tx, match); err != nil {
			return err
		}

		if match.Status == models.MatchCompleted {
			touched, err = s.propagateResult(ctx, tx, match, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(match)
	for _, affected := range touched {
		s.broadcast(affected)
	}
	return match, nil
}

// propagateResult routes a completed match's winner (and, in double
// elimination, its loser) into the successor matches, auto-resolving any byes
// that become decidable along the way. It returns every match it modified.
func (s *scoreService) propagateResult(ctx context.Context, tx *sql.Tx, match *models.Match, now time.Time) ([]*models.Match, error) {
	var touched []*models.Match

	winner := side{player: match.WinnerID, partner: match.WinnerPartnerID}
	loser := loserSide(match)

	if match.NextMatchID != nil {
		affected, err := s.placeAndResolve(ctx, tx, *match.NextMatchID, winner, now)
		if err != nil {
			return nil, err
		}
		touched = append(touched, affected...)
	}
	if match.LoserNextMatchID != nil && loser.player != nil {
		affected, err := s.placeAndResolve(ctx, tx, *match.LoserNextMatchID, loser, now)
		if err != nil {
			return nil, err
		}
		touched = append(touched, affected...)
	}

	if isGrandFinal(match) && match.NextMatchID == nil {
		reset, err := s.maybeCreateBracketReset(ctx, tx, match)
		if err != nil {
			return nil, err
		}
		if reset != nil {
			touched = append(touched, reset)
		}
	}
	return touched, nil
}

// placeAndResolve fills the first empty slot of the target match and then
// walks forward while the bye rule keeps completing matches: one occupant, no
// feeder still owing a participant, status pending.
func (s *scoreService) placeAndResolve(ctx context.Context, tx *sql.Tx, targetID int, incoming side, now time.Time) ([]*models.Match, error) {
	var touched []*models.Match

	for {
		target, err := s.matchRepo.GetForUpdate(ctx, tx, targetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load successor match %d: %w", targetID, err)
		}
		if target.IsFinalized() {
			s.logger.WarnContext(ctx, "successor match already finalized, dropping propagation",
				slog.Int("match_id", targetID))
			return touched, nil
		}

		if target.Player1ID == nil {
			target.Player1ID = incoming.player
			target.Partner1ID = incoming.partner
		} else if target.Player2ID == nil {
			target.Player2ID = incoming.player
			target.Partner2ID = incoming.partner
		} else {
			return nil, fmt.Errorf("successor match %d has no free slot", targetID)
		}

		resolvedAsBye := false
		if target.OccupantCount() == 1 && target.Status == models.MatchPending {
			pending, err := s.matchRepo.CountPendingFeeders(ctx, tx, target.ID)
			if err != nil {
				return nil, err
			}
			if pending == 0 {
				target.Status = models.MatchCompleted
				completedAt := now
				target.CompletedAt = &completedAt
				target.WinnerID = target.Player1ID
				target.WinnerPartnerID = target.Partner1ID
				resolvedAsBye = true
			}
		}

		if err := s.matchRepo.Update(ctx, tx, target); err != nil {
			return nil, err
		}
		touched = append(touched, target)

		if !resolvedAsBye || target.NextMatchID == nil {
			return touched, nil
		}
		// The bye winner advances; continue down the chain.
		incoming = side{player: target.WinnerID, partner: target.WinnerPartnerID}
		targetID = *target.NextMatchID
	}
}

// maybeCreateBracketReset implements the double elimination reset: when the
// losers bracket survivor takes the first grand final, both finalists are now
// on one loss and a second grand final decides the division.
func (s *scoreService) maybeCreateBracketReset(ctx context.Context, tx *sql.Tx, grandFinal *models.Match) (*models.Match, error) {
	feeders, err := s.matchRepo.ListFeeders(ctx, tx, grandFinal.ID)
	if err != nil {
		return nil, err
	}

	var lbEntrant *int
	for _, feeder := range feeders {
		if feeder.IsLosersBracket && feeder.NextMatchID != nil && *feeder.NextMatchID == grandFinal.ID {
			lbEntrant = feeder.WinnerID
		}
	}
	if lbEntrant == nil || grandFinal.WinnerID == nil || *grandFinal.WinnerID != *lbEntrant {
		return nil, nil
	}

	round := models.GrandFinalRound
	reset := &models.Match{
		DivisionID:   grandFinal.DivisionID,
		MatchCode:    "GF2",
		Player1ID:    grandFinal.Player1ID,
		Player2ID:    grandFinal.Player2ID,
		Partner1ID:   grandFinal.Partner1ID,
		Partner2ID:   grandFinal.Partner2ID,
		MatchType:    grandFinal.MatchType,
		Status:       models.MatchPending,
		MaxSets:      grandFinal.MaxSets,
		PointsPerSet: grandFinal.PointsPerSet,
		RoundNumber:  &round,
		CreatedBy:    grandFinal.CreatedBy,
	}
	if err := s.matchRepo.Create(ctx, tx, reset); err != nil {
		if errors.Is(err, repositories.ErrMatchCodeConflict) {
			// A concurrent submission already created the reset match.
			return nil, nil
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "bracket reset, second grand final created",
		slog.Int("division_id", grandFinal.DivisionID),
		slog.Int("match_id", reset.ID))
	return reset, nil
}

func (s *scoreService) broadcast(match *models.Match) {
	if s.broadcaster == nil || match == nil {
		return
	}
	s.broadcaster.BroadcastToRoom(fmt.Sprintf("division:%d", match.DivisionID), brackets.Event{
		Type:       brackets.EventMatchUpdated,
		DivisionID: fmt.Sprintf("%d", match.DivisionID),
		Payload:    match,
	})
}

type side struct {
	player  *int
	partner *int
}

func loserSide(match *models.Match) side {
	if match.WinnerID == nil {
		return side{}
	}
	if match.Player1ID != nil && *match.Player1ID == *match.WinnerID {
		return side{player: match.Player2ID, partner: match.Partner2ID}
	}
	return side{player: match.Player1ID, partner: match.Partner1ID}
}

func isGrandFinal(match *models.Match) bool {
	return match.RoundNumber != nil && *match.RoundNumber == models.GrandFinalRound && !match.IsLosersBracket
}

func validateSetScores(match *models.Match, sets []SetScoreInput) error {
	seen := make(map[int]bool, len(sets))
	for _, in := range sets {
		if in.SetNumber < 1 || in.SetNumber > match.MaxSets {
			return ErrSetNumberExceedsMax
		}
		if in.Player1Score < 0 || in.Player2Score < 0 {
			return ErrNegativeScore
		}
		if seen[in.SetNumber] {
			return ErrValidationFailed
		}
		seen[in.SetNumber] = true
	}
	return nil
}

// decideSetWinner applies the set rule: strictly higher score that has
// reached the match's points per set. Anything else leaves the set open.
func decideSetWinner(match *models.Match, in SetScoreInput) *models.SetWinner {
	if in.Player1Score > in.Player2Score && in.Player1Score >= match.PointsPerSet {
		w := models.SetWinnerPlayer1
		return &w
	}
	if in.Player2Score > in.Player1Score && in.Player2Score >= match.PointsPerSet {
		w := models.SetWinnerPlayer2
		return &w
	}
	return nil
}

func matchWinnerSide(match *models.Match) *models.SetWinner {
	need := match.SetsToWin()
	if won := match.SetsWonByPlayer1(); won >= need {
		w := models.SetWinnerPlayer1
		return &w
	}
	if won := match.SetsWonByPlayer2(); won >= need {
		w := models.SetWinnerPlayer2
		return &w
	}
	return nil
}
