package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/matchpoint-hq/backend/brackets"
	"github.com/matchpoint-hq/backend/metrics"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	Generate(ctx context.Context, divisionID int, input GenerateBracketInput, createdBy int) ([]*models.Match, error)
	GetDivisionBracket(ctx context.Context, divisionID int) (*BracketView, error)
}

type GenerateBracketInput struct {
	MaxSets           *int   `json:"max_sets"`
	PointsPerSet      *int   `json:"points_per_set"`
	ConfirmRegenerate bool   `json:"confirm_regenerate"`
	Seed              *int64 `json:"seed"`
}

// BracketView is the full read model of a division's bracket.
type BracketView struct {
	Division *models.TournamentDivision `json:"division"`
	Matches  []*models.Match            `json:"matches"`
	Players  []*models.PlayerProfile    `json:"players"`
}

type bracketService struct {
	db              *sql.DB
	divisionRepo    repositories.DivisionRepository
	involvementRepo repositories.InvolvementRepository
	matchRepo       repositories.MatchRepository
	setRepo         repositories.SetRepository
	playerRepo      repositories.PlayerRepository
	clock           clockwork.Clock
	logger          *slog.Logger
	broadcaster     BracketBroadcaster
}

func NewBracketService(
	db *sql.DB,
	divisionRepo repositories.DivisionRepository,
	involvementRepo repositories.InvolvementRepository,
	matchRepo repositories.MatchRepository,
	setRepo repositories.SetRepository,
	playerRepo repositories.PlayerRepository,
	clock clockwork.Clock,
	logger *slog.Logger,
	broadcaster BracketBroadcaster,
) BracketService {
	return &bracketService{
		db:              db,
		divisionRepo:    divisionRepo,
		involvementRepo: involvementRepo,
		matchRepo:       matchRepo,
		setRepo:         setRepo,
		playerRepo:      playerRepo,
		clock:           clock,
		logger:          logger,
		broadcaster:     broadcaster,
	}
}

func (s *bracketService) Generate(ctx context.Context, divisionID int, input GenerateBracketInput, createdBy int) ([]*models.Match, error) {
	division, err := s.divisionRepo.GetByID(ctx, divisionID)
	if err != nil {
		if errors.Is(err, repositories.ErrDivisionNotFound) {
			return nil, ErrDivisionNotFound
		}
		return nil, fmt.Errorf("failed to load division %d: %w", divisionID, err)
	}
	if !division.IsPublished {
		return nil, ErrDivisionNotPublished
	}

	generator, err := generatorFor(division.Format)
	if err != nil {
		return nil, err
	}

	status := models.InvolvementApproved
	involvements, err := s.involvementRepo.ListByDivision(ctx, divisionID, &status)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved involvements for division %d: %w", divisionID, err)
	}
	if len(involvements) < 2 {
		return nil, ErrInsufficientPlayers
	}

	sides := make([]brackets.Side, 0, len(involvements))
	for _, involvement := range involvements {
		sides = append(sides, brackets.Side{
			PlayerID:  involvement.PlayerID,
			PartnerID: involvement.PartnerID,
		})
	}

	maxSets := models.DefaultMaxSets
	if input.MaxSets != nil {
		maxSets = *input.MaxSets
	}
	pointsPerSet := models.DefaultPointsPerSet
	if input.PointsPerSet != nil {
		pointsPerSet = *input.PointsPerSet
	}

	seed := s.clock.Now().UnixNano()
	if input.Seed != nil {
		seed = *input.Seed
	}
	plan, err := generator.Generate(ctx, brackets.GenerateParams{
		Participants: sides,
		MaxSets:      maxSets,
		PointsPerSet: pointsPerSet,
		Rand:         rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		switch {
		case errors.Is(err, brackets.ErrInsufficientParticipants):
			return nil, ErrInsufficientPlayers
		case errors.Is(err, brackets.ErrConfigurationOutOfRange):
			return nil, ErrConfigurationOutOfRange
		}
		return nil, fmt.Errorf("failed to generate %s bracket: %w", generator.Name(), err)
	}

	var created []*models.Match
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		count, err := s.matchRepo.CountByDivision(ctx, tx, divisionID)
		if err != nil {
			return err
		}
		if count > 0 {
			if !input.ConfirmRegenerate {
				return ErrDivisionHasMatches
			}
			if err := s.matchRepo.DeleteByDivision(ctx, tx, divisionID); err != nil {
				return err
			}
		}

		created, err = s.persistPlan(ctx, tx, division, plan, maxSets, pointsPerSet, createdBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.BracketsGenerated.WithLabelValues(string(division.Format)).Inc()
	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("division_id", divisionID),
		slog.String("format", string(division.Format)),
		slog.Int("participants", len(sides)),
		slog.Int("matches", len(created)))

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(fmt.Sprintf("division:%d", divisionID), brackets.Event{
			Type:       brackets.EventBracketGenerated,
			DivisionID: fmt.Sprintf("%d", divisionID),
			Payload:    created,
		})
	}
	return created, nil
}

// persistPlan writes the plan in two passes: insert every match, then patch
// the winner and loser links once database ids are known.
func (s *bracketService) persistPlan(ctx context.Context, tx *sql.Tx, division *models.TournamentDivision, plan []*brackets.PlannedMatch, maxSets, pointsPerSet, createdBy int) ([]*models.Match, error) {
	now := s.clock.Now()
	created := make([]*models.Match, len(plan))

	for i, planned := range plan {
		match := &models.Match{
			DivisionID:      division.ID,
			MatchCode:       planned.Code,
			MatchType:       matchTypeFor(division.ParticipantType),
			Status:          models.MatchPending,
			MaxSets:         maxSets,
			PointsPerSet:    pointsPerSet,
			RoundNumber:     intPointer(planned.Round),
			IsLosersBracket: planned.IsLosersBracket,
			CreatedBy:       &createdBy,
		}
		if planned.Slot1 != nil {
			match.Player1ID = intPointer(planned.Slot1.PlayerID)
			match.Partner1ID = planned.Slot1.PartnerID
		}
		if planned.Slot2 != nil {
			match.Player2ID = intPointer(planned.Slot2.PlayerID)
			match.Partner2ID = planned.Slot2.PartnerID
		}
		if planned.Completed && planned.Winner != nil {
			match.Status = models.MatchCompleted
			match.CompletedAt = &now
			match.WinnerID = intPointer(planned.Winner.PlayerID)
			match.WinnerPartnerID = planned.Winner.PartnerID
		}

		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			if errors.Is(err, repositories.ErrMatchCodeConflict) {
				return nil, ErrMatchCodeConflict
			}
			return nil, err
		}
		created[i] = match
	}

	for i, planned := range plan {
		if planned.NextIndex == nil && planned.LoserNextIndex == nil {
			continue
		}
		var nextID, loserNextID *int
		if planned.NextIndex != nil {
			nextID = &created[*planned.NextIndex].ID
		}
		if planned.LoserNextIndex != nil {
			loserNextID = &created[*planned.LoserNextIndex].ID
		}
		if err := s.matchRepo.UpdateLinks(ctx, tx, created[i].ID, nextID, loserNextID); err != nil {
			return nil, err
		}
		created[i].NextMatchID = nextID
		created[i].LoserNextMatchID = loserNextID
	}
	return created, nil
}

func (s *bracketService) GetDivisionBracket(ctx context.Context, divisionID int) (*BracketView, error) {
	division, err := s.divisionRepo.GetByID(ctx, divisionID)
	if err != nil {
		if errors.Is(err, repositories.ErrDivisionNotFound) {
			return nil, ErrDivisionNotFound
		}
		return nil, fmt.Errorf("failed to load division %d: %w", divisionID, err)
	}

	matches, err := s.matchRepo.List(ctx, repositories.MatchFilter{DivisionID: &divisionID})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for division %d: %w", divisionID, err)
	}

	matchIDs := make([]int, 0, len(matches))
	playerIDSet := make(map[int]struct{})
	for _, match := range matches {
		matchIDs = append(matchIDs, match.ID)
		for _, id := range occupantIDs(match) {
			playerIDSet[id] = struct{}{}
		}
	}

	var setsByMatch map[int][]models.Set
	var players map[int]*models.PlayerProfile

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		setsByMatch, err = s.setRepo.ListByMatchIDs(gctx, matchIDs)
		return err
	})
	g.Go(func() error {
		ids := make([]int, 0, len(playerIDSet))
		for id := range playerIDSet {
			ids = append(ids, id)
		}
		var err error
		players, err = s.playerRepo.GetByIDs(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	playerList := make([]*models.PlayerProfile, 0, len(players))
	for _, match := range matches {
		match.Sets = setsByMatch[match.ID]
	}
	for _, player := range players {
		playerList = append(playerList, player)
	}
	sort.Slice(playerList, func(i, j int) bool { return playerList[i].ID < playerList[j].ID })

	return &BracketView{
		Division: division,
		Matches:  matches,
		Players:  playerList,
	}, nil
}

func generatorFor(format models.DivisionFormat) (brackets.Generator, error) {
	switch format {
	case models.FormatKnockout:
		return brackets.NewSingleEliminationGenerator(), nil
	case models.FormatDoubleSlash:
		return brackets.NewDoubleEliminationGenerator(), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

func intPointer(v int) *int {
	return &v
}
