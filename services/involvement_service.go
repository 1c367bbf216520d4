package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
)

type InvolvementService interface {
	Register(ctx context.Context, divisionID int, input RegisterInvolvementInput) (*models.Involvement, error)
	GetByID(ctx context.Context, id int) (*models.Involvement, error)
	ListByDivision(ctx context.Context, divisionID int, status *models.InvolvementStatus) ([]*models.Involvement, error)
	Approve(ctx context.Context, id int, reviewerID int) (*models.Involvement, error)
	Reject(ctx context.Context, id int, reviewerID int) (*models.Involvement, error)
	Withdraw(ctx context.Context, id int) error
}

type RegisterInvolvementInput struct {
	PlayerID  int  `json:"player_id"`
	PartnerID *int `json:"partner_id"`
}

type involvementService struct {
	involvementRepo repositories.InvolvementRepository
	divisionRepo    repositories.DivisionRepository
	playerRepo      repositories.PlayerRepository
	matchRepo       repositories.MatchRepository
	clock           clockwork.Clock
	logger          *slog.Logger
}

func NewInvolvementService(
	involvementRepo repositories.InvolvementRepository,
	divisionRepo repositories.DivisionRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	clock clockwork.Clock,
	logger *slog.Logger,
) InvolvementService {
	return &involvementService{
		involvementRepo: involvementRepo,
		divisionRepo:    divisionRepo,
		playerRepo:      playerRepo,
		matchRepo:       matchRepo,
		clock:           clock,
		logger:          logger,
	}
}

func (s *involvementService) Register(ctx context.Context, divisionID int, input RegisterInvolvementInput) (*models.Involvement, error) {
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

	switch division.ParticipantType {
	case models.ParticipantDoubles:
		if input.PartnerID == nil {
			return nil, ErrPartnerRequired
		}
		if *input.PartnerID == input.PlayerID {
			return nil, ErrValidationFailed
		}
	default:
		if input.PartnerID != nil {
			return nil, ErrPartnerNotAllowed
		}
	}

	ids := []int{input.PlayerID}
	if input.PartnerID != nil {
		ids = append(ids, *input.PartnerID)
	}
	players, err := s.playerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	for _, id := range ids {
		if players[id] == nil {
			return nil, ErrPlayerNotFound
		}
	}

	involvement := &models.Involvement{
		DivisionID: divisionID,
		PlayerID:   input.PlayerID,
		PartnerID:  input.PartnerID,
		Status:     models.InvolvementPending,
	}
	if err := s.involvementRepo.Create(ctx, involvement); err != nil {
		if errors.Is(err, repositories.ErrInvolvementConflict) {
			return nil, ErrInvolvementExists
		}
		return nil, fmt.Errorf("failed to create involvement: %w", err)
	}

	involvement.Player = players[input.PlayerID]
	if input.PartnerID != nil {
		involvement.Partner = players[*input.PartnerID]
	}
	return involvement, nil
}

func (s *involvementService) GetByID(ctx context.Context, id int) (*models.Involvement, error) {
	involvement, err := s.involvementRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrInvolvementNotFound) {
			return nil, ErrInvolvementNotFound
		}
		return nil, fmt.Errorf("failed to get involvement %d: %w", id, err)
	}
	return involvement, nil
}

func (s *involvementService) ListByDivision(ctx context.Context, divisionID int, status *models.InvolvementStatus) ([]*models.Involvement, error) {
	involvements, err := s.involvementRepo.ListByDivision(ctx, divisionID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list involvements for division %d: %w", divisionID, err)
	}
	return involvements, nil
}

func (s *involvementService) Approve(ctx context.Context, id int, reviewerID int) (*models.Involvement, error) {
	return s.review(ctx, id, reviewerID, models.InvolvementApproved)
}

func (s *involvementService) Reject(ctx context.Context, id int, reviewerID int) (*models.Involvement, error) {
	return s.review(ctx, id, reviewerID, models.InvolvementRejected)
}

func (s *involvementService) review(ctx context.Context, id, reviewerID int, status models.InvolvementStatus) (*models.Involvement, error) {
	involvement, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if involvement.Status != models.InvolvementPending {
		return nil, ErrInvolvementNotPending
	}

	now := s.clock.Now()
	if err := s.involvementRepo.UpdateStatus(ctx, id, status, &reviewerID, &now); err != nil {
		return nil, fmt.Errorf("failed to update involvement %d status: %w", id, err)
	}
	s.logger.InfoContext(ctx, "involvement reviewed",
		slog.Int("involvement_id", id),
		slog.Int("reviewer_id", reviewerID),
		slog.String("status", string(status)))

	involvement.Status = status
	involvement.ApprovedBy = &reviewerID
	involvement.ApprovedAt = &now
	return involvement, nil
}

func (s *involvementService) Withdraw(ctx context.Context, id int) error {
	involvement, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// An approved player who already appears in a bracket cannot withdraw;
	// their matches have to be cancelled by an admin first.
	if involvement.Status == models.InvolvementApproved {
		matches, err := s.matchRepo.List(ctx, repositories.MatchFilter{
			DivisionID: &involvement.DivisionID,
			PlayerID:   &involvement.PlayerID,
		})
		if err != nil {
			return err
		}
		if len(matches) > 0 {
			return ErrForbiddenOperation
		}
	}

	if err := s.involvementRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete involvement %d: %w", id, err)
	}
	return nil
}
