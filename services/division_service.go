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

type DivisionService interface {
	Create(ctx context.Context, tournamentID int, input DivisionInput) (*models.TournamentDivision, error)
	GetByID(ctx context.Context, id int) (*models.TournamentDivision, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentDivision, error)
	Update(ctx context.Context, id int, input DivisionInput) (*models.TournamentDivision, error)
	Publish(ctx context.Context, id int) (*models.TournamentDivision, error)
	Delete(ctx context.Context, id int) error
}

type DivisionInput struct {
	Name            string                 `json:"name"`
	Format          models.DivisionFormat  `json:"format"`
	ParticipantType models.ParticipantType `json:"participant_type"`
	Gender          models.Gender          `json:"gender"`
	MaxParticipants *int                   `json:"max_participants"`
}

type divisionService struct {
	divisionRepo   repositories.DivisionRepository
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	clock          clockwork.Clock
	logger         *slog.Logger
}

func NewDivisionService(
	divisionRepo repositories.DivisionRepository,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	clock clockwork.Clock,
	logger *slog.Logger,
) DivisionService {
	return &divisionService{
		divisionRepo:   divisionRepo,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		clock:          clock,
		logger:         logger,
	}
}

func (s *divisionService) Create(ctx context.Context, tournamentID int, input DivisionInput) (*models.TournamentDivision, error) {
	if err := validateDivisionInput(input); err != nil {
		return nil, err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.Status == models.TournamentCompleted || tournament.Status == models.TournamentCancelled {
		return nil, ErrTournamentNotEditable
	}

	division := &models.TournamentDivision{
		TournamentID:    tournamentID,
		Name:            normalizedName(input.Name),
		Format:          input.Format,
		ParticipantType: input.ParticipantType,
		Gender:          input.Gender,
		MaxParticipants: input.MaxParticipants,
	}
	if division.Gender == "" {
		division.Gender = models.GenderAny
	}
	if err := s.divisionRepo.Create(ctx, division); err != nil {
		return nil, fmt.Errorf("failed to create division: %w", err)
	}
	return division, nil
}

func (s *divisionService) GetByID(ctx context.Context, id int) (*models.TournamentDivision, error) {
	division, err := s.divisionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrDivisionNotFound) {
			return nil, ErrDivisionNotFound
		}
		return nil, fmt.Errorf("failed to get division %d: %w", id, err)
	}
	return division, nil
}

func (s *divisionService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentDivision, error) {
	divisions, err := s.divisionRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list divisions for tournament %d: %w", tournamentID, err)
	}
	return divisions, nil
}

func (s *divisionService) Update(ctx context.Context, id int, input DivisionInput) (*models.TournamentDivision, error) {
	division, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Format and participant type are frozen once the division is live:
	// registrations and brackets depend on them.
	if division.IsPublished &&
		((input.Format != "" && input.Format != division.Format) ||
			(input.ParticipantType != "" && input.ParticipantType != division.ParticipantType)) {
		return nil, ErrDivisionAlreadyPublished
	}

	if name := normalizedName(input.Name); name != "" {
		division.Name = name
	}
	if input.Format != "" {
		division.Format = input.Format
	}
	if input.ParticipantType != "" {
		division.ParticipantType = input.ParticipantType
	}
	if input.Gender != "" {
		division.Gender = input.Gender
	}
	if input.MaxParticipants != nil {
		division.MaxParticipants = input.MaxParticipants
	}
	if err := validateDivisionInput(DivisionInput{
		Name:            division.Name,
		Format:          division.Format,
		ParticipantType: division.ParticipantType,
		Gender:          division.Gender,
		MaxParticipants: division.MaxParticipants,
	}); err != nil {
		return nil, err
	}

	if err := s.divisionRepo.Update(ctx, division); err != nil {
		return nil, fmt.Errorf("failed to update division %d: %w", id, err)
	}
	return division, nil
}

func (s *divisionService) Publish(ctx context.Context, id int) (*models.TournamentDivision, error) {
	division, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if division.IsPublished {
		return nil, ErrDivisionAlreadyPublished
	}

	now := s.clock.Now()
	if err := s.divisionRepo.SetPublished(ctx, id, true, &now); err != nil {
		return nil, fmt.Errorf("failed to publish division %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "division published",
		slog.Int("division_id", id), slog.Int("tournament_id", division.TournamentID))

	division.IsPublished = true
	division.PublishedAt = &now
	return division, nil
}

func (s *divisionService) Delete(ctx context.Context, id int) error {
	division, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.matchRepo.CountByDivision(ctx, nil, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDivisionHasMatches
	}

	if err := s.divisionRepo.Delete(ctx, division.ID); err != nil {
		return fmt.Errorf("failed to delete division %d: %w", id, err)
	}
	return nil
}

func validateDivisionInput(input DivisionInput) error {
	if normalizedName(input.Name) == "" {
		return ErrValidationFailed
	}
	switch input.Format {
	case models.FormatKnockout, models.FormatDoubleSlash, models.FormatRoundRobin:
	default:
		return ErrValidationFailed
	}
	switch input.ParticipantType {
	case models.ParticipantSingle, models.ParticipantDoubles:
	default:
		return ErrValidationFailed
	}
	if input.Gender != "" {
		switch input.Gender {
		case models.GenderAny, models.GenderMale, models.GenderFemale:
		default:
			return ErrValidationFailed
		}
	}
	if input.MaxParticipants != nil && *input.MaxParticipants < 2 {
		return ErrValidationFailed
	}
	return nil
}
