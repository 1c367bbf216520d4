package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
	"github.com/matchpoint-hq/backend/storage"
	"golang.org/x/sync/errgroup"
)

type TournamentService interface {
	Create(ctx context.Context, input TournamentInput, createdBy int) (*models.Tournament, error)
	GetByID(ctx context.Context, id int, withDivisions bool) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.TournamentFilter) ([]*models.Tournament, error)
	Update(ctx context.Context, id int, input TournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error)
	Delete(ctx context.Context, id int) error
	UploadLogo(ctx context.Context, id int, contentType string, file io.Reader) (*models.Tournament, error)
}

type TournamentInput struct {
	OrganizationID       int        `json:"organization_id"`
	Name                 string     `json:"name"`
	Description          *string    `json:"description"`
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	City                 *string    `json:"city"`
	Country              *string    `json:"country"`
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	orgRepo        repositories.OrganizationRepository
	divisionRepo   repositories.DivisionRepository
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	orgRepo repositories.OrganizationRepository,
	divisionRepo repositories.DivisionRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		orgRepo:        orgRepo,
		divisionRepo:   divisionRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input TournamentInput, createdBy int) (*models.Tournament, error) {
	name := normalizedName(input.Name)
	if name == "" || input.OrganizationID <= 0 {
		return nil, ErrValidationFailed
	}
	if err := validateTournamentDates(input); err != nil {
		return nil, err
	}

	org, err := s.orgRepo.GetByID(ctx, input.OrganizationID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrganizationNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to load organization %d: %w", input.OrganizationID, err)
	}
	if !org.IsActive {
		return nil, ErrForbiddenOperation
	}

	tournament := &models.Tournament{
		OrganizationID:       input.OrganizationID,
		Name:                 name,
		Description:          input.Description,
		Status:               models.TournamentDraft,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationDeadline: input.RegistrationDeadline,
		City:                 input.City,
		Country:              input.Country,
		CreatedBy:            &createdBy,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int, withDivisions bool) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	tournament.LogoURL = populateLogoURL(tournament.LogoKey, s.uploader)

	if !withDivisions {
		return tournament, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		org, err := s.orgRepo.GetByID(gctx, tournament.OrganizationID)
		if err != nil {
			return fmt.Errorf("failed to load organization %d: %w", tournament.OrganizationID, err)
		}
		org.LogoURL = populateLogoURL(org.LogoKey, s.uploader)
		tournament.Organization = org
		return nil
	})
	g.Go(func() error {
		divisions, err := s.divisionRepo.ListByTournament(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to load divisions for tournament %d: %w", id, err)
		}
		tournament.Divisions = make([]models.TournamentDivision, 0, len(divisions))
		for _, division := range divisions {
			tournament.Divisions = append(tournament.Divisions, *division)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.TournamentFilter) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for _, tournament := range tournaments {
		tournament.LogoURL = populateLogoURL(tournament.LogoKey, s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, id int, input TournamentInput) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.TournamentCompleted || tournament.Status == models.TournamentCancelled {
		return nil, ErrTournamentNotEditable
	}
	if err := validateTournamentDates(input); err != nil {
		return nil, err
	}

	if name := normalizedName(input.Name); name != "" {
		tournament.Name = name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.StartDate != nil {
		tournament.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = input.EndDate
	}
	if input.RegistrationDeadline != nil {
		tournament.RegistrationDeadline = input.RegistrationDeadline
	}
	if input.City != nil {
		tournament.City = input.City
	}
	if input.Country != nil {
		tournament.Country = input.Country
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error) {
	switch status {
	case models.TournamentDraft, models.TournamentPublished, models.TournamentInProgress,
		models.TournamentCompleted, models.TournamentCancelled:
	default:
		return nil, ErrValidationFailed
	}

	tournament, err := s.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if !isValidTournamentTransition(tournament.Status, status) {
		return nil, ErrTournamentInvalidStatusTransition
	}
	if tournament.Status == status {
		return tournament, nil
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	s.logger.InfoContext(ctx, "tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("from", string(tournament.Status)),
		slog.String("to", string(status)))

	tournament.Status = status
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id int) error {
	tournament, err := s.GetByID(ctx, id, false)
	if err != nil {
		return err
	}
	// Only drafts can be removed outright; anything visible to players is
	// cancelled instead.
	if tournament.Status != models.TournamentDraft {
		return ErrTournamentNotEditable
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id int, contentType string, file io.Reader) (*models.Tournament, error) {
	tournament, err := s.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, ErrValidationFailed
	}

	key := fmt.Sprintf("tournaments/%d/logo-%s%s", id, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}

	oldKey := tournament.LogoKey
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist tournament logo key: %w", err)
	}
	if oldKey != nil && *oldKey != "" && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous tournament logo",
				slog.Int("tournament_id", id), slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	tournament.LogoKey = &result.Key
	tournament.LogoURL = &result.Location
	return tournament, nil
}

func validateTournamentDates(input TournamentInput) error {
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return ErrValidationFailed
	}
	if input.RegistrationDeadline != nil && input.StartDate != nil && input.RegistrationDeadline.After(*input.StartDate) {
		return ErrValidationFailed
	}
	return nil
}
