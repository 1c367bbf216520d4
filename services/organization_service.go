package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
	"github.com/matchpoint-hq/backend/storage"
)

type OrganizationService interface {
	Create(ctx context.Context, input OrganizationInput, createdBy int) (*models.Organization, error)
	GetByID(ctx context.Context, id int) (*models.Organization, error)
	List(ctx context.Context, onlyActive bool) ([]*models.Organization, error)
	Update(ctx context.Context, id int, input OrganizationInput) (*models.Organization, error)
	Deactivate(ctx context.Context, id int) error
	UploadLogo(ctx context.Context, id int, contentType string, file io.Reader) (*models.Organization, error)
}

type OrganizationInput struct {
	Name  string  `json:"name"`
	TaxID *string `json:"tax_id"`
}

type organizationService struct {
	orgRepo  repositories.OrganizationRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewOrganizationService(orgRepo repositories.OrganizationRepository, uploader storage.FileUploader, logger *slog.Logger) OrganizationService {
	return &organizationService{
		orgRepo:  orgRepo,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *organizationService) Create(ctx context.Context, input OrganizationInput, createdBy int) (*models.Organization, error) {
	name := normalizedName(input.Name)
	if name == "" {
		return nil, ErrValidationFailed
	}

	org := &models.Organization{
		Name:      name,
		TaxID:     input.TaxID,
		CreatedBy: &createdBy,
		IsActive:  true,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		if errors.Is(err, repositories.ErrOrganizationNameConflict) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

func (s *organizationService) GetByID(ctx context.Context, id int) (*models.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrOrganizationNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization %d: %w", id, err)
	}
	org.LogoURL = populateLogoURL(org.LogoKey, s.uploader)
	return org, nil
}

func (s *organizationService) List(ctx context.Context, onlyActive bool) ([]*models.Organization, error) {
	orgs, err := s.orgRepo.List(ctx, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	for _, org := range orgs {
		org.LogoURL = populateLogoURL(org.LogoKey, s.uploader)
	}
	return orgs, nil
}

func (s *organizationService) Update(ctx context.Context, id int, input OrganizationInput) (*models.Organization, error) {
	org, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := normalizedName(input.Name); name != "" {
		org.Name = name
	}
	if input.TaxID != nil {
		org.TaxID = input.TaxID
	}

	if err := s.orgRepo.Update(ctx, org); err != nil {
		if errors.Is(err, repositories.ErrOrganizationNameConflict) {
			return nil, ErrValidationFailed
		}
		return nil, fmt.Errorf("failed to update organization %d: %w", id, err)
	}
	return org, nil
}

func (s *organizationService) Deactivate(ctx context.Context, id int) error {
	org, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	org.IsActive = false
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return fmt.Errorf("failed to deactivate organization %d: %w", id, err)
	}
	return nil
}

func (s *organizationService) UploadLogo(ctx context.Context, id int, contentType string, file io.Reader) (*models.Organization, error) {
	org, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, ErrValidationFailed
	}

	key := fmt.Sprintf("organizations/%d/logo-%s%s", id, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload organization logo: %w", err)
	}

	oldKey := org.LogoKey
	if err := s.orgRepo.UpdateLogoKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist organization logo key: %w", err)
	}

	if oldKey != nil && *oldKey != "" && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous organization logo",
				slog.Int("organization_id", id), slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	org.LogoKey = &result.Key
	org.LogoURL = &result.Location
	return org, nil
}
