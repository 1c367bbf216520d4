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

type PlayerService interface {
	Create(ctx context.Context, input PlayerInput) (*models.PlayerProfile, error)
	GetByID(ctx context.Context, id int) (*models.PlayerProfile, error)
	List(ctx context.Context, filter repositories.PlayerFilter) ([]*models.PlayerProfile, error)
	Update(ctx context.Context, id int, input PlayerInput) (*models.PlayerProfile, error)
	Delete(ctx context.Context, id int) error
	UploadAvatar(ctx context.Context, id int, contentType string, file io.Reader) (*models.PlayerProfile, error)
}

type PlayerInput struct {
	UserID      *int          `json:"user_id"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	Gender      models.Gender `json:"gender"`
	DateOfBirth *string       `json:"date_of_birth"`
	City        *string       `json:"city"`
	Country     *string       `json:"country"`
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewPlayerService(playerRepo repositories.PlayerRepository, uploader storage.FileUploader, logger *slog.Logger) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *playerService) Create(ctx context.Context, input PlayerInput) (*models.PlayerProfile, error) {
	player, err := buildPlayer(&models.PlayerProfile{Gender: models.GenderAny}, input)
	if err != nil {
		return nil, err
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to create player profile: %w", err)
	}
	return player, nil
}

func (s *playerService) GetByID(ctx context.Context, id int) (*models.PlayerProfile, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	player.AvatarURL = populateLogoURL(player.AvatarKey, s.uploader)
	return player, nil
}

func (s *playerService) List(ctx context.Context, filter repositories.PlayerFilter) ([]*models.PlayerProfile, error) {
	players, err := s.playerRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	for _, player := range players {
		player.AvatarURL = populateLogoURL(player.AvatarKey, s.uploader)
	}
	return players, nil
}

func (s *playerService) Update(ctx context.Context, id int, input PlayerInput) (*models.PlayerProfile, error) {
	player, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	player, err = buildPlayer(player, input)
	if err != nil {
		return nil, err
	}
	if err := s.playerRepo.Update(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player %d: %w", id, err)
	}
	return player, nil
}

func (s *playerService) Delete(ctx context.Context, id int) error {
	if err := s.playerRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("failed to delete player %d: %w", id, err)
	}
	return nil
}

func (s *playerService) UploadAvatar(ctx context.Context, id int, contentType string, file io.Reader) (*models.PlayerProfile, error) {
	player, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return nil, ErrValidationFailed
	}

	key := fmt.Sprintf("players/%d/avatar-%s%s", id, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload player avatar: %w", err)
	}

	oldKey := player.AvatarKey
	if err := s.playerRepo.UpdateAvatarKey(ctx, id, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to persist player avatar key: %w", err)
	}
	if oldKey != nil && *oldKey != "" && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous player avatar",
				slog.Int("player_id", id), slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	player.AvatarKey = &result.Key
	player.AvatarURL = &result.Location
	return player, nil
}

func buildPlayer(player *models.PlayerProfile, input PlayerInput) (*models.PlayerProfile, error) {
	if name := normalizedName(input.FirstName); name != "" {
		player.FirstName = name
	}
	if name := normalizedName(input.LastName); name != "" {
		player.LastName = name
	}
	if player.FirstName == "" || player.LastName == "" {
		return nil, ErrValidationFailed
	}

	if input.Gender != "" {
		switch input.Gender {
		case models.GenderAny, models.GenderMale, models.GenderFemale:
			player.Gender = input.Gender
		default:
			return nil, ErrValidationFailed
		}
	}
	if input.UserID != nil {
		player.UserID = input.UserID
	}
	if input.City != nil {
		player.City = input.City
	}
	if input.Country != nil {
		player.Country = input.Country
	}
	if input.DateOfBirth != nil {
		dob, err := parseDate(*input.DateOfBirth)
		if err != nil {
			return nil, ErrValidationFailed
		}
		player.DateOfBirth = dob
	}
	return player, nil
}
