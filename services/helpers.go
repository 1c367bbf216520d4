package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/storage"
)

// runInTx executes fn inside a transaction, rolling back on error or panic.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isValidTournamentTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowed := map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentDraft:      {models.TournamentPublished, models.TournamentCancelled},
		models.TournamentPublished:  {models.TournamentInProgress, models.TournamentCancelled},
		models.TournamentInProgress: {models.TournamentCompleted, models.TournamentCancelled},
		models.TournamentCompleted:  {},
		models.TournamentCancelled:  {},
	}
	for _, status := range allowed[current] {
		if next == status {
			return true
		}
	}
	return false
}

func populateLogoURL(logoKey *string, uploader storage.FileUploader) *string {
	if logoKey == nil || *logoKey == "" || uploader == nil {
		return nil
	}
	if url := uploader.GetPublicURL(*logoKey); url != "" {
		return &url
	}
	return nil
}

// extensionFromContentType resolves the file extension for uploaded images.
func extensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("unsupported image content type: %q", contentType)
	}
}

func normalizedName(name string) string {
	return strings.TrimSpace(name)
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
