package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matchpoint-hq/backend/models"
)

var ErrDivisionNotFound = errors.New("tournament division not found")

type DivisionRepository interface {
	Create(ctx context.Context, division *models.TournamentDivision) error
	GetByID(ctx context.Context, id int) (*models.TournamentDivision, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentDivision, error)
	Update(ctx context.Context, division *models.TournamentDivision) error
	SetPublished(ctx context.Context, id int, published bool, publishedAt *time.Time) error
	Delete(ctx context.Context, id int) error
}

type postgresDivisionRepository struct {
	db *sql.DB
}

func NewPostgresDivisionRepository(db *sql.DB) DivisionRepository {
	return &postgresDivisionRepository{db: db}
}

const divisionColumns = `id, tournament_id, name, format, participant_type, gender,
	max_participants, is_published, published_at, created_at, updated_at`

func scanDivision(row interface{ Scan(...interface{}) error }, d *models.TournamentDivision) error {
	return row.Scan(
		&d.ID,
		&d.TournamentID,
		&d.Name,
		&d.Format,
		&d.ParticipantType,
		&d.Gender,
		&d.MaxParticipants,
		&d.IsPublished,
		&d.PublishedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
}

func (r *postgresDivisionRepository) Create(ctx context.Context, division *models.TournamentDivision) error {
	query := `
		INSERT INTO tournament_divisions
			(tournament_id, name, format, participant_type, gender, max_participants)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		division.TournamentID,
		division.Name,
		division.Format,
		division.ParticipantType,
		division.Gender,
		division.MaxParticipants,
	).Scan(&division.ID, &division.CreatedAt, &division.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create division: %w", err)
	}
	return nil
}

func (r *postgresDivisionRepository) GetByID(ctx context.Context, id int) (*models.TournamentDivision, error) {
	query := `SELECT ` + divisionColumns + ` FROM tournament_divisions WHERE id = $1`

	division := &models.TournamentDivision{}
	if err := scanDivision(r.db.QueryRowContext(ctx, query, id), division); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDivisionNotFound
		}
		return nil, fmt.Errorf("failed to scan division %d: %w", id, err)
	}
	return division, nil
}

func (r *postgresDivisionRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentDivision, error) {
	query := `SELECT ` + divisionColumns + ` FROM tournament_divisions WHERE tournament_id = $1 ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query divisions for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	divisions := make([]*models.TournamentDivision, 0)
	for rows.Next() {
		division := &models.TournamentDivision{}
		if err := scanDivision(rows, division); err != nil {
			return nil, fmt.Errorf("failed to scan division row: %w", err)
		}
		divisions = append(divisions, division)
	}
	return divisions, rows.Err()
}

func (r *postgresDivisionRepository) Update(ctx context.Context, division *models.TournamentDivision) error {
	query := `
		UPDATE tournament_divisions
		SET name = $1, format = $2, participant_type = $3, gender = $4,
		    max_participants = $5, updated_at = NOW()
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		division.Name,
		division.Format,
		division.ParticipantType,
		division.Gender,
		division.MaxParticipants,
		division.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update division %d: %w", division.ID, err)
	}
	return checkAffectedRows(result, ErrDivisionNotFound)
}

func (r *postgresDivisionRepository) SetPublished(ctx context.Context, id int, published bool, publishedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournament_divisions SET is_published = $1, published_at = $2, updated_at = NOW() WHERE id = $3`,
		published, publishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to publish division %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDivisionNotFound)
}

func (r *postgresDivisionRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournament_divisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete division %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrDivisionNotFound)
}
