package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/matchpoint-hq/backend/models"
)

var (
	ErrInvolvementNotFound = errors.New("involvement not found")
	ErrInvolvementConflict = errors.New("player is already registered in this division")
)

type InvolvementRepository interface {
	Create(ctx context.Context, involvement *models.Involvement) error
	GetByID(ctx context.Context, id int) (*models.Involvement, error)
	ListByDivision(ctx context.Context, divisionID int, status *models.InvolvementStatus) ([]*models.Involvement, error)
	IsPlayerApproved(ctx context.Context, divisionID, playerID int) (bool, error)
	UpdateStatus(ctx context.Context, id int, status models.InvolvementStatus, approvedBy *int, approvedAt *time.Time) error
	Delete(ctx context.Context, id int) error
}

type postgresInvolvementRepository struct {
	db *sql.DB
}

func NewPostgresInvolvementRepository(db *sql.DB) InvolvementRepository {
	return &postgresInvolvementRepository{db: db}
}

const involvementColumns = `id, division_id, player_id, partner_id, status, paid, created_at, approved_at, approved_by`

func scanInvolvement(row interface{ Scan(...interface{}) error }, inv *models.Involvement) error {
	return row.Scan(
		&inv.ID,
		&inv.DivisionID,
		&inv.PlayerID,
		&inv.PartnerID,
		&inv.Status,
		&inv.Paid,
		&inv.CreatedAt,
		&inv.ApprovedAt,
		&inv.ApprovedBy,
	)
}

func (r *postgresInvolvementRepository) Create(ctx context.Context, involvement *models.Involvement) error {
	query := `
		INSERT INTO involvements (division_id, player_id, partner_id, status, paid)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		involvement.DivisionID,
		involvement.PlayerID,
		involvement.PartnerID,
		involvement.Status,
		involvement.Paid,
	).Scan(&involvement.ID, &involvement.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrInvolvementConflict
		}
		return fmt.Errorf("failed to create involvement: %w", err)
	}
	return nil
}

func (r *postgresInvolvementRepository) GetByID(ctx context.Context, id int) (*models.Involvement, error) {
	query := `SELECT ` + involvementColumns + ` FROM involvements WHERE id = $1`

	involvement := &models.Involvement{}
	if err := scanInvolvement(r.db.QueryRowContext(ctx, query, id), involvement); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvolvementNotFound
		}
		return nil, fmt.Errorf("failed to scan involvement %d: %w", id, err)
	}
	return involvement, nil
}

func (r *postgresInvolvementRepository) ListByDivision(ctx context.Context, divisionID int, status *models.InvolvementStatus) ([]*models.Involvement, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + involvementColumns + ` FROM involvements WHERE division_id = $1`)

	args := []interface{}{divisionID}
	if status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(len(args)+1))
		args = append(args, *status)
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query involvements for division %d: %w", divisionID, err)
	}
	defer rows.Close()

	involvements := make([]*models.Involvement, 0)
	for rows.Next() {
		involvement := &models.Involvement{}
		if err := scanInvolvement(rows, involvement); err != nil {
			return nil, fmt.Errorf("failed to scan involvement row: %w", err)
		}
		involvements = append(involvements, involvement)
	}
	return involvements, rows.Err()
}

// IsPlayerApproved reports whether the player appears in an approved
// involvement of the division, either as the registrant or as a partner.
func (r *postgresInvolvementRepository) IsPlayerApproved(ctx context.Context, divisionID, playerID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM involvements
			WHERE division_id = $1 AND status = $2 AND (player_id = $3 OR partner_id = $3)
		)`

	var approved bool
	err := r.db.QueryRowContext(ctx, query, divisionID, models.InvolvementApproved, playerID).Scan(&approved)
	if err != nil {
		return false, fmt.Errorf("failed to check approval for player %d in division %d: %w", playerID, divisionID, err)
	}
	return approved, nil
}

func (r *postgresInvolvementRepository) UpdateStatus(ctx context.Context, id int, status models.InvolvementStatus, approvedBy *int, approvedAt *time.Time) error {
	query := `
		UPDATE involvements
		SET status = $1, approved_by = $2, approved_at = $3
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, status, approvedBy, approvedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update involvement %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrInvolvementNotFound)
}

func (r *postgresInvolvementRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM involvements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete involvement %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrInvolvementNotFound)
}
