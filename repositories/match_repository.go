package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/matchpoint-hq/backend/models"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchCodeConflict = errors.New("match code already exists in division")
)

// MatchFilter narrows List results; nil fields are not applied.
type MatchFilter struct {
	DivisionID      *int
	TournamentID    *int
	Status          *models.MatchStatus
	MatchType       *models.MatchType
	RoundNumber     *int
	IsLosersBracket *bool
	PlayerID        *int
	MatchCode       string
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// GetForUpdate loads the match inside exec's transaction with a row lock,
	// serializing concurrent score submissions for the same match.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	List(ctx context.Context, filter MatchFilter) ([]*models.Match, error)
	CountByDivision(ctx context.Context, exec SQLExecutor, divisionID int) (int, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateLinks(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID, loserNextMatchID *int) error
	// CountPendingFeeders counts matches still owing an occupant to the given
	// match, via either a winner or a loser link. Cancelled feeders count as
	// pending: their slot stays unfillable until an operator intervenes.
	CountPendingFeeders(ctx context.Context, exec SQLExecutor, matchID int) (int, error)
	ListFeeders(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Match, error)
	HasDependents(ctx context.Context, id int) (bool, error)
	Delete(ctx context.Context, id int) error
	DeleteByDivision(ctx context.Context, exec SQLExecutor, divisionID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, division_id, match_code, player1_id, player2_id, partner1_id, partner2_id, match_type, status, max_sets, points_per_set, round_number, is_losers_bracket, next_match_id, loser_next_match_id, winner_id, winner_partner_id, scheduled_at, started_at, completed_at, location, notes, created_by, created_at, updated_at`

func scanMatch(row interface{ Scan(...interface{}) error }, m *models.Match) error {
	return row.Scan(
		&m.ID,
		&m.DivisionID,
		&m.MatchCode,
		&m.Player1ID,
		&m.Player2ID,
		&m.Partner1ID,
		&m.Partner2ID,
		&m.MatchType,
		&m.Status,
		&m.MaxSets,
		&m.PointsPerSet,
		&m.RoundNumber,
		&m.IsLosersBracket,
		&m.NextMatchID,
		&m.LoserNextMatchID,
		&m.WinnerID,
		&m.WinnerPartnerID,
		&m.ScheduledAt,
		&m.StartedAt,
		&m.CompletedAt,
		&m.Location,
		&m.Notes,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO matches
			(division_id, match_code, player1_id, player2_id, partner1_id, partner2_id,
			 match_type, status, max_sets, points_per_set, round_number, is_losers_bracket,
			 next_match_id, loser_next_match_id, winner_id, winner_partner_id,
			 scheduled_at, started_at, completed_at, location, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query,
		match.DivisionID,
		match.MatchCode,
		match.Player1ID,
		match.Player2ID,
		match.Partner1ID,
		match.Partner2ID,
		match.MatchType,
		match.Status,
		match.MaxSets,
		match.PointsPerSet,
		match.RoundNumber,
		match.IsLosersBracket,
		match.NextMatchID,
		match.LoserNextMatchID,
		match.WinnerID,
		match.WinnerPartnerID,
		match.ScheduledAt,
		match.StartedAt,
		match.CompletedAt,
		match.Location,
		match.Notes,
		match.CreatedBy,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	return handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.getOne(ctx, r.db, query, id)
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, exec, query, id)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Match, error) {
	match := &models.Match{}
	if err := scanMatch(exec.QueryRowContext(ctx, query, id), match); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) List(ctx context.Context, filter MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT m.` + strings.ReplaceAll(matchColumns, ", ", ", m.") + ` FROM matches m`)

	if filter.TournamentID != nil {
		queryBuilder.WriteString(` JOIN tournament_divisions d ON d.id = m.division_id`)
	}
	queryBuilder.WriteString(` WHERE TRUE`)

	args := make([]interface{}, 0, 6)
	addCond := func(cond string, value interface{}) {
		args = append(args, value)
		queryBuilder.WriteString(" AND " + cond + "$" + strconv.Itoa(len(args)))
	}

	if filter.DivisionID != nil {
		addCond("m.division_id = ", *filter.DivisionID)
	}
	if filter.TournamentID != nil {
		addCond("d.tournament_id = ", *filter.TournamentID)
	}
	if filter.Status != nil {
		addCond("m.status = ", *filter.Status)
	}
	if filter.MatchType != nil {
		addCond("m.match_type = ", *filter.MatchType)
	}
	if filter.RoundNumber != nil {
		addCond("m.round_number = ", *filter.RoundNumber)
	}
	if filter.IsLosersBracket != nil {
		addCond("m.is_losers_bracket = ", *filter.IsLosersBracket)
	}
	if filter.PlayerID != nil {
		args = append(args, *filter.PlayerID)
		ph := "$" + strconv.Itoa(len(args))
		queryBuilder.WriteString(" AND (m.player1_id = " + ph + " OR m.player2_id = " + ph +
			" OR m.partner1_id = " + ph + " OR m.partner2_id = " + ph + ")")
	}
	if filter.MatchCode != "" {
		addCond("m.match_code ILIKE ", "%"+filter.MatchCode+"%")
	}

	queryBuilder.WriteString(" ORDER BY m.division_id, m.is_losers_bracket, m.round_number NULLS LAST, m.id")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match := &models.Match{}
		if err := scanMatch(rows, match); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) CountByDivision(ctx context.Context, exec SQLExecutor, divisionID int) (int, error) {
	if exec == nil {
		exec = r.db
	}
	var count int
	err := exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE division_id = $1`, divisionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for division %d: %w", divisionID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		UPDATE matches
		SET match_code = $1, player1_id = $2, player2_id = $3, partner1_id = $4, partner2_id = $5,
		    status = $6, max_sets = $7, points_per_set = $8,
		    winner_id = $9, winner_partner_id = $10,
		    scheduled_at = $11, started_at = $12, completed_at = $13,
		    location = $14, notes = $15, updated_at = NOW()
		WHERE id = $16`

	result, err := exec.ExecContext(ctx, query,
		match.MatchCode,
		match.Player1ID,
		match.Player2ID,
		match.Partner1ID,
		match.Partner2ID,
		match.Status,
		match.MaxSets,
		match.PointsPerSet,
		match.WinnerID,
		match.WinnerPartnerID,
		match.ScheduledAt,
		match.StartedAt,
		match.CompletedAt,
		match.Location,
		match.Notes,
		match.ID,
	)
	if err != nil {
		return handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, matchID int, nextMatchID, loserNextMatchID *int) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx,
		`UPDATE matches SET next_match_id = $1, loser_next_match_id = $2, updated_at = NOW() WHERE id = $3`,
		nextMatchID, loserNextMatchID, matchID)
	if err != nil {
		return fmt.Errorf("failed to update match %d links: %w", matchID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountPendingFeeders(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT COUNT(*) FROM matches
		WHERE (next_match_id = $1 OR loser_next_match_id = $1) AND status <> $2`

	var count int
	err := exec.QueryRowContext(ctx, query, matchID, models.MatchCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending feeders for match %d: %w", matchID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) ListFeeders(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.Match, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE next_match_id = $1 OR loser_next_match_id = $1
		ORDER BY id`

	rows, err := exec.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeders for match %d: %w", matchID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0, 2)
	for rows.Next() {
		match := &models.Match{}
		if err := scanMatch(rows, match); err != nil {
			return nil, fmt.Errorf("failed to scan feeder row: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) HasDependents(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM matches WHERE next_match_id = $1 OR loser_next_match_id = $1)`,
		id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check dependents for match %d: %w", id, err)
	}
	return exists, nil
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByDivision(ctx context.Context, exec SQLExecutor, divisionID int) error {
	if exec == nil {
		exec = r.db
	}
	// Clear self-references first so the delete does not trip the FK.
	if _, err := exec.ExecContext(ctx,
		`UPDATE matches SET next_match_id = NULL, loser_next_match_id = NULL WHERE division_id = $1`,
		divisionID); err != nil {
		return fmt.Errorf("failed to unlink matches for division %d: %w", divisionID, err)
	}
	if _, err := exec.ExecContext(ctx,
		`DELETE FROM matches WHERE division_id = $1`, divisionID); err != nil {
		return fmt.Errorf("failed to delete matches for division %d: %w", divisionID, err)
	}
	return nil
}

func handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrMatchCodeConflict
	}
	return fmt.Errorf("match repository: %w", err)
}
