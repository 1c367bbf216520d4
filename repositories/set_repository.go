package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/matchpoint-hq/backend/models"
)

type SetRepository interface {
	// Upsert inserts the set or, when a row for (match_id, set_number) already
	// exists, overwrites its scores. Resubmitting a set is a correction.
	Upsert(ctx context.Context, exec SQLExecutor, set *models.Set) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.Set, error)
	ListByMatchIDs(ctx context.Context, matchIDs []int) (map[int][]models.Set, error)
	DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID int) error
}

type postgresSetRepository struct {
	db *sql.DB
}

func NewPostgresSetRepository(db *sql.DB) SetRepository {
	return &postgresSetRepository{db: db}
}

func (r *postgresSetRepository) Upsert(ctx context.Context, exec SQLExecutor, set *models.Set) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO match_sets (match_id, set_number, player1_score, player2_score, winner, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, set_number) DO UPDATE
		SET player1_score = EXCLUDED.player1_score,
		    player2_score = EXCLUDED.player2_score,
		    winner = EXCLUDED.winner,
		    completed_at = EXCLUDED.completed_at
		RETURNING id`

	err := exec.QueryRowContext(ctx, query,
		set.MatchID,
		set.SetNumber,
		set.Player1Score,
		set.Player2Score,
		set.Winner,
		set.CompletedAt,
	).Scan(&set.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert set %d of match %d: %w", set.SetNumber, set.MatchID, err)
	}
	return nil
}

func (r *postgresSetRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]models.Set, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT id, match_id, set_number, player1_score, player2_score, winner, completed_at
		FROM match_sets
		WHERE match_id = $1
		ORDER BY set_number`

	rows, err := exec.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sets for match %d: %w", matchID, err)
	}
	defer rows.Close()

	return collectSets(rows)
}

func (r *postgresSetRepository) ListByMatchIDs(ctx context.Context, matchIDs []int) (map[int][]models.Set, error) {
	if len(matchIDs) == 0 {
		return map[int][]models.Set{}, nil
	}

	query := `
		SELECT id, match_id, set_number, player1_score, player2_score, winner, completed_at
		FROM match_sets
		WHERE match_id = ANY($1)
		ORDER BY match_id, set_number`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(matchIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query sets for matches: %w", err)
	}
	defer rows.Close()

	sets, err := collectSets(rows)
	if err != nil {
		return nil, err
	}

	byMatch := make(map[int][]models.Set, len(matchIDs))
	for _, set := range sets {
		byMatch[set.MatchID] = append(byMatch[set.MatchID], set)
	}
	return byMatch, nil
}

func (r *postgresSetRepository) DeleteByMatch(ctx context.Context, exec SQLExecutor, matchID int) error {
	if exec == nil {
		exec = r.db
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM match_sets WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to delete sets for match %d: %w", matchID, err)
	}
	return nil
}

func collectSets(rows *sql.Rows) ([]models.Set, error) {
	sets := make([]models.Set, 0)
	for rows.Next() {
		var set models.Set
		if err := rows.Scan(&set.ID, &set.MatchID, &set.SetNumber,
			&set.Player1Score, &set.Player2Score, &set.Winner, &set.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan set row: %w", err)
		}
		sets = append(sets, set)
	}
	return sets, rows.Err()
}
