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

var ErrPlayerNotFound = errors.New("player profile not found")

// PlayerFilter narrows List results; zero values mean no filtering.
type PlayerFilter struct {
	Gender  *models.Gender
	Country *string
	Search  string
}

type PlayerRepository interface {
	Create(ctx context.Context, player *models.PlayerProfile) error
	GetByID(ctx context.Context, id int) (*models.PlayerProfile, error)
	GetByUserID(ctx context.Context, userID int) (*models.PlayerProfile, error)
	GetByIDs(ctx context.Context, ids []int) (map[int]*models.PlayerProfile, error)
	List(ctx context.Context, filter PlayerFilter) ([]*models.PlayerProfile, error)
	Update(ctx context.Context, player *models.PlayerProfile) error
	Delete(ctx context.Context, id int) error
	UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, user_id, first_name, last_name, gender, date_of_birth, city, country, avatar_key, created_at, updated_at`

func scanPlayer(row interface{ Scan(...interface{}) error }, p *models.PlayerProfile) error {
	return row.Scan(
		&p.ID,
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Gender,
		&p.DateOfBirth,
		&p.City,
		&p.Country,
		&p.AvatarKey,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.PlayerProfile) error {
	query := `
		INSERT INTO player_profiles (user_id, first_name, last_name, gender, date_of_birth, city, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		player.UserID,
		player.FirstName,
		player.LastName,
		player.Gender,
		player.DateOfBirth,
		player.City,
		player.Country,
	).Scan(&player.ID, &player.CreatedAt, &player.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create player profile: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.PlayerProfile, error) {
	query := `SELECT ` + playerColumns + ` FROM player_profiles WHERE id = $1`

	player := &models.PlayerProfile{}
	if err := scanPlayer(r.db.QueryRowContext(ctx, query, id), player); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player %d: %w", id, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) GetByUserID(ctx context.Context, userID int) (*models.PlayerProfile, error) {
	query := `SELECT ` + playerColumns + ` FROM player_profiles WHERE user_id = $1`

	player := &models.PlayerProfile{}
	if err := scanPlayer(r.db.QueryRowContext(ctx, query, userID), player); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player for user %d: %w", userID, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) GetByIDs(ctx context.Context, ids []int) (map[int]*models.PlayerProfile, error) {
	players := make(map[int]*models.PlayerProfile, len(ids))
	if len(ids) == 0 {
		return players, nil
	}

	query := `SELECT ` + playerColumns + ` FROM player_profiles WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query players by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		player := &models.PlayerProfile{}
		if err := scanPlayer(rows, player); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players[player.ID] = player
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) List(ctx context.Context, filter PlayerFilter) ([]*models.PlayerProfile, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + playerColumns + ` FROM player_profiles WHERE TRUE`)

	args := make([]interface{}, 0, 3)
	placeholder := 1

	if filter.Gender != nil {
		queryBuilder.WriteString(" AND gender = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.Gender)
		placeholder++
	}
	if filter.Country != nil {
		queryBuilder.WriteString(" AND country = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.Country)
		placeholder++
	}
	if filter.Search != "" {
		queryBuilder.WriteString(" AND (first_name ILIKE $" + strconv.Itoa(placeholder) +
			" OR last_name ILIKE $" + strconv.Itoa(placeholder) + ")")
		args = append(args, "%"+filter.Search+"%")
	}

	queryBuilder.WriteString(" ORDER BY last_name ASC, first_name ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.PlayerProfile, 0)
	for rows.Next() {
		player := &models.PlayerProfile{}
		if err := scanPlayer(rows, player); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) Update(ctx context.Context, player *models.PlayerProfile) error {
	query := `
		UPDATE player_profiles
		SET first_name = $1, last_name = $2, gender = $3, date_of_birth = $4,
		    city = $5, country = $6, updated_at = NOW()
		WHERE id = $7`

	result, err := r.db.ExecContext(ctx, query,
		player.FirstName,
		player.LastName,
		player.Gender,
		player.DateOfBirth,
		player.City,
		player.Country,
		player.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update player %d: %w", player.ID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM player_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE player_profiles SET avatar_key = $1, updated_at = NOW() WHERE id = $2`, avatarKey, id)
	if err != nil {
		return fmt.Errorf("failed to update player %d avatar: %w", id, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
