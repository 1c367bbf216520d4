package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/matchpoint-hq/backend/models"
)

var (
	ErrOrganizationNotFound     = errors.New("organization not found")
	ErrOrganizationNameConflict = errors.New("organization name already exists")
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id int) (*models.Organization, error)
	List(ctx context.Context, onlyActive bool) ([]*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id int) error
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
}

type postgresOrganizationRepository struct {
	db *sql.DB
}

func NewPostgresOrganizationRepository(db *sql.DB) OrganizationRepository {
	return &postgresOrganizationRepository{db: db}
}

const organizationColumns = `id, name, tax_id, logo_key, created_by, is_active, created_at, updated_at`

func scanOrganization(row interface{ Scan(...interface{}) error }, org *models.Organization) error {
	return row.Scan(
		&org.ID,
		&org.Name,
		&org.TaxID,
		&org.LogoKey,
		&org.CreatedBy,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
}

func (r *postgresOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, tax_id, created_by, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		org.Name,
		org.TaxID,
		org.CreatedBy,
		org.IsActive,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)

	return handleOrganizationError(err)
}

func (r *postgresOrganizationRepository) GetByID(ctx context.Context, id int) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`

	org := &models.Organization{}
	err := scanOrganization(r.db.QueryRowContext(ctx, query, id), org)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to scan organization %d: %w", id, err)
	}
	return org, nil
}

func (r *postgresOrganizationRepository) List(ctx context.Context, onlyActive bool) ([]*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations`
	if onlyActive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]*models.Organization, 0)
	for rows.Next() {
		org := &models.Organization{}
		if err := scanOrganization(rows, org); err != nil {
			return nil, fmt.Errorf("failed to scan organization row: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *postgresOrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $1, tax_id = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, org.Name, org.TaxID, org.IsActive, org.ID)
	if err != nil {
		return handleOrganizationError(err)
	}
	return checkAffectedRows(result, ErrOrganizationNotFound)
}

func (r *postgresOrganizationRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrOrganizationNotFound)
}

func (r *postgresOrganizationRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE organizations SET logo_key = $1, updated_at = NOW() WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update organization %d logo: %w", id, err)
	}
	return checkAffectedRows(result, ErrOrganizationNotFound)
}

func handleOrganizationError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrOrganizationNameConflict
	}
	return fmt.Errorf("organization repository: %w", err)
}
