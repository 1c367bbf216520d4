package models

import "time"

// TournamentStatus mirrors the tournament_status enum in the database.
type TournamentStatus string

const (
	TournamentDraft      TournamentStatus = "draft"
	TournamentPublished  TournamentStatus = "published"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentCompleted  TournamentStatus = "completed"
	TournamentCancelled  TournamentStatus = "cancelled"
)

type Tournament struct {
	ID                   int              `json:"id" db:"id"`
	OrganizationID       int              `json:"organization_id" db:"organization_id"`
	Name                 string           `json:"name" db:"name"`
	Description          *string          `json:"description,omitempty" db:"description"`
	Status               TournamentStatus `json:"status" db:"status"`
	StartDate            *time.Time       `json:"start_date,omitempty" db:"start_date"`
	EndDate              *time.Time       `json:"end_date,omitempty" db:"end_date"`
	RegistrationDeadline *time.Time       `json:"registration_deadline,omitempty" db:"registration_deadline"`
	City                 *string          `json:"city,omitempty" db:"city"`
	Country              *string          `json:"country,omitempty" db:"country"`
	LogoKey              *string          `json:"-" db:"logo_key"`
	LogoURL              *string          `json:"logo_url,omitempty" db:"-"`
	CreatedBy            *int             `json:"created_by,omitempty" db:"created_by"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`

	// Optional related entities, populated by services.
	Organization *Organization        `json:"organization,omitempty" db:"-"`
	Divisions    []TournamentDivision `json:"divisions,omitempty" db:"-"`
}
