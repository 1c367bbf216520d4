package models

import "time"

// DivisionFormat determines how a division's bracket is built.
type DivisionFormat string

const (
	FormatKnockout    DivisionFormat = "knockout"     // single elimination
	FormatDoubleSlash DivisionFormat = "double_slash" // double elimination
	FormatRoundRobin  DivisionFormat = "round_robin"
)

type ParticipantType string

const (
	ParticipantSingle  ParticipantType = "single"
	ParticipantDoubles ParticipantType = "doubles"
)

type TournamentDivision struct {
	ID              int             `json:"id" db:"id"`
	TournamentID    int             `json:"tournament_id" db:"tournament_id"`
	Name            string          `json:"name" db:"name"`
	Format          DivisionFormat  `json:"format" db:"format"`
	ParticipantType ParticipantType `json:"participant_type" db:"participant_type"`
	Gender          Gender          `json:"gender" db:"gender"`
	MaxParticipants *int            `json:"max_participants,omitempty" db:"max_participants"`
	IsPublished     bool            `json:"is_published" db:"is_published"`
	PublishedAt     *time.Time      `json:"published_at,omitempty" db:"published_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`

	Tournament *Tournament `json:"tournament,omitempty" db:"-"`
}
