package models

import "time"

type InvolvementStatus string

const (
	InvolvementPending  InvolvementStatus = "pending"
	InvolvementApproved InvolvementStatus = "approved"
	InvolvementRejected InvolvementStatus = "rejected"
)

// Involvement is a player's (or pair's) registration in a division.
// PartnerID is set only for doubles divisions.
type Involvement struct {
	ID         int               `json:"id" db:"id"`
	DivisionID int               `json:"division_id" db:"division_id"`
	PlayerID   int               `json:"player_id" db:"player_id"`
	PartnerID  *int              `json:"partner_id,omitempty" db:"partner_id"`
	Status     InvolvementStatus `json:"status" db:"status"`
	Paid       bool              `json:"paid" db:"paid"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	ApprovedAt *time.Time        `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedBy *int              `json:"approved_by,omitempty" db:"approved_by"`

	Player  *PlayerProfile `json:"player,omitempty" db:"-"`
	Partner *PlayerProfile `json:"partner,omitempty" db:"-"`
}
