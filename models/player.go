package models

import (
	"fmt"
	"time"
)

type Gender string

const (
	GenderAny    Gender = "any"
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// PlayerProfile is the competitive identity referenced by matches and
// involvements. UserID is nil for profiles an admin created on behalf of a
// player who has not claimed an account yet.
type PlayerProfile struct {
	ID          int        `json:"id" db:"id"`
	UserID      *int       `json:"user_id,omitempty" db:"user_id"`
	FirstName   string     `json:"first_name" db:"first_name"`
	LastName    string     `json:"last_name" db:"last_name"`
	Gender      Gender     `json:"gender" db:"gender"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	City        *string    `json:"city,omitempty" db:"city"`
	Country     *string    `json:"country,omitempty" db:"country"`
	AvatarKey   *string    `json:"-" db:"avatar_key"`
	AvatarURL   *string    `json:"avatar_url,omitempty" db:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

func (p PlayerProfile) FullName() string {
	return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
}
