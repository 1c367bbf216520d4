package models

import "time"

type MatchType string

const (
	MatchSingles MatchType = "singles"
	MatchDoubles MatchType = "doubles"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchCancelled  MatchStatus = "cancelled"
)

type SetWinner string

const (
	SetWinnerPlayer1 SetWinner = "player1"
	SetWinnerPlayer2 SetWinner = "player2"
)

// GrandFinalRound is the sentinel round number used for grand final matches
// in double elimination brackets.
const GrandFinalRound = 999

const (
	DefaultMaxSets      = 5
	DefaultPointsPerSet = 15

	MinMaxSets      = 3
	MaxMaxSets      = 10
	MinPointsPerSet = 1
	MaxPointsPerSet = 50
)

// Match is one node of a division's bracket. Player1/Player2 are the two
// slots; either may be nil while the match waits for a feeder match to
// complete, and a match with exactly one occupant and no pending feeder is a
// bye. NextMatchID routes the winner forward, LoserNextMatchID routes the
// loser into the losers bracket for double elimination. Both are weak
// references: the match does not own its successors.
type Match struct {
	ID         int    `json:"id" db:"id"`
	DivisionID int    `json:"division_id" db:"division_id"`
	MatchCode  string `json:"match_code" db:"match_code"`

	Player1ID  *int `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID  *int `json:"player2_id,omitempty" db:"player2_id"`
	Partner1ID *int `json:"partner1_id,omitempty" db:"partner1_id"`
	Partner2ID *int `json:"partner2_id,omitempty" db:"partner2_id"`

	MatchType    MatchType   `json:"match_type" db:"match_type"`
	Status       MatchStatus `json:"status" db:"status"`
	MaxSets      int         `json:"max_sets" db:"max_sets"`
	PointsPerSet int         `json:"points_per_set" db:"points_per_set"`

	RoundNumber      *int `json:"round_number,omitempty" db:"round_number"`
	IsLosersBracket  bool `json:"is_losers_bracket" db:"is_losers_bracket"`
	NextMatchID      *int `json:"next_match_id,omitempty" db:"next_match_id"`
	LoserNextMatchID *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`

	WinnerID        *int `json:"winner_id,omitempty" db:"winner_id"`
	WinnerPartnerID *int `json:"winner_partner_id,omitempty" db:"winner_partner_id"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	Location  *string   `json:"location,omitempty" db:"location"`
	Notes     string    `json:"notes" db:"notes"`
	CreatedBy *int      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Sets []Set `json:"sets,omitempty" db:"-"`
}

// SetsToWin is the majority of MaxSets.
func (m *Match) SetsToWin() int {
	return m.MaxSets/2 + 1
}

func (m *Match) IsFinalized() bool {
	return m.Status == MatchCompleted || m.Status == MatchCancelled
}

// OccupantCount reports how many of the two slots hold a participant.
func (m *Match) OccupantCount() int {
	n := 0
	if m.Player1ID != nil {
		n++
	}
	if m.Player2ID != nil {
		n++
	}
	return n
}

// SetsWonByPlayer1 counts decided sets on the loaded Sets slice.
func (m *Match) SetsWonByPlayer1() int {
	n := 0
	for _, s := range m.Sets {
		if s.Winner != nil && *s.Winner == SetWinnerPlayer1 {
			n++
		}
	}
	return n
}

func (m *Match) SetsWonByPlayer2() int {
	n := 0
	for _, s := range m.Sets {
		if s.Winner != nil && *s.Winner == SetWinnerPlayer2 {
			n++
		}
	}
	return n
}

// Set is one unit of scoring within a match, owned by the match and deleted
// with it. Winner stays nil until one side reaches the match's points per
// set with the higher score.
type Set struct {
	ID           int        `json:"id" db:"id"`
	MatchID      int        `json:"match_id" db:"match_id"`
	SetNumber    int        `json:"set_number" db:"set_number"`
	Player1Score int        `json:"player1_score" db:"player1_score"`
	Player2Score int        `json:"player2_score" db:"player2_score"`
	Winner       *SetWinner `json:"winner,omitempty" db:"winner"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
