package brackets

import (
	"context"
	"errors"
	"math/rand"

	"github.com/matchpoint-hq/backend/models"
)

var (
	ErrInsufficientParticipants = errors.New("at least 2 participants are required to generate a bracket")
	ErrConfigurationOutOfRange  = errors.New("match configuration out of range")
)

// Side is one bracket participant: a player, or a player with a partner for
// doubles divisions. The builder treats it as an opaque reference.
type Side struct {
	PlayerID  int
	PartnerID *int
}

// GenerateParams carries everything a generator needs. Rand is the seeding
// source: generation shuffles participants uniformly and callers inject a
// fixed-seed source in tests.
type GenerateParams struct {
	Participants []Side
	MaxSets      int
	PointsPerSet int
	Rand         *rand.Rand
}

// PlannedMatch is one match of a computed bracket, not yet persisted.
// Matches reference each other by index into the generated slice; the
// orchestrator resolves indices to database ids after insertion.
//
// Byes are resolved during generation: a match with a single occupant and no
// feeder for its empty slot is created already completed, with its winner
// propagated forward through the plan.
type PlannedMatch struct {
	Code            string
	Round           int
	IsLosersBracket bool

	Slot1 *Side
	Slot2 *Side

	// NextIndex is where the winner advances, LoserNextIndex where the loser
	// drops (double elimination only). Nil for the final.
	NextIndex      *int
	LoserNextIndex *int

	// IsBye marks matches that can never receive a second occupant: round-one
	// odd participants and later-round matches with a single feeder.
	IsBye     bool
	Completed bool
	Winner    *Side
}

// Generator computes a bracket plan from an ordered participant list.
// Implementations are pure: no side effects, no persistence.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) ([]*PlannedMatch, error)
	Name() string
}

func validateParams(params GenerateParams) error {
	if len(params.Participants) < 2 {
		return ErrInsufficientParticipants
	}
	if params.MaxSets < models.MinMaxSets || params.MaxSets > models.MaxMaxSets {
		return ErrConfigurationOutOfRange
	}
	if params.PointsPerSet < models.MinPointsPerSet || params.PointsPerSet > models.MaxPointsPerSet {
		return ErrConfigurationOutOfRange
	}
	return nil
}

func shuffledSides(params GenerateParams) []Side {
	shuffled := make([]Side, len(params.Participants))
	copy(shuffled, params.Participants)
	if params.Rand != nil {
		params.Rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
	}
	return shuffled
}

// placeSide puts a side into the first empty slot of m (slot1 if vacant,
// otherwise slot2).
func placeSide(m *PlannedMatch, s *Side) {
	if m.Slot1 == nil {
		m.Slot1 = s
	} else if m.Slot2 == nil {
		m.Slot2 = s
	}
}

// resolveByes walks the plan in creation order and completes every bye whose
// sole occupant is already known, propagating the winner forward. Creation
// order is round order, so cascades through consecutive byes settle in one
// pass.
func resolveByes(plan []*PlannedMatch) {
	for _, m := range plan {
		if !m.IsBye || m.Completed {
			continue
		}
		occupant := m.Slot1
		if occupant == nil {
			occupant = m.Slot2
		}
		if occupant == nil {
			continue // feeder not decided at build time, resolves at play time
		}
		m.Completed = true
		m.Winner = occupant
		if m.NextIndex != nil {
			placeSide(plan[*m.NextIndex], occupant)
		}
	}
}
