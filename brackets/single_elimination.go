package brackets

import (
	"context"
	"fmt"
)

// codeSeq issues sequential match codes (M1, M2, ... or LM1, LM2, ...).
// Codes are never reused within one generation.
type codeSeq struct {
	prefix string
	n      int
}

func (c *codeSeq) next() string {
	c.n++
	return fmt.Sprintf("%s%d", c.prefix, c.n)
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*PlannedMatch, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	sides := shuffledSides(params)
	codes := &codeSeq{prefix: "M"}

	plan, _ := buildEliminationRounds(sides, codes, false)
	resolveByes(plan)
	return plan, nil
}

// buildEliminationRounds constructs a single-elimination tree over sides.
// Round one pairs consecutive sides, an odd leftover becoming a bye; each
// later round holds ceil(previous/2) empty matches fed by winner links. A
// later-round match with a single feeder can never receive a second
// occupant, so it is flagged as a bye up front.
//
// Returns the plan and the match indices grouped by round, leaf to final.
func buildEliminationRounds(sides []Side, codes *codeSeq, losersBracket bool) ([]*PlannedMatch, [][]int) {
	plan := make([]*PlannedMatch, 0, 2*len(sides))
	var rounds [][]int

	// Round 1: consecutive pairs, odd side out gets a bye.
	first := make([]int, 0, (len(sides)+1)/2)
	for i := 0; i+1 < len(sides); i += 2 {
		s1, s2 := sides[i], sides[i+1]
		plan = append(plan, &PlannedMatch{
			Code:            codes.next(),
			Round:           1,
			IsLosersBracket: losersBracket,
			Slot1:           &s1,
			Slot2:           &s2,
		})
		first = append(first, len(plan)-1)
	}
	if len(sides)%2 == 1 {
		last := sides[len(sides)-1]
		plan = append(plan, &PlannedMatch{
			Code:            codes.next(),
			Round:           1,
			IsLosersBracket: losersBracket,
			Slot1:           &last,
			IsBye:           true,
		})
		first = append(first, len(plan)-1)
	}
	rounds = append(rounds, first)

	// Later rounds: empty matches wired to their feeders.
	for round := 2; len(rounds[len(rounds)-1]) > 1; round++ {
		prev := rounds[len(rounds)-1]
		current := make([]int, 0, (len(prev)+1)/2)
		for i := 0; i < len(prev); i += 2 {
			m := &PlannedMatch{
				Code:            codes.next(),
				Round:           round,
				IsLosersBracket: losersBracket,
			}
			plan = append(plan, m)
			idx := len(plan) - 1

			plan[prev[i]].NextIndex = intPtr(idx)
			if i+1 < len(prev) {
				plan[prev[i+1]].NextIndex = intPtr(idx)
			} else {
				m.IsBye = true
			}
			current = append(current, idx)
		}
		rounds = append(rounds, current)
	}

	return plan, rounds
}

func intPtr(v int) *int {
	return &v
}
