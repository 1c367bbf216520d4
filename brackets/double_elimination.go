package brackets

import (
	"context"

	"github.com/matchpoint-hq/backend/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() Generator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Name() string {
	return "DoubleElimination"
}

// feeder references the outcome of an already-planned match: its winner, or
// its loser when dropping into the losers bracket.
type feeder struct {
	idx   int
	loser bool
}

func (g *DoubleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*PlannedMatch, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	sides := shuffledSides(params)

	// Winners bracket: identical topology to single elimination.
	winnerCodes := &codeSeq{prefix: "M"}
	plan, wbRounds := buildEliminationRounds(sides, winnerCodes, false)

	// Losers bracket: winners-round-one losers pair up first, then each
	// later winners round drops its losers onto the survivors, with a
	// consolidation round in between whenever more than one survivor
	// remains. Byes never produce a loser.
	loserCodes := &codeSeq{prefix: "LM"}
	lbRound := 0

	survivors := make([]feeder, 0)
	if drop := loserFeeders(plan, wbRounds[0]); len(drop) > 0 {
		lbRound++
		survivors = makeLosersRound(&plan, loserCodes, lbRound, drop)
	}
	for r := 1; r < len(wbRounds); r++ {
		joined := append(survivors, loserFeeders(plan, wbRounds[r])...)
		if len(joined) > 1 {
			lbRound++
			survivors = makeLosersRound(&plan, loserCodes, lbRound, joined)
		} else {
			survivors = joined
		}
		if len(survivors) > 1 {
			lbRound++
			survivors = makeLosersRound(&plan, loserCodes, lbRound, survivors)
		}
	}
	for len(survivors) > 1 {
		lbRound++
		survivors = makeLosersRound(&plan, loserCodes, lbRound, survivors)
	}

	// Grand final between the two bracket champions. The reset match, if the
	// losers-bracket champion takes the grand final, is created lazily by
	// the scoring engine rather than planned here.
	grandFinal := &PlannedMatch{
		Code:  "GF1",
		Round: models.GrandFinalRound,
	}
	plan = append(plan, grandFinal)
	gfIdx := len(plan) - 1

	wbFinal := wbRounds[len(wbRounds)-1][0]
	plan[wbFinal].NextIndex = intPtr(gfIdx)
	for _, f := range survivors {
		wireFeeder(plan, f, gfIdx)
	}

	resolveByes(plan)
	return plan, nil
}

// loserFeeders returns loser-side feeders for the playable matches of one
// winners-bracket round.
func loserFeeders(plan []*PlannedMatch, round []int) []feeder {
	feeders := make([]feeder, 0, len(round))
	for _, idx := range round {
		if plan[idx].IsBye {
			continue
		}
		feeders = append(feeders, feeder{idx: idx, loser: true})
	}
	return feeders
}

// makeLosersRound creates one losers-bracket round consuming the given
// feeders pairwise and returns winner feeders for the created matches. An
// odd feeder out yields a single-feeder match, which is a bye.
func makeLosersRound(plan *[]*PlannedMatch, codes *codeSeq, round int, feeders []feeder) []feeder {
	next := make([]feeder, 0, (len(feeders)+1)/2)
	for i := 0; i < len(feeders); i += 2 {
		m := &PlannedMatch{
			Code:            codes.next(),
			Round:           round,
			IsLosersBracket: true,
		}
		*plan = append(*plan, m)
		idx := len(*plan) - 1

		wireFeeder(*plan, feeders[i], idx)
		if i+1 < len(feeders) {
			wireFeeder(*plan, feeders[i+1], idx)
		} else {
			m.IsBye = true
		}
		next = append(next, feeder{idx: idx})
	}
	return next
}

func wireFeeder(plan []*PlannedMatch, f feeder, target int) {
	if f.loser {
		plan[f.idx].LoserNextIndex = intPtr(target)
	} else {
		plan[f.idx].NextIndex = intPtr(target)
	}
}
