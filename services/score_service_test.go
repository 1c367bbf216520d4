package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-hq/backend/brackets"
	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
)

// stubConnector backs a *sql.DB whose transactions are no-ops, so the
// transactional flow can run against in-memory repositories.
type stubConnector struct{}

func (stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn{}, nil }
func (stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) add(match *models.Match) *models.Match {
	if match.ID == 0 {
		match.ID = r.nextID
	}
	if match.ID >= r.nextID {
		r.nextID = match.ID + 1
	}
	clone := *match
	r.matches[match.ID] = &clone
	return match
}

func (r *fakeMatchRepo) get(id int) *models.Match {
	return r.matches[id]
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	for _, existing := range r.matches {
		if existing.DivisionID == match.DivisionID && existing.MatchCode == match.MatchCode {
			return repositories.ErrMatchCodeConflict
		}
	}
	r.add(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	clone := *match
	return &clone, nil
}

func (r *fakeMatchRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMatchRepo) List(ctx context.Context, filter repositories.MatchFilter) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if filter.DivisionID != nil && m.DivisionID != *filter.DivisionID {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) CountByDivision(ctx context.Context, exec repositories.SQLExecutor, divisionID int) (int, error) {
	n := 0
	for _, m := range r.matches {
		if m.DivisionID == divisionID {
			n++
		}
	}
	return n, nil
}

func (r *fakeMatchRepo) Update(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if _, ok := r.matches[match.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	clone := *match
	r.matches[match.ID] = &clone
	return nil
}

func (r *fakeMatchRepo) UpdateLinks(ctx context.Context, exec repositories.SQLExecutor, matchID int, nextMatchID, loserNextMatchID *int) error {
	match, ok := r.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	match.NextMatchID = nextMatchID
	match.LoserNextMatchID = loserNextMatchID
	return nil
}

func (r *fakeMatchRepo) CountPendingFeeders(ctx context.Context, exec repositories.SQLExecutor, matchID int) (int, error) {
	n := 0
	for _, m := range r.matches {
		feeds := (m.NextMatchID != nil && *m.NextMatchID == matchID) ||
			(m.LoserNextMatchID != nil && *m.LoserNextMatchID == matchID)
		if feeds && m.Status != models.MatchCompleted {
			n++
		}
	}
	return n, nil
}

func (r *fakeMatchRepo) ListFeeders(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.Match, error) {
	var feeders []*models.Match
	for _, m := range r.matches {
		if (m.NextMatchID != nil && *m.NextMatchID == matchID) ||
			(m.LoserNextMatchID != nil && *m.LoserNextMatchID == matchID) {
			clone := *m
			feeders = append(feeders, &clone)
		}
	}
	sort.Slice(feeders, func(i, j int) bool { return feeders[i].ID < feeders[j].ID })
	return feeders, nil
}

func (r *fakeMatchRepo) HasDependents(ctx context.Context, id int) (bool, error) {
	n, _ := r.CountPendingFeeders(ctx, nil, id)
	return n > 0, nil
}

func (r *fakeMatchRepo) Delete(ctx context.Context, id int) error {
	delete(r.matches, id)
	return nil
}

func (r *fakeMatchRepo) DeleteByDivision(ctx context.Context, exec repositories.SQLExecutor, divisionID int) error {
	for id, m := range r.matches {
		if m.DivisionID == divisionID {
			delete(r.matches, id)
		}
	}
	return nil
}

type fakeSetRepo struct {
	sets   map[int]map[int]models.Set
	nextID int
}

func newFakeSetRepo() *fakeSetRepo {
	return &fakeSetRepo{sets: make(map[int]map[int]models.Set), nextID: 1}
}

func (r *fakeSetRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, set *models.Set) error {
	byNumber, ok := r.sets[set.MatchID]
	if !ok {
		byNumber = make(map[int]models.Set)
		r.sets[set.MatchID] = byNumber
	}
	if existing, ok := byNumber[set.SetNumber]; ok {
		set.ID = existing.ID
	} else {
		set.ID = r.nextID
		r.nextID++
	}
	byNumber[set.SetNumber] = *set
	return nil
}

func (r *fakeSetRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]models.Set, error) {
	var sets []models.Set
	for _, s := range r.sets[matchID] {
		sets = append(sets, s)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].SetNumber < sets[j].SetNumber })
	return sets, nil
}

func (r *fakeSetRepo) ListByMatchIDs(ctx context.Context, matchIDs []int) (map[int][]models.Set, error) {
	out := make(map[int][]models.Set)
	for _, id := range matchIDs {
		sets, _ := r.ListByMatch(ctx, nil, id)
		if len(sets) > 0 {
			out[id] = sets
		}
	}
	return out, nil
}

func (r *fakeSetRepo) DeleteByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) error {
	delete(r.sets, matchID)
	return nil
}

type fakeBroadcaster struct {
	events []brackets.Event
	rooms  []string
}

func (b *fakeBroadcaster) BroadcastToRoom(room string, event brackets.Event) {
	b.rooms = append(b.rooms, room)
	b.events = append(b.events, event)
}

type scoreFixture struct {
	service     ScoreService
	matchRepo   *fakeMatchRepo
	setRepo     *fakeSetRepo
	broadcaster *fakeBroadcaster
	clock       *clockwork.FakeClock
}

func newScoreFixture(t *testing.T) *scoreFixture {
	t.Helper()

	db := sql.OpenDB(stubConnector{})
	t.Cleanup(func() { db.Close() })

	matchRepo := newFakeMatchRepo()
	setRepo := newFakeSetRepo()
	broadcaster := &fakeBroadcaster{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &scoreFixture{
		service:     NewScoreService(db, matchRepo, setRepo, clock, logger, broadcaster),
		matchRepo:   matchRepo,
		setRepo:     setRepo,
		broadcaster: broadcaster,
		clock:       clock,
	}
}

func intPtr(v int) *int { return &v }

func pendingMatch(id, divisionID int, player1, player2 *int) *models.Match {
	return &models.Match{
		ID:           id,
		DivisionID:   divisionID,
		MatchCode:    fmt.Sprintf("M%d", id),
		Player1ID:    player1,
		Player2ID:    player2,
		MatchType:    models.MatchSingles,
		Status:       models.MatchPending,
		MaxSets:      models.DefaultMaxSets,
		PointsPerSet: models.DefaultPointsPerSet,
		RoundNumber:  intPtr(1),
	}
}

func TestRecordSetsValidation(t *testing.T) {
	f := newScoreFixture(t)
	f.matchRepo.add(pendingMatch(1, 10, intPtr(101), intPtr(102)))

	testCases := []struct {
		name    string
		matchID int
		input   RecordSetsInput
		wantErr error
	}{
		{
			name:    "empty batch",
			matchID: 1,
			input:   RecordSetsInput{},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "unknown match",
			matchID: 99,
			input:   RecordSetsInput{Sets: []SetScoreInput{{SetNumber: 1, Player1Score: 15}}},
			wantErr: ErrMatchNotFound,
		},
		{
			name:    "set number above max",
			matchID: 1,
			input:   RecordSetsInput{Sets: []SetScoreInput{{SetNumber: 6, Player1Score: 15}}},
			wantErr: ErrSetNumberExceedsMax,
		},
		{
			name:    "set number zero",
			matchID: 1,
			input:   RecordSetsInput{Sets: []SetScoreInput{{SetNumber: 0, Player1Score: 15}}},
			wantErr: ErrSetNumberExceedsMax,
		},
		{
			name:    "negative score",
			matchID: 1,
			input:   RecordSetsInput{Sets: []SetScoreInput{{SetNumber: 1, Player1Score: -1}}},
			wantErr: ErrNegativeScore,
		},
		{
			name:    "duplicate set number in batch",
			matchID: 1,
			input: RecordSetsInput{Sets: []SetScoreInput{
				{SetNumber: 1, Player1Score: 15, Player2Score: 3},
				{SetNumber: 1, Player1Score: 2, Player2Score: 15},
			}},
			wantErr: ErrValidationFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.RecordSets(context.Background(), tc.matchID, tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRecordSetsRejectsFinalizedAndIncompleteMatches(t *testing.T) {
	f := newScoreFixture(t)

	completed := pendingMatch(1, 10, intPtr(101), intPtr(102))
	completed.Status = models.MatchCompleted
	f.matchRepo.add(completed)

	cancelled := pendingMatch(2, 10, intPtr(101), intPtr(102))
	cancelled.Status = models.MatchCancelled
	f.matchRepo.add(cancelled)

	halfEmpty := pendingMatch(3, 10, intPtr(101), nil)
	f.matchRepo.add(halfEmpty)

	input := RecordSetsInput{Sets: []SetScoreInput{{SetNumber: 1, Player1Score: 15, Player2Score: 10}}}

	_, err := f.service.RecordSets(context.Background(), 1, input)
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)

	_, err = f.service.RecordSets(context.Background(), 2, input)
	assert.ErrorIs(t, err, ErrMatchCancelled)

	_, err = f.service.RecordSets(context.Background(), 3, input)
	assert.ErrorIs(t, err, ErrMatchSlotsIncomplete)
}

func TestRecordSetsDrivesMatchToCompletion(t *testing.T) {
	f := newScoreFixture(t)
	f.matchRepo.add(pendingMatch(1, 10, intPtr(101), intPtr(102)))
	ctx := context.Background()

	// First set moves the match out of pending.
	match, err := f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 10},
	}})
	require.NoError(t, err)
	assert.Equal(t, models.MatchInProgress, match.Status)
	require.NotNil(t, match.StartedAt)
	assert.Nil(t, match.WinnerID)

	// Two more decided sets leave the tally at 2-1, still short of three.
	match, err = f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 2, Player1Score: 8, Player2Score: 15},
		{SetNumber: 3, Player1Score: 15, Player2Score: 9},
	}})
	require.NoError(t, err)
	assert.Equal(t, models.MatchInProgress, match.Status)
	assert.Equal(t, 2, match.SetsWonByPlayer1())
	assert.Equal(t, 1, match.SetsWonByPlayer2())

	// The third set win completes the match.
	match, err = f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 4, Player1Score: 15, Player2Score: 11},
	}})
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, match.Status)
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, 101, *match.WinnerID)
	require.NotNil(t, match.CompletedAt)

	_, err = f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 5, Player1Score: 15, Player2Score: 0},
	}})
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
}

func TestRecordSetsUndecidedSetsDoNotCount(t *testing.T) {
	f := newScoreFixture(t)
	f.matchRepo.add(pendingMatch(1, 10, intPtr(101), intPtr(102)))

	// Higher score below the points threshold leaves the set open.
	match, err := f.service.RecordSets(context.Background(), 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 10, Player2Score: 8},
		{SetNumber: 2, Player1Score: 14, Player2Score: 3},
		{SetNumber: 3, Player1Score: 12, Player2Score: 12},
	}})
	require.NoError(t, err)
	assert.Equal(t, models.MatchInProgress, match.Status)
	assert.Equal(t, 0, match.SetsWonByPlayer1())
	assert.Equal(t, 0, match.SetsWonByPlayer2())
	for _, set := range match.Sets {
		assert.Nil(t, set.Winner)
	}
}

func TestRecordSetsCorrectionChangesOutcome(t *testing.T) {
	f := newScoreFixture(t)
	f.matchRepo.add(pendingMatch(1, 10, intPtr(101), intPtr(102)))
	ctx := context.Background()

	match, err := f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 10},
		{SetNumber: 2, Player1Score: 15, Player2Score: 12},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, match.SetsWonByPlayer1())

	// Resubmitting set 2 flips it to player two; the tally follows the stored
	// rows, not the submission history.
	match, err = f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 2, Player1Score: 13, Player2Score: 15},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, match.SetsWonByPlayer1())
	assert.Equal(t, 1, match.SetsWonByPlayer2())
	assert.Equal(t, models.MatchInProgress, match.Status)
	assert.Len(t, match.Sets, 2)
}

func TestRecordSetsIdenticalResubmissionIsIdempotent(t *testing.T) {
	f := newScoreFixture(t)
	f.matchRepo.add(pendingMatch(1, 10, intPtr(101), intPtr(102)))
	ctx := context.Background()

	first, err := f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 10},
		{SetNumber: 2, Player1Score: 11, Player2Score: 15},
	}})
	require.NoError(t, err)
	assert.Equal(t, models.MatchInProgress, first.Status)

	// Submitting the exact same scores again overwrites each row in place and
	// changes nothing about the match.
	second, err := f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 10},
		{SetNumber: 2, Player1Score: 11, Player2Score: 15},
	}})
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.StartedAt, second.StartedAt)
	assert.Nil(t, second.WinnerID)
	require.Len(t, second.Sets, 2)
	for i, set := range second.Sets {
		assert.Equal(t, first.Sets[i].ID, set.ID)
		assert.Equal(t, first.Sets[i].Player1Score, set.Player1Score)
		assert.Equal(t, first.Sets[i].Player2Score, set.Player2Score)
		assert.Equal(t, first.Sets[i].Winner, set.Winner)
	}
	assert.Equal(t, first.SetsWonByPlayer1(), second.SetsWonByPlayer1())
	assert.Equal(t, first.SetsWonByPlayer2(), second.SetsWonByPlayer2())
}

func TestRecordSetsPropagatesWinnerAndLoser(t *testing.T) {
	f := newScoreFixture(t)
	ctx := context.Background()

	final := f.matchRepo.add(pendingMatch(3, 10, nil, nil))
	consolation := pendingMatch(4, 10, nil, nil)
	consolation.IsLosersBracket = true
	f.matchRepo.add(consolation)

	semi1 := pendingMatch(1, 10, intPtr(101), intPtr(102))
	semi1.NextMatchID = &final.ID
	semi1.LoserNextMatchID = &consolation.ID
	f.matchRepo.add(semi1)

	semi2 := pendingMatch(2, 10, intPtr(103), intPtr(104))
	semi2.NextMatchID = &final.ID
	semi2.LoserNextMatchID = &consolation.ID
	f.matchRepo.add(semi2)

	_, err := f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 3},
		{SetNumber: 2, Player1Score: 15, Player2Score: 5},
		{SetNumber: 3, Player1Score: 15, Player2Score: 7},
	}})
	require.NoError(t, err)

	// Winner into the final's first slot, loser into the consolation match.
	gotFinal := f.matchRepo.get(3)
	require.NotNil(t, gotFinal.Player1ID)
	assert.Equal(t, 101, *gotFinal.Player1ID)
	assert.Nil(t, gotFinal.Player2ID)
	assert.Equal(t, models.MatchPending, gotFinal.Status)

	gotConsolation := f.matchRepo.get(4)
	require.NotNil(t, gotConsolation.Player1ID)
	assert.Equal(t, 102, *gotConsolation.Player1ID)
	assert.Equal(t, models.MatchPending, gotConsolation.Status)

	// The second semifinal fills the remaining slots.
	_, err = f.service.RecordSets(ctx, 2, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 2, Player2Score: 15},
		{SetNumber: 2, Player1Score: 4, Player2Score: 15},
		{SetNumber: 3, Player1Score: 6, Player2Score: 15},
	}})
	require.NoError(t, err)

	gotFinal = f.matchRepo.get(3)
	require.NotNil(t, gotFinal.Player2ID)
	assert.Equal(t, 104, *gotFinal.Player2ID)

	gotConsolation = f.matchRepo.get(4)
	require.NotNil(t, gotConsolation.Player2ID)
	assert.Equal(t, 103, *gotConsolation.Player2ID)
}

func TestRecordSetsResolvesByeChain(t *testing.T) {
	f := newScoreFixture(t)
	ctx := context.Background()

	// Match 2 has a single feeder, so once the winner arrives it is a bye and
	// the winner cascades into match 3.
	final := f.matchRepo.add(pendingMatch(3, 10, intPtr(200), nil))
	bye := pendingMatch(2, 10, nil, nil)
	bye.NextMatchID = &final.ID
	f.matchRepo.add(bye)

	opener := pendingMatch(1, 10, intPtr(101), intPtr(102))
	opener.NextMatchID = &bye.ID
	f.matchRepo.add(opener)

	_, err := f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 1},
		{SetNumber: 2, Player1Score: 15, Player2Score: 2},
		{SetNumber: 3, Player1Score: 15, Player2Score: 3},
	}})
	require.NoError(t, err)

	gotBye := f.matchRepo.get(2)
	assert.Equal(t, models.MatchCompleted, gotBye.Status)
	require.NotNil(t, gotBye.WinnerID)
	assert.Equal(t, 101, *gotBye.WinnerID)
	require.NotNil(t, gotBye.CompletedAt)

	gotFinal := f.matchRepo.get(3)
	assert.Equal(t, models.MatchPending, gotFinal.Status)
	require.NotNil(t, gotFinal.Player2ID)
	assert.Equal(t, 101, *gotFinal.Player2ID)
}

func TestRecordSetsByeWaitsForPendingFeeder(t *testing.T) {
	f := newScoreFixture(t)
	ctx := context.Background()

	target := f.matchRepo.add(pendingMatch(3, 10, nil, nil))

	opener := pendingMatch(1, 10, intPtr(101), intPtr(102))
	opener.NextMatchID = &target.ID
	f.matchRepo.add(opener)

	other := pendingMatch(2, 10, intPtr(103), intPtr(104))
	other.NextMatchID = &target.ID
	f.matchRepo.add(other)

	_, err := f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 1},
		{SetNumber: 2, Player1Score: 15, Player2Score: 2},
		{SetNumber: 3, Player1Score: 15, Player2Score: 3},
	}})
	require.NoError(t, err)

	// The sibling match is still owing a participant, so no bye.
	gotTarget := f.matchRepo.get(3)
	assert.Equal(t, models.MatchPending, gotTarget.Status)
	require.NotNil(t, gotTarget.Player1ID)
	assert.Equal(t, 101, *gotTarget.Player1ID)
	assert.Nil(t, gotTarget.WinnerID)
}

func TestRecordSetsSkipsFinalizedSuccessor(t *testing.T) {
	f := newScoreFixture(t)
	ctx := context.Background()

	successor := pendingMatch(2, 10, intPtr(50), intPtr(51))
	successor.Status = models.MatchCancelled
	f.matchRepo.add(successor)

	opener := pendingMatch(1, 10, intPtr(101), intPtr(102))
	opener.NextMatchID = &successor.ID
	f.matchRepo.add(opener)

	_, err := f.service.RecordSets(ctx, 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 1},
		{SetNumber: 2, Player1Score: 15, Player2Score: 2},
		{SetNumber: 3, Player1Score: 15, Player2Score: 3},
	}})
	require.NoError(t, err)

	got := f.matchRepo.get(2)
	assert.Equal(t, models.MatchCancelled, got.Status)
	require.NotNil(t, got.Player1ID)
	assert.Equal(t, 50, *got.Player1ID)
}

func grandFinalFixture(f *scoreFixture) *models.Match {
	gf := pendingMatch(10, 10, intPtr(101), intPtr(102))
	gf.MatchCode = "GF1"
	gf.RoundNumber = intPtr(models.GrandFinalRound)
	f.matchRepo.add(gf)

	// Winners bracket final sent player 101 up.
	wbFinal := pendingMatch(8, 10, intPtr(101), intPtr(103))
	wbFinal.Status = models.MatchCompleted
	wbFinal.WinnerID = intPtr(101)
	wbFinal.NextMatchID = &gf.ID
	f.matchRepo.add(wbFinal)

	// Losers bracket final sent player 102 up.
	lbFinal := pendingMatch(9, 10, intPtr(102), intPtr(104))
	lbFinal.IsLosersBracket = true
	lbFinal.Status = models.MatchCompleted
	lbFinal.WinnerID = intPtr(102)
	lbFinal.NextMatchID = &gf.ID
	f.matchRepo.add(lbFinal)

	return gf
}

func TestRecordSetsGrandFinalResetWhenLosersChampionWins(t *testing.T) {
	f := newScoreFixture(t)
	gf := grandFinalFixture(f)

	_, err := f.service.RecordSets(context.Background(), gf.ID, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 1, Player2Score: 15},
		{SetNumber: 2, Player1Score: 2, Player2Score: 15},
		{SetNumber: 3, Player1Score: 3, Player2Score: 15},
	}})
	require.NoError(t, err)

	var reset *models.Match
	for _, m := range f.matchRepo.matches {
		if m.MatchCode == "GF2" {
			reset = m
		}
	}
	require.NotNil(t, reset, "losers champion winning the grand final forces a reset")
	assert.Equal(t, models.MatchPending, reset.Status)
	assert.Equal(t, gf.DivisionID, reset.DivisionID)
	require.NotNil(t, reset.RoundNumber)
	assert.Equal(t, models.GrandFinalRound, *reset.RoundNumber)
	require.NotNil(t, reset.Player1ID)
	require.NotNil(t, reset.Player2ID)
	assert.Equal(t, 101, *reset.Player1ID)
	assert.Equal(t, 102, *reset.Player2ID)
}

func TestRecordSetsNoResetWhenWinnersChampionWins(t *testing.T) {
	f := newScoreFixture(t)
	gf := grandFinalFixture(f)

	_, err := f.service.RecordSets(context.Background(), gf.ID, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 1},
		{SetNumber: 2, Player1Score: 15, Player2Score: 2},
		{SetNumber: 3, Player1Score: 15, Player2Score: 3},
	}})
	require.NoError(t, err)

	for _, m := range f.matchRepo.matches {
		assert.NotEqual(t, "GF2", m.MatchCode, "undefeated champion ends the bracket")
	}
}

func TestRecordSetsBroadcastsToDivisionRoom(t *testing.T) {
	f := newScoreFixture(t)
	f.matchRepo.add(pendingMatch(1, 42, intPtr(101), intPtr(102)))

	_, err := f.service.RecordSets(context.Background(), 1, RecordSetsInput{Sets: []SetScoreInput{
		{SetNumber: 1, Player1Score: 15, Player2Score: 10},
	}})
	require.NoError(t, err)

	require.NotEmpty(t, f.broadcaster.rooms)
	assert.Equal(t, "division:42", f.broadcaster.rooms[0])
	assert.Equal(t, brackets.EventMatchUpdated, f.broadcaster.events[0].Type)
}
