package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
)

type fakeDivisionRepo struct {
	divisions map[int]*models.TournamentDivision
}

func newFakeDivisionRepo() *fakeDivisionRepo {
	return &fakeDivisionRepo{divisions: make(map[int]*models.TournamentDivision)}
}

func (r *fakeDivisionRepo) add(division *models.TournamentDivision) *models.TournamentDivision {
	clone := *division
	r.divisions[division.ID] = &clone
	return division
}

func (r *fakeDivisionRepo) Create(ctx context.Context, division *models.TournamentDivision) error {
	r.add(division)
	return nil
}

func (r *fakeDivisionRepo) GetByID(ctx context.Context, id int) (*models.TournamentDivision, error) {
	division, ok := r.divisions[id]
	if !ok {
		return nil, repositories.ErrDivisionNotFound
	}
	clone := *division
	return &clone, nil
}

func (r *fakeDivisionRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentDivision, error) {
	return nil, nil
}

func (r *fakeDivisionRepo) Update(ctx context.Context, division *models.TournamentDivision) error {
	r.add(division)
	return nil
}

func (r *fakeDivisionRepo) SetPublished(ctx context.Context, id int, published bool, publishedAt *time.Time) error {
	division, ok := r.divisions[id]
	if !ok {
		return repositories.ErrDivisionNotFound
	}
	division.IsPublished = published
	division.PublishedAt = publishedAt
	return nil
}

func (r *fakeDivisionRepo) Delete(ctx context.Context, id int) error {
	delete(r.divisions, id)
	return nil
}

type fakeInvolvementRepo struct {
	involvements map[int]*models.Involvement
}

func newFakeInvolvementRepo() *fakeInvolvementRepo {
	return &fakeInvolvementRepo{involvements: make(map[int]*models.Involvement)}
}

func (r *fakeInvolvementRepo) add(involvement *models.Involvement) {
	clone := *involvement
	r.involvements[involvement.ID] = &clone
}

func (r *fakeInvolvementRepo) Create(ctx context.Context, involvement *models.Involvement) error {
	r.add(involvement)
	return nil
}

func (r *fakeInvolvementRepo) GetByID(ctx context.Context, id int) (*models.Involvement, error) {
	involvement, ok := r.involvements[id]
	if !ok {
		return nil, repositories.ErrInvolvementNotFound
	}
	clone := *involvement
	return &clone, nil
}

func (r *fakeInvolvementRepo) ListByDivision(ctx context.Context, divisionID int, status *models.InvolvementStatus) ([]*models.Involvement, error) {
	var out []*models.Involvement
	for _, involvement := range r.involvements {
		if involvement.DivisionID != divisionID {
			continue
		}
		if status != nil && involvement.Status != *status {
			continue
		}
		clone := *involvement
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeInvolvementRepo) IsPlayerApproved(ctx context.Context, divisionID, playerID int) (bool, error) {
	for _, involvement := range r.involvements {
		if involvement.DivisionID == divisionID && involvement.PlayerID == playerID &&
			involvement.Status == models.InvolvementApproved {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeInvolvementRepo) UpdateStatus(ctx context.Context, id int, status models.InvolvementStatus, approvedBy *int, approvedAt *time.Time) error {
	involvement, ok := r.involvements[id]
	if !ok {
		return repositories.ErrInvolvementNotFound
	}
	involvement.Status = status
	involvement.ApprovedBy = approvedBy
	involvement.ApprovedAt = approvedAt
	return nil
}

func (r *fakeInvolvementRepo) Delete(ctx context.Context, id int) error {
	delete(r.involvements, id)
	return nil
}

type fakePlayerRepo struct {
	players map[int]*models.PlayerProfile
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[int]*models.PlayerProfile)}
}

func (r *fakePlayerRepo) Create(ctx context.Context, player *models.PlayerProfile) error {
	clone := *player
	r.players[player.ID] = &clone
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id int) (*models.PlayerProfile, error) {
	player, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	clone := *player
	return &clone, nil
}

func (r *fakePlayerRepo) GetByUserID(ctx context.Context, userID int) (*models.PlayerProfile, error) {
	for _, player := range r.players {
		if player.UserID != nil && *player.UserID == userID {
			clone := *player
			return &clone, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) GetByIDs(ctx context.Context, ids []int) (map[int]*models.PlayerProfile, error) {
	out := make(map[int]*models.PlayerProfile)
	for _, id := range ids {
		if player, ok := r.players[id]; ok {
			clone := *player
			out[id] = &clone
		}
	}
	return out, nil
}

func (r *fakePlayerRepo) List(ctx context.Context, filter repositories.PlayerFilter) ([]*models.PlayerProfile, error) {
	return nil, nil
}

func (r *fakePlayerRepo) Update(ctx context.Context, player *models.PlayerProfile) error {
	clone := *player
	r.players[player.ID] = &clone
	return nil
}

func (r *fakePlayerRepo) Delete(ctx context.Context, id int) error {
	delete(r.players, id)
	return nil
}

func (r *fakePlayerRepo) UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error {
	player, ok := r.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	player.AvatarKey = avatarKey
	return nil
}

type bracketFixture struct {
	service         BracketService
	divisionRepo    *fakeDivisionRepo
	involvementRepo *fakeInvolvementRepo
	matchRepo       *fakeMatchRepo
	setRepo         *fakeSetRepo
	playerRepo      *fakePlayerRepo
	broadcaster     *fakeBroadcaster
}

func newBracketFixture(t *testing.T) *bracketFixture {
	t.Helper()

	db := sql.OpenDB(stubConnector{})
	t.Cleanup(func() { db.Close() })

	divisionRepo := newFakeDivisionRepo()
	involvementRepo := newFakeInvolvementRepo()
	matchRepo := newFakeMatchRepo()
	setRepo := newFakeSetRepo()
	playerRepo := newFakePlayerRepo()
	broadcaster := &fakeBroadcaster{}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &bracketFixture{
		service: NewBracketService(db, divisionRepo, involvementRepo, matchRepo,
			setRepo, playerRepo, clock, logger, broadcaster),
		divisionRepo:    divisionRepo,
		involvementRepo: involvementRepo,
		matchRepo:       matchRepo,
		setRepo:         setRepo,
		playerRepo:      playerRepo,
		broadcaster:     broadcaster,
	}
}

func (f *bracketFixture) seedDivision(format models.DivisionFormat, published bool, playerCount int) *models.TournamentDivision {
	division := f.divisionRepo.add(&models.TournamentDivision{
		ID:              1,
		TournamentID:    1,
		Name:            "Open Singles",
		Format:          format,
		ParticipantType: models.ParticipantSingle,
		Gender:          models.GenderAny,
		IsPublished:     published,
	})

	for i := 1; i <= playerCount; i++ {
		playerID := 100 + i
		f.playerRepo.Create(context.Background(), &models.PlayerProfile{
			ID:        playerID,
			FirstName: "Player",
			LastName:  "One",
			Gender:    models.GenderAny,
		})
		f.involvementRepo.add(&models.Involvement{
			ID:         i,
			DivisionID: division.ID,
			PlayerID:   playerID,
			Status:     models.InvolvementApproved,
		})
	}
	return division
}

func TestGenerateBracketRequirements(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown division", func(t *testing.T) {
		f := newBracketFixture(t)
		_, err := f.service.Generate(ctx, 99, GenerateBracketInput{}, 1)
		assert.ErrorIs(t, err, ErrDivisionNotFound)
	})

	t.Run("unpublished division", func(t *testing.T) {
		f := newBracketFixture(t)
		f.seedDivision(models.FormatKnockout, false, 4)
		_, err := f.service.Generate(ctx, 1, GenerateBracketInput{}, 1)
		assert.ErrorIs(t, err, ErrDivisionNotPublished)
	})

	t.Run("unsupported format", func(t *testing.T) {
		f := newBracketFixture(t)
		f.seedDivision(models.FormatRoundRobin, true, 4)
		_, err := f.service.Generate(ctx, 1, GenerateBracketInput{}, 1)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("too few approved players", func(t *testing.T) {
		f := newBracketFixture(t)
		f.seedDivision(models.FormatKnockout, true, 1)
		_, err := f.service.Generate(ctx, 1, GenerateBracketInput{}, 1)
		assert.ErrorIs(t, err, ErrInsufficientPlayers)
	})

	t.Run("pending registrations are excluded", func(t *testing.T) {
		f := newBracketFixture(t)
		f.seedDivision(models.FormatKnockout, true, 1)
		f.involvementRepo.add(&models.Involvement{
			ID: 2, DivisionID: 1, PlayerID: 200, Status: models.InvolvementPending,
		})
		_, err := f.service.Generate(ctx, 1, GenerateBracketInput{}, 1)
		assert.ErrorIs(t, err, ErrInsufficientPlayers)
	})

	t.Run("config out of range", func(t *testing.T) {
		f := newBracketFixture(t)
		f.seedDivision(models.FormatKnockout, true, 4)
		_, err := f.service.Generate(ctx, 1, GenerateBracketInput{MaxSets: intPtr(99)}, 1)
		assert.ErrorIs(t, err, ErrConfigurationOutOfRange)
	})
}

func TestGenerateBracketPersistsLinkedMatches(t *testing.T) {
	f := newBracketFixture(t)
	f.seedDivision(models.FormatKnockout, true, 4)

	seed := int64(7)
	created, err := f.service.Generate(context.Background(), 1, GenerateBracketInput{Seed: &seed}, 42)
	require.NoError(t, err)
	require.Len(t, created, 3)

	final := created[2]
	assert.Nil(t, final.NextMatchID)
	for _, semi := range created[:2] {
		require.NotNil(t, semi.NextMatchID)
		assert.Equal(t, final.ID, *semi.NextMatchID)
		assert.Equal(t, models.MatchPending, semi.Status)
		require.NotNil(t, semi.Player1ID)
		require.NotNil(t, semi.Player2ID)
		require.NotNil(t, semi.CreatedBy)
		assert.Equal(t, 42, *semi.CreatedBy)
		assert.Equal(t, models.DefaultMaxSets, semi.MaxSets)
		assert.Equal(t, models.DefaultPointsPerSet, semi.PointsPerSet)
	}

	// The stored rows carry the same links.
	stored := f.matchRepo.get(final.ID)
	require.NotNil(t, stored)
	assert.Nil(t, stored.NextMatchID)

	require.NotEmpty(t, f.broadcaster.events)
	assert.Equal(t, "division:1", f.broadcaster.rooms[len(f.broadcaster.rooms)-1])
}

func TestGenerateBracketResolvesPlannedByes(t *testing.T) {
	f := newBracketFixture(t)
	f.seedDivision(models.FormatKnockout, true, 5)

	seed := int64(3)
	created, err := f.service.Generate(context.Background(), 1, GenerateBracketInput{Seed: &seed}, 1)
	require.NoError(t, err)
	require.Len(t, created, 6)

	completed := 0
	for _, match := range created {
		if match.Status == models.MatchCompleted {
			completed++
			require.NotNil(t, match.WinnerID)
			require.NotNil(t, match.CompletedAt)
		}
	}
	// The round-one bye and the round-two bye it cascades into.
	assert.Equal(t, 2, completed)
}

func TestGenerateBracketDoubleEliminationWiring(t *testing.T) {
	f := newBracketFixture(t)
	f.seedDivision(models.FormatDoubleSlash, true, 4)

	seed := int64(11)
	created, err := f.service.Generate(context.Background(), 1, GenerateBracketInput{Seed: &seed}, 1)
	require.NoError(t, err)
	require.Len(t, created, 6)

	gf := created[len(created)-1]
	assert.Equal(t, "GF1", gf.MatchCode)
	require.NotNil(t, gf.RoundNumber)
	assert.Equal(t, models.GrandFinalRound, *gf.RoundNumber)

	losers := 0
	for _, match := range created {
		if match.IsLosersBracket {
			losers++
		}
		if !match.IsLosersBracket && match.MatchCode != "GF1" {
			require.NotNilf(t, match.LoserNextMatchID, "%s must route its loser", match.MatchCode)
		}
	}
	assert.Equal(t, 2, losers)
}

func TestGenerateBracketRegeneration(t *testing.T) {
	f := newBracketFixture(t)
	f.seedDivision(models.FormatKnockout, true, 4)
	ctx := context.Background()

	seed := int64(1)
	first, err := f.service.Generate(ctx, 1, GenerateBracketInput{Seed: &seed}, 1)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// A second run without confirmation refuses to touch the division.
	_, err = f.service.Generate(ctx, 1, GenerateBracketInput{Seed: &seed}, 1)
	assert.ErrorIs(t, err, ErrDivisionHasMatches)
	count, _ := f.matchRepo.CountByDivision(ctx, nil, 1)
	assert.Equal(t, 3, count)

	// With confirmation the old bracket is replaced wholesale.
	second, err := f.service.Generate(ctx, 1, GenerateBracketInput{Seed: &seed, ConfirmRegenerate: true}, 1)
	require.NoError(t, err)
	require.Len(t, second, 3)
	count, _ = f.matchRepo.CountByDivision(ctx, nil, 1)
	assert.Equal(t, 3, count)
	for _, old := range first {
		for _, fresh := range second {
			assert.NotEqual(t, old.ID, fresh.ID)
		}
	}
}

func TestGetDivisionBracket(t *testing.T) {
	f := newBracketFixture(t)
	f.seedDivision(models.FormatKnockout, true, 2)
	ctx := context.Background()

	_, err := f.service.GetDivisionBracket(ctx, 99)
	assert.ErrorIs(t, err, ErrDivisionNotFound)

	// List is backed by the postgres repository in production; the fake
	// returns nothing, so the view is just checked for its shape here.
	view, err := f.service.GetDivisionBracket(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, view.Division)
	assert.Equal(t, 1, view.Division.ID)
	assert.Empty(t, view.Matches)
}
