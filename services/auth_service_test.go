package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-hq/backend/models"
	"github.com/matchpoint-hq/backend/repositories"
)

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

var testJWTSecret = []byte("test-secret")

func newAuthService(repo *fakeUserRepo, clock clockwork.Clock) AuthService {
	return NewAuthService(repo, testJWTSecret, 24*time.Hour, clock)
}

func TestRegisterValidation(t *testing.T) {
	service := newAuthService(newFakeUserRepo(), clockwork.NewFakeClock())

	testCases := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{
			name:    "invalid email",
			input:   RegisterInput{Email: "not-an-email", Password: "long-enough"},
			wantErr: ErrValidationFailed,
		},
		{
			name:    "short password",
			input:   RegisterInput{Email: "ada@example.com", Password: "short"},
			wantErr: ErrPasswordTooShort,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := service.Register(context.Background(), tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	service := newAuthService(repo, clock)
	ctx := context.Background()

	user, token, err := service.Register(ctx, RegisterInput{
		Email:     "  Ada@Example.com ",
		Password:  "password123",
		FirstName: " Ada ",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, models.RolePlayer, user.Role)
	assert.Empty(t, user.PasswordHash, "hash must never leave the service")
	require.NotEmpty(t, token)

	// The token carries the identity claims and the configured expiry.
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return testJWTSecret, nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(user.ID), claims["user_id"])
	assert.Equal(t, string(models.RolePlayer), claims["role"])
	assert.Equal(t, float64(clock.Now().Add(24*time.Hour).Unix()), claims["exp"])

	// Duplicate email is refused regardless of case.
	_, _, err = service.Register(ctx, RegisterInput{
		Email:    "ADA@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUserEmailConflict)

	_, _, err = service.Login(ctx, models.Credentials{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = service.Login(ctx, models.Credentials{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	logged, token, err := service.Login(ctx, models.Credentials{Email: "Ada@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.Empty(t, logged.PasswordHash)
	require.NotEmpty(t, token)
}

func TestLoginDeactivatedUser(t *testing.T) {
	repo := newFakeUserRepo()
	service := newAuthService(repo, clockwork.NewFakeClock())
	ctx := context.Background()

	_, _, err := service.Register(ctx, RegisterInput{
		Email:    "gone@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	stored, err := repo.GetByEmail(ctx, "gone@example.com")
	require.NoError(t, err)
	stored.IsActive = false
	require.NoError(t, repo.Update(ctx, stored))

	_, _, err = service.Login(ctx, models.Credentials{Email: "gone@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterTrimsAndLowercasesEmailOnly(t *testing.T) {
	repo := newFakeUserRepo()
	service := newAuthService(repo, clockwork.NewFakeClock())

	user, _, err := service.Register(context.Background(), RegisterInput{
		Email:     "MiXeD@ExAmPlE.cOm",
		Password:  "password123",
		FirstName: "Grace",
		LastName:  "Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower("MiXeD@ExAmPlE.cOm"), user.Email)
	assert.Equal(t, "Grace", user.FirstName)
}
