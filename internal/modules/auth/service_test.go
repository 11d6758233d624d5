package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"reppyroute/internal/domain"
	"reppyroute/internal/pkg/jwt"
	"reppyroute/internal/repository"
	"reppyroute/internal/testutil"
)

type mockProfileStore struct {
	mock.Mock
}

func (m *mockProfileStore) Create(ctx context.Context, p *domain.Profile) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = 42
	}
	return args.Error(0)
}

func (m *mockProfileStore) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

type mockMechanicStore struct {
	mock.Mock
}

func (m *mockMechanicStore) GetOrCreate(ctx context.Context, p *domain.Profile) (*domain.Mechanic, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mechanic), args.Error(1)
}

func newMockService() (*Service, *mockProfileStore, *mockMechanicStore, *jwt.Service) {
	profiles := &mockProfileStore{}
	mechanics := &mockMechanicStore{}
	tokens := jwt.New("test-secret", time.Hour)
	return NewService(profiles, mechanics, tokens).WithHashCost(bcrypt.MinCost), profiles, mechanics, tokens
}

func TestRegisterCarOwner(t *testing.T) {
	svc, profiles, mechanics, tokens := newMockService()
	profiles.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Profile) bool {
		return p.Email == "jane@example.com" && p.UserType == domain.RoleCarOwner && p.PasswordHash != "secret-pass"
	})).Return(nil)

	out, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Jane@Example.com ",
		Password: "secret-pass",
		FullName: "Jane Doe",
		UserType: "car_owner",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), out.ExpiresIn)

	claims, err := tokens.ValidateToken(out.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "car_owner", claims.Role)

	profiles.AssertExpectations(t)
	mechanics.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything)
}

func TestRegisterMechanicCreatesBusinessRow(t *testing.T) {
	svc, profiles, mechanics, _ := newMockService()
	profiles.On("Create", mock.Anything, mock.Anything).Return(nil)
	mechanics.On("GetOrCreate", mock.Anything, mock.Anything).Return(&domain.Mechanic{ProfileID: 42}, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "bob@example.com", Password: "secret-pass", FullName: "Bob", UserType: "mechanic",
	})
	require.NoError(t, err)
	mechanics.AssertExpectations(t)
}

func TestRegisterRejectsRoles(t *testing.T) {
	svc, profiles, _, _ := newMockService()

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email: "root@example.com", Password: "secret-pass", FullName: "Root", UserType: "admin",
	})
	assert.ErrorIs(t, err, ErrRoleNotAllowed)

	_, err = svc.Register(context.Background(), RegisterRequest{
		Email: "x@example.com", Password: "secret-pass", FullName: "X", UserType: "wizard",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
	profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLogin(t *testing.T) {
	svc, profiles, _, _ := newMockService()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	profiles.On("GetByEmail", mock.Anything, "jane@example.com").
		Return(&domain.Profile{ID: 7, Email: "jane@example.com", PasswordHash: string(hash), UserType: domain.RoleCarOwner}, nil)
	profiles.On("GetByEmail", mock.Anything, "banned@example.com").
		Return(&domain.Profile{ID: 8, PasswordHash: string(hash), UserType: domain.RoleCarOwner, IsBanned: true}, nil)
	profiles.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)
	profiles.On("GetByEmail", mock.Anything, "broken@example.com").Return(nil, errors.New("db down"))

	out, err := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.Profile.ID)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "banned@example.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, ErrAccountBanned)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "broken@example.com", Password: "secret-pass"})
	assert.EqualError(t, err, "db down")
}

func TestRegisterDuplicateEmailAgainstDatabase(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(
		repository.NewProfileRepository(db),
		repository.NewMechanicRepository(db),
		jwt.New("test-secret", time.Hour),
	).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	req := RegisterRequest{Email: "bob@example.com", Password: "secret-pass", FullName: "Bob", UserType: "mechanic"}
	first, err := svc.Register(ctx, req)
	require.NoError(t, err)

	var mechanics int64
	require.NoError(t, db.Model(&domain.Mechanic{}).Where("profile_id = ?", first.Profile.ID).Count(&mechanics).Error)
	assert.Equal(t, int64(1), mechanics)

	req.Email = "BOB@example.com"
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	out, err := svc.Login(ctx, LoginRequest{Email: "bob@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, first.Profile.ID, out.Profile.ID)
}
