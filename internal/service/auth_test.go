package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ticketforge/booking-engine/internal/clock"
	"github.com/ticketforge/booking-engine/internal/config"
	"github.com/ticketforge/booking-engine/internal/model"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (s *fakeUserStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return model.ErrEmailTaken
		}
	}
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *fakeUserStore) Update(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return model.ErrNotFound
	}
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *fakeUserStore) List(_ context.Context, f model.UserFilter) ([]model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (s *fakeUserStore) Count(_ context.Context, role model.Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}

var testJWT = config.JWTConfig{
	Secret:   "unit-test-secret",
	TokenTTL: time.Hour,
	Issuer:   "booking-engine-test",
}

func newAuthFixture() (*AuthService, *fakeUserStore) {
	users := newFakeUserStore()
	return NewAuthService(users, testJWT, clock.NewFixed(testNow), zap.NewNop()), users
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture()

	resp, err := svc.Register(ctx, model.RegisterRequest{
		Email:    "Alice@Example.com",
		Username: "alice",
		Password: "sup3r-secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.Empty(t, resp.User.PasswordHash)
	assert.NotEmpty(t, resp.Token)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (any, error) {
		return []byte(testJWT.Secret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims["user_id"])
	assert.Equal(t, "user", claims["role"])
	assert.Equal(t, testJWT.Issuer, claims["iss"])
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture()

	tests := []struct {
		name string
		req  model.RegisterRequest
	}{
		{"bad email", model.RegisterRequest{Email: "not-an-email", Username: "x", Password: "longenough"}},
		{"missing username", model.RegisterRequest{Email: "a@b.com", Username: " ", Password: "longenough"}},
		{"short password", model.RegisterRequest{Email: "a@b.com", Username: "x", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture()

	req := model.RegisterRequest{Email: "alice@example.com", Username: "alice", Password: "sup3r-secret"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture()

	_, err := svc.Register(ctx, model.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "sup3r-secret",
	})
	require.NoError(t, err)

	t.Run("correct credentials", func(t *testing.T) {
		resp, err := svc.Login(ctx, model.LoginRequest{Email: "ALICE@example.com", Password: "sup3r-secret"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "alice@example.com", resp.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, model.LoginRequest{Email: "bob@example.com", Password: "sup3r-secret"})
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture()

	resp, err := svc.Register(ctx, model.RegisterRequest{
		Email:     "alice@example.com",
		Username:  "alice",
		Password:  "sup3r-secret",
		FirstName: "Alice",
	})
	require.NoError(t, err)

	user, err := svc.Profile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.FirstName)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthFixture()

	resp, err := svc.Register(ctx, model.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "sup3r-secret",
	})
	require.NoError(t, err)

	t.Run("patch names", func(t *testing.T) {
		first, last := "  Alice  ", "Smith"
		user, err := svc.UpdateProfile(ctx, resp.User.ID, model.UpdateProfileRequest{
			FirstName: &first,
			LastName:  &last,
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.FirstName)
		assert.Equal(t, "Smith", user.LastName)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, resp.User.ID, model.UpdateProfileRequest{Password: "short"})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("password change takes effect", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, resp.User.ID, model.UpdateProfileRequest{Password: "n3w-secret-pass"})
		require.NoError(t, err)

		_, err = svc.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "n3w-secret-pass"})
		assert.NoError(t, err)

		_, err = svc.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "sup3r-secret"})
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.UpdateProfile(ctx, "missing", model.UpdateProfileRequest{})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
