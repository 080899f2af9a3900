package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ticketforge/booking-engine/internal/clock"
	"github.com/ticketforge/booking-engine/internal/config"
	"github.com/ticketforge/booking-engine/internal/model"
)

const minPasswordLen = 8

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
}

// AuthService handles registration, login, and token issuance.
type AuthService struct {
	users UserStore
	jwt   config.JWTConfig
	clock clock.Clock
	log   *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(users UserStore, jwtCfg config.JWTConfig, clk clock.Clock, log *zap.Logger) *AuthService {
	return &AuthService{users: users, jwt: jwtCfg, clock: clk, log: log}
}

// Register creates a new account with the user role and returns a signed
// token for it.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email", "must be a valid email address")
	}
	if strings.TrimSpace(req.Username) == "" {
		return nil, invalid("username", "is required")
	}
	if len(req.Password) < minPasswordLen {
		return nil, invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     strings.TrimSpace(req.Username),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return &model.AuthResponse{Token: token, User: sanitize(user)}, nil
}

// Login verifies credentials and returns a signed token. Unknown email and
// wrong password both map to ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &model.AuthResponse{Token: token, User: sanitize(user)}, nil
}

// sanitize strips the password hash before the user leaves the service.
func sanitize(u *model.User) model.User {
	copied := *u
	copied.PasswordHash = ""
	return copied
}

// Profile returns the caller's own account.
func (s *AuthService) Profile(ctx context.Context, userID string) (model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	return sanitize(user), nil
}

// UpdateProfile patches the caller's name fields and, when a password is
// supplied, replaces the stored hash. Email and role are not touchable
// here; role changes go through the admin surface.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Password != "" {
		if len(req.Password) < minPasswordLen {
			return model.User{}, invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return model.User{}, err
	}

	s.log.Info("profile updated", zap.String("user_id", user.ID))
	return sanitize(user), nil
}

func (s *AuthService) issueToken(u *model.User) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    string(u.Role),
		"iss":     s.jwt.Issuer,
		"iat":     now.Unix(),
		"exp":     now.Add(s.jwt.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwt.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
