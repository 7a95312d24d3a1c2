package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Revoker tracks logged-out tokens.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// StoreReader checks that a staff member's store exists.
type StoreReader interface {
	GetOperatingStore(ctx context.Context, id uuid.UUID) (catalog.Store, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tokens  *TokenIssuer
	revoker Revoker
	stores  StoreReader
	logger  *slog.Logger
}

// NewService constructs a new Service. revoker may be nil, in which case
// logout only succeeds client side.
func NewService(repo Repository, tokens *TokenIssuer, revoker Revoker, stores StoreReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, revoker: revoker, stores: stores, logger: logger}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normaliseEmail(email))
	if err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the token until it expires.
func (s *Service) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return err
	}
	if s.revoker == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Resolve turns a bearer token into the actor behind it. Revoked tokens and
// deactivated users are rejected.
func (s *Service) Resolve(ctx context.Context, raw string) (shared.Actor, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return shared.Actor{}, err
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return shared.Actor{}, fmt.Errorf("check token: %w", err)
		}
		if revoked {
			return shared.Actor{}, fmt.Errorf("%w: token revoked", shared.ErrUnauthorized)
		}
	}
	actor, err := claims.Actor()
	if err != nil {
		return shared.Actor{}, err
	}
	user, err := s.repo.GetUser(ctx, actor.ID)
	if err != nil || !user.IsActive {
		return shared.Actor{}, fmt.Errorf("%w: account unavailable", shared.ErrUnauthorized)
	}
	return user.Actor(), nil
}

// CreateUser registers an account. Only admins may do this.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput, actor shared.Actor) (User, error) {
	if !actor.IsAdmin() {
		return User{}, shared.Forbidden("only admins create users")
	}
	if !input.Role.Valid() {
		return User{}, shared.Validation("unknown role %q", input.Role)
	}
	if len(input.Password) < 8 {
		return User{}, shared.Validation("password must have at least 8 characters")
	}
	email := normaliseEmail(input.Email)
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return User{}, shared.Validation("email and name are required")
	}
	var storeID *uuid.UUID
	switch input.Role {
	case shared.RoleStoreStaff:
		if input.StoreID == nil {
			return User{}, shared.Validation("store staff need a store")
		}
		if _, err := s.stores.GetOperatingStore(ctx, *input.StoreID); err != nil {
			return User{}, err
		}
		id := *input.StoreID
		storeID = &id
	case shared.RoleAdmin:
		if input.StoreID != nil {
			return User{}, shared.Validation("admins are not bound to a store")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
		Role:         input.Role,
		StoreID:      storeID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return User{}, shared.Conflict("user %s already exists", email)
		}
		return User{}, err
	}
	s.logger.Info("user created", slog.String("email", email), slog.String("role", string(user.Role)), slog.String("by", actor.ID.String()))
	return user, nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
