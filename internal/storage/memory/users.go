package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/auth"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// UserRepo implements auth.Repository.
type UserRepo struct{ s *Store }

// Users returns the account repository view.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

var _ auth.Repository = (*UserRepo)(nil)

// FindByEmail implements auth.Repository. Emails compare case-insensitively.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (auth.User, error) {
	var u auth.User
	err := r.s.read(ctx, func(st *state) error {
		for _, candidate := range st.users {
			if strings.EqualFold(candidate.Email, email) {
				u = candidate
				return nil
			}
		}
		return shared.ErrNotFound
	})
	return u, err
}

// GetUser implements auth.Repository.
func (r *UserRepo) GetUser(ctx context.Context, id uuid.UUID) (auth.User, error) {
	var u auth.User
	err := r.s.read(ctx, func(st *state) error {
		var ok bool
		if u, ok = st.users[id]; !ok {
			return shared.ErrNotFound
		}
		return nil
	})
	return u, err
}

// CreateUser implements auth.Repository.
func (r *UserRepo) CreateUser(ctx context.Context, u auth.User) error {
	return r.s.write(ctx, func(st *state) error {
		for _, other := range st.users {
			if strings.EqualFold(other.Email, u.Email) {
				return shared.Conflict("user %s already exists", u.Email)
			}
		}
		st.users[u.ID] = u
		return nil
	})
}
