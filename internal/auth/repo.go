package auth

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	CreateUser(ctx context.Context, user User) error
}

const userColumns = `id, email, name, password_hash, role, store_id, is_active, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db shared.ConnProvider
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conns shared.ConnProvider) *PGRepository {
	return &PGRepository{db: conns}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// GetUser fetches a user by id.
func (r *PGRepository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *PGRepository) get(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := pgxscan.Get(ctx, r.db.Conn(ctx), &u, query, arg)
	if pgxscan.NotFound(err) {
		return User{}, shared.ErrNotFound
	}
	return u, err
}

// CreateUser inserts a user.
func (r *PGRepository) CreateUser(ctx context.Context, u User) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.StoreID, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return shared.ErrConflict
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
