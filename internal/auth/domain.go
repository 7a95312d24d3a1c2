package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/shared"
)

// User represents an account able to sign in.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	PasswordHash string      `json:"-"`
	Role         shared.Role `json:"role"`
	StoreID      *uuid.UUID  `json:"store_id,omitempty"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Actor converts the user to the identity carried by requests.
func (u User) Actor() shared.Actor {
	return shared.Actor{ID: u.ID, Name: u.Name, Role: u.Role, StoreID: u.StoreID}
}

// CreateUserInput registers a new account.
type CreateUserInput struct {
	Email    string      `json:"email" validate:"required,email"`
	Name     string      `json:"name" validate:"required,max=120"`
	Password string      `json:"password" validate:"required,min=8"`
	Role     shared.Role `json:"role" validate:"required,oneof=admin store_staff"`
	StoreID  *uuid.UUID  `json:"store_id,omitempty"`
}

// LoginResult is handed back to a client that signed in.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
