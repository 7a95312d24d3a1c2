package shared

import (
	"context"

	"github.com/google/uuid"
)

// Role is the coarse permission level of an actor.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStoreStaff Role = "store_staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStoreStaff
}

// Actor is the authenticated identity behind an operation.
type Actor struct {
	ID      uuid.UUID  `json:"id"`
	Name    string     `json:"name"`
	Role    Role       `json:"role"`
	StoreID *uuid.UUID `json:"store_id,omitempty"`
}

// IsAdmin reports whether the actor has head-office rights.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccessStore reports whether the actor may act on storeID. Store staff
// are bound to their own store.
func (a Actor) CanAccessStore(storeID uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == RoleStoreStaff && a.StoreID != nil && *a.StoreID == storeID
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
