package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/shared"
)

const issuer = "fabricflow"

// Claims carried by bearer tokens. The jti is used for logout.
type Claims struct {
	jwt.RegisteredClaims
	Role  shared.Role `json:"role"`
	Store string      `json:"store,omitempty"`
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds a TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user.
func (t *TokenIssuer) Issue(user User) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: user.Role,
	}
	if user.StoreID != nil {
		claims.Store = user.StoreID.String()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies raw and returns its claims.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", shared.ErrUnauthorized)
	}
	return claims, nil
}

// Actor rebuilds the actor recorded in claims.
func (c *Claims) Actor() (shared.Actor, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return shared.Actor{}, fmt.Errorf("%w: bad subject", shared.ErrUnauthorized)
	}
	actor := shared.Actor{ID: id, Role: c.Role}
	if c.Store != "" {
		storeID, err := uuid.Parse(c.Store)
		if err != nil {
			return shared.Actor{}, fmt.Errorf("%w: bad store", shared.ErrUnauthorized)
		}
		actor.StoreID = &storeID
	}
	if !actor.Role.Valid() {
		return shared.Actor{}, fmt.Errorf("%w: unknown role", shared.ErrUnauthorized)
	}
	return actor, nil
}
