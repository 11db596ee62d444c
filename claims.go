package identity

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes access and refresh tokens. A token of one kind is
// never accepted where the other is required.
type TokenKind = string

const (
	// TokenKindAccess identifies short-lived API tokens
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh identifies single-use rotation tokens
	TokenKindRefresh TokenKind = "refresh"
)

// AccountClaims are the JWT claims carried by issued tokens. The subject is
// the account ID in decimal form.
type AccountClaims struct {
	jwt.RegisteredClaims
	Email       string      `json:"email,omitempty"`
	FirstName   string      `json:"first_name,omitempty"`
	LastName    string      `json:"last_name,omitempty"`
	AccountRole AccountRole `json:"role,omitempty"`
	TokenKind   TokenKind   `json:"kind,omitempty"`
}

// AccountID parses the subject claim back into the numeric account ID.
func (c *AccountClaims) AccountID() (int64, error) {
	return strconv.ParseInt(c.RegisteredClaims.Subject, 10, 64)
}

// HasRole reports whether the claims carry exactly the given role.
func (c *AccountClaims) HasRole(role AccountRole) bool {
	return c.AccountRole == role
}

// IsAtLeast reports whether the claims carry at least the given role.
func (c *AccountClaims) IsAtLeast(min AccountRole) bool {
	return RoleAtLeast(c.AccountRole, min)
}

// Expires returns the expiry instant, or the zero time when absent.
func (c *AccountClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Actor identifies who is performing an operation, resolved from validated
// access token claims.
type Actor struct {
	AccountID int64
	Role      AccountRole
}

// ActorFromClaims builds an Actor from validated access claims.
func ActorFromClaims(claims *AccountClaims) (Actor, error) {
	id, err := claims.AccountID()
	if err != nil {
		return Actor{}, err
	}
	return Actor{AccountID: id, Role: claims.AccountRole}, nil
}
