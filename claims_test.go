package identity_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountClaimsAccountID(t *testing.T) {
	claims := &identity.AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
	}

	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestAccountClaimsAccountIDRejectsGarbage(t *testing.T) {
	claims := &identity.AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-number"},
	}

	_, err := claims.AccountID()
	require.Error(t, err)
}

func TestAccountClaimsRoleChecks(t *testing.T) {
	claims := &identity.AccountClaims{AccountRole: identity.RoleAdmin}

	assert.True(t, claims.HasRole(identity.RoleAdmin))
	assert.False(t, claims.HasRole(identity.RoleSuperUser))
	assert.True(t, claims.IsAtLeast(identity.RoleCasualUser))
	assert.False(t, claims.IsAtLeast(identity.RoleSuperUser))
}

func TestActorFromClaims(t *testing.T) {
	claims := &identity.AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7"},
		AccountRole:      identity.RoleSuperUser,
	}

	actor, err := identity.ActorFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, int64(7), actor.AccountID)
	assert.Equal(t, identity.RoleSuperUser, actor.Role)
}
