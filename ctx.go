package identity

import (
	"context"

	"github.com/goliatone/go-router"
)

var actorCtxKey = &contextKey{"actor"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// ActorLocalsKey is where the bearer middleware stores the resolved actor on
// the router context.
const ActorLocalsKey = "identity:actor"

// ClaimsLocalsKey is where the bearer middleware stores the validated claims.
const ClaimsLocalsKey = "identity:claims"

// WithActorContext sets the Actor in the given context
func WithActorContext(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor from the context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	raw, ok := ctx.Value(actorCtxKey).(Actor)
	return raw, ok
}

// WithClaimsContext sets the AccountClaims in the given context
func WithClaimsContext(ctx context.Context, claims *AccountClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the AccountClaims from the standard context
func ClaimsFromContext(ctx context.Context) (*AccountClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*AccountClaims)
	return raw, ok
}

// GetRouterActor extracts the Actor the bearer middleware stored on the
// router context.
func GetRouterActor(ctx router.Context) (Actor, bool) {
	raw := ctx.Locals(ActorLocalsKey)
	if raw == nil {
		return Actor{}, false
	}
	actor, ok := raw.(Actor)
	return actor, ok
}

// GetRouterClaims extracts the AccountClaims from the router context.
func GetRouterClaims(ctx router.Context) (*AccountClaims, bool) {
	raw := ctx.Locals(ClaimsLocalsKey)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*AccountClaims)
	return claims, ok
}
