package middleware

import (
	"context"

	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

type contextKey string

const (
	ctxActor contextKey = "actor"
)

// WithActor injects the authenticated requester into the context.
func WithActor(ctx context.Context, act actor.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, act)
}

// ActorFromContext returns the requester stored by Auth.
func ActorFromContext(ctx context.Context) (actor.Actor, bool) {
	if ctx == nil {
		return actor.Actor{}, false
	}
	act, ok := ctx.Value(ctxActor).(actor.Actor)
	return act, ok
}

func UserIDFromContext(ctx context.Context) string {
	act, ok := ActorFromContext(ctx)
	if !ok || act.UserRef() == nil {
		return ""
	}
	return act.UserID.String()
}

func RoleFromContext(ctx context.Context) string {
	act, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return string(act.Role)
}

// RequireActor returns the requester or an unauthorized error when Auth did not run.
func RequireActor(ctx context.Context) (actor.Actor, error) {
	act, ok := ActorFromContext(ctx)
	if !ok {
		return actor.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context missing")
	}
	return act, nil
}
