package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type actorKey struct{}

// WithActor records who is performing the current operation.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the acting principal, or "" when anonymous.
func ActorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(actorKey{}).(string)
	return id
}
