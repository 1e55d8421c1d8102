package actorctx

import (
	"context"
	"log/slog"

	"github.com/geocoder89/userhub/internal/auth"
)

type ctxKey struct{}

// WithIdentity attaches the authenticated caller to ctx.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(auth.Identity)

	return id, ok && id.UserID != 0
}

// Attrs describes the caller for log records, or returns nil when anonymous.
func Attrs(ctx context.Context) []slog.Attr {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return nil
	}
	return []slog.Attr{
		slog.Int64("actor_id", id.UserID),
		slog.String("actor_role", string(id.Role)),
	}
}
