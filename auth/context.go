package auth

import (
	"context"

	"policygen/main_backend/apperr"
	ds "policygen/main_backend/database_service"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Status   ds.UserStatus
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Status == ds.UserAdmin
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

func RequireUser(ctx context.Context) (*Identity, error) {
	id := FromContext(ctx)
	if id == nil {
		return nil, apperr.Unauthenticated("")
	}
	return id, nil
}

func RequireAdmin(ctx context.Context) (*Identity, error) {
	id, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		return nil, apperr.Forbidden("admin access required")
	}
	return id, nil
}
