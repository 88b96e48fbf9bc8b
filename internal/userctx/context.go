// Package userctx carries the authenticated run owner through request contexts.
package userctx

import (
	"context"
	"strings"
)

type ownerKey struct{}

// WithUserID stores the owner of the request.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, strings.TrimSpace(userID))
}

// GetUserID reports the owner set by the auth middleware; blank IDs count as absent.
func GetUserID(ctx context.Context) (string, bool) {
	userID, _ := ctx.Value(ownerKey{}).(string)
	return userID, userID != ""
}

// OwnerOr returns the request owner, or fallback for anonymous requests.
func OwnerOr(ctx context.Context, fallback string) string {
	if userID, ok := GetUserID(ctx); ok {
		return userID
	}
	return strings.TrimSpace(fallback)
}
