// Package security answers the capability questions the pricing core asks
// about the current caller.
package security

import (
	"context"

	appctx "quoteengine/internal/core/context"
)

// Permission is a capability string carried in the bearer token.
type Permission string

const (
	// PermissionPriceOverride allows a caller-supplied unit price to bypass the rate card.
	PermissionPriceOverride Permission = "pricing:override"
	// PermissionRateCardAdmin allows creating and toggling rate cards.
	PermissionRateCardAdmin Permission = "ratecard:admin"
)

// OverrideChecker is the PermissionCheck port: may userID supply an explicit price?
type OverrideChecker interface {
	HasOverridePermission(ctx context.Context, userID string) bool
}

// ContextChecker answers from the authenticated user stored in ctx.
// A userID that does not match the authenticated user never has permission.
type ContextChecker struct{}

var _ OverrideChecker = ContextChecker{}

func (ContextChecker) HasOverridePermission(ctx context.Context, userID string) bool {
	user := appctx.GetUser(ctx)
	if user == nil || userID == "" || user.UserID != userID {
		return false
	}
	return user.HasPermission(string(PermissionPriceOverride))
}

// StaticChecker grants the override to a fixed set of users. Used by tools and tests.
type StaticChecker map[string]bool

func (s StaticChecker) HasOverridePermission(_ context.Context, userID string) bool {
	return s[userID]
}

// Has reports whether the current caller holds perm.
func Has(ctx context.Context, perm Permission) bool {
	return appctx.GetUser(ctx).HasPermission(string(perm))
}
