package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	appctx "quoteengine/internal/core/context"
)

func TestContextChecker(t *testing.T) {
	checker := ContextChecker{}

	assert.False(t, checker.HasOverridePermission(context.Background(), "u1"))

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:      "u1",
		Permissions: []string{"pricing:override"},
	})
	assert.True(t, checker.HasOverridePermission(ctx, "u1"))
	assert.False(t, checker.HasOverridePermission(ctx, "u2"))
	assert.False(t, Has(ctx, PermissionRateCardAdmin))

	admin := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "root", IsAdmin: true})
	assert.True(t, checker.HasOverridePermission(admin, "root"))
	assert.True(t, Has(admin, PermissionRateCardAdmin))
}

func TestStaticChecker(t *testing.T) {
	s := StaticChecker{"alice": true}
	assert.True(t, s.HasOverridePermission(context.Background(), "alice"))
	assert.False(t, s.HasOverridePermission(context.Background(), "bob"))
}
