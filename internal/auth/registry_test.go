package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictleague/settlement/internal/domain"
)

func TestIdentifyRoles(t *testing.T) {
	adminHash, err := HashKey("admin-secret")
	require.NoError(t, err)
	resolverHash, err := HashKey("resolver-secret")
	require.NoError(t, err)

	reg := NewRegistry("service-key", []string{adminHash}, []string{resolverHash})

	p, err := reg.Identify("admin-secret")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, p.Role)

	p, err = reg.Identify("resolver-secret")
	require.NoError(t, err)
	assert.Equal(t, RoleResolver, p.Role)

	p, err = reg.Identify("service-key")
	require.NoError(t, err)
	assert.Equal(t, RoleService, p.Role)

	_, err = reg.Identify("wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = reg.Identify("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRoleCapabilities(t *testing.T) {
	admin := Principal{Role: RoleAdmin}
	assert.True(t, admin.Has(RoleService))
	assert.True(t, admin.Has(RoleResolver))
	assert.True(t, admin.Has(RoleAdmin))

	resolver := Principal{Role: RoleResolver}
	assert.True(t, resolver.Has(RoleService))
	assert.True(t, resolver.Has(RoleResolver))
	assert.False(t, resolver.Has(RoleAdmin))

	service := Principal{Role: RoleService}
	assert.True(t, service.Has(RoleService))
	assert.False(t, service.Has(RoleResolver))

	var anon Principal
	assert.False(t, anon.Has(RoleService))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{Role: RoleResolver})

	assert.Equal(t, RoleResolver, FromContext(ctx).Role)
	assert.NoError(t, Require(ctx, RoleService))
	assert.NoError(t, Require(ctx, RoleResolver))
	assert.ErrorIs(t, Require(ctx, RoleAdmin), domain.ErrUnauthorized)

	assert.ErrorIs(t, Require(context.Background(), RoleService), domain.ErrUnauthorized)
}
