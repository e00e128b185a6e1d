package devtoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/authz"
)

func TestBuildTenantToken(t *testing.T) {
	t.Parallel()

	codec, err := auth.NewJWTCodec("dev-secret", "worklane")
	require.NoError(t, err)

	userID, tenantID := uuid.New(), uuid.New()
	token, err := Build(codec, Params{UserID: userID.String(), TenantID: tenantID.String(), Role: "tenant_admin"})
	require.NoError(t, err)

	actor, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, userID, actor.UserID)
	require.Equal(t, tenantID, *actor.TenantID)
	require.Equal(t, authz.RoleTenantAdmin, actor.Role)
}

func TestBuildValidatesParams(t *testing.T) {
	t.Parallel()

	codec, err := auth.NewJWTCodec("dev-secret", "worklane")
	require.NoError(t, err)
	userID, tenantID := uuid.NewString(), uuid.NewString()

	tests := []struct {
		name   string
		params Params
	}{
		{"bad user id", Params{UserID: "admin-123", TenantID: tenantID, Role: "user"}},
		{"unknown role", Params{UserID: userID, TenantID: tenantID, Role: "owner"}},
		{"super admin with tenant", Params{UserID: userID, TenantID: tenantID, Role: "super_admin"}},
		{"tenant role without tenant", Params{UserID: userID, Role: "user"}},
		{"bad tenant id", Params{UserID: userID, TenantID: "acme", Role: "user"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Build(codec, tt.params)
			require.Error(t, err)
		})
	}
}

func TestBuildDefaultsExpiry(t *testing.T) {
	t.Parallel()

	var gotTTL time.Duration
	signer := signerFunc(func(actor authz.Actor, ttl time.Duration) (string, error) {
		gotTTL = ttl
		return "token", nil
	})

	_, err := Build(signer, Params{UserID: uuid.NewString(), Role: "super_admin"})
	require.NoError(t, err)
	require.Equal(t, time.Hour, gotTTL)
}

type signerFunc func(actor authz.Actor, ttl time.Duration) (string, error)

func (f signerFunc) Sign(actor authz.Actor, ttl time.Duration) (string, error) { return f(actor, ttl) }
