package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/worklane/platform/go/audit"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/persistence/memstore"
)

func TestEnsureSuperAdminIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.MustNew()
	hasher, err := platformauth.NewBcryptVerifier(4)
	require.NoError(t, err)
	recorder := audit.NewRecorder(store, zaptest.NewLogger(t))
	input := SuperAdminInput{Email: "Root@Example.com", Password: "rootpass1", FullName: "Root"}

	first, created, err := EnsureSuperAdmin(ctx, store, hasher, recorder, input)
	require.NoError(t, err)
	require.True(t, created)
	require.Nil(t, first.TenantID)
	require.Equal(t, "super_admin", first.Role)
	require.Equal(t, "root@example.com", first.Email)
	require.True(t, hasher.Matches("rootpass1", first.PasswordHash))

	second, created, err := EnsureSuperAdmin(ctx, store, hasher, recorder, input)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
}

func TestEnsureSuperAdminValidatesInput(t *testing.T) {
	t.Parallel()

	store := memstore.MustNew()
	hasher, err := platformauth.NewBcryptVerifier(4)
	require.NoError(t, err)
	recorder := audit.NewRecorder(store, zaptest.NewLogger(t))

	_, _, err = EnsureSuperAdmin(context.Background(), store, hasher, recorder, SuperAdminInput{Email: "a@b.c", Password: "short", FullName: "A"})
	require.ErrorContains(t, err, "at least 8")

	_, _, err = EnsureSuperAdmin(context.Background(), store, hasher, recorder, SuperAdminInput{Password: "longenough"})
	require.ErrorContains(t, err, "required")
}
