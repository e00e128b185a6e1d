package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/worklane/domains/auth/be/repo"
	"github.com/zenGate-Global/worklane/platform/go/apperr"
	"github.com/zenGate-Global/worklane/platform/go/audit"
	platformauth "github.com/zenGate-Global/worklane/platform/go/auth"
	"github.com/zenGate-Global/worklane/platform/go/authz"
	"github.com/zenGate-Global/worklane/platform/go/cache"
	"github.com/zenGate-Global/worklane/platform/go/persistence"
	"github.com/zenGate-Global/worklane/platform/go/persistence/memstore"
)

type fixture struct {
	store  *memstore.Store
	svc    Service
	codec  *platformauth.JWTCodec
	hasher *platformauth.BcryptVerifier
}

func newFixture(t *testing.T, tenantCache TenantCache, writer AuditWriter) fixture {
	t.Helper()

	store := memstore.MustNew()
	hasher, err := platformauth.NewBcryptVerifier(4)
	require.NoError(t, err)
	codec, err := platformauth.NewJWTCodec("test-secret", "worklane-test")
	require.NoError(t, err)
	if tenantCache == nil {
		tenantCache = cache.Noop{}
	}
	if writer == nil {
		writer = audit.NewRecorder(store, nil)
	}

	return fixture{
		store:  store,
		svc:    New(repo.New(store), hasher, codec, tenantCache, writer, Config{TokenTTL: 24 * time.Hour}),
		codec:  codec,
		hasher: hasher,
	}
}

func acme() RegisterInput {
	return RegisterInput{
		TenantName:    "Acme",
		Subdomain:     "acme",
		AdminEmail:    "a@acme.com",
		AdminPassword: "S3cret!1",
		AdminFullName: "Ada Admin",
	}
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	ctx := context.Background()

	registration, err := f.svc.Register(ctx, acme())
	require.NoError(t, err)
	require.Equal(t, "acme", registration.Subdomain)
	require.Equal(t, string(authz.RoleTenantAdmin), registration.Admin.Role)

	tenant, err := f.store.Client().GetTenant(ctx, registration.TenantID)
	require.NoError(t, err)
	require.Equal(t, "free", tenant.SubscriptionPlan)
	require.Equal(t, 5, tenant.MaxUsers)
	require.Equal(t, 3, tenant.MaxProjects)

	logs, err := f.store.Client().ListAudit(ctx, persistence.ListAuditParams{Page: persistence.Page{Page: 1, Limit: 10}, TenantID: tenant.ID})
	require.NoError(t, err)
	require.Len(t, logs.Items, 1)
	require.Equal(t, audit.RegisterTenant, logs.Items[0].Action)
	require.Equal(t, registration.Admin.ID, *logs.Items[0].UserID)

	session, err := f.svc.Login(ctx, LoginInput{Email: "A@acme.com", Password: "S3cret!1", TenantSubdomain: "ACME"})
	require.NoError(t, err)
	require.Equal(t, string(authz.RoleTenantAdmin), session.User.Role)
	require.Equal(t, 24*time.Hour, session.ExpiresIn)

	actor, err := f.codec.Verify(session.Token)
	require.NoError(t, err)
	require.Equal(t, registration.Admin.ID, actor.UserID)
	require.Equal(t, tenant.ID, *actor.TenantID)

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "wrong-password", TenantSubdomain: "acme"})
	require.ErrorIs(t, err, apperr.ErrBadCredential)
	wrongSecret, _ := apperr.Message(err)

	_, err = f.svc.Login(ctx, LoginInput{Email: "nobody@acme.com", Password: "wrong-password", TenantSubdomain: "acme"})
	require.ErrorIs(t, err, apperr.ErrBadCredential)
	unknownUser, _ := apperr.Message(err)
	require.Equal(t, wrongSecret, unknownUser)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	input := acme()
	input.AdminEmail = "not-an-email"
	input.AdminPassword = "short"

	_, err := f.svc.Register(context.Background(), input)
	var validationErr *apperr.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "adminEmail")
	require.Contains(t, validationErr.Fields, "adminPassword")

	input = acme()
	input.Subdomain = "-bad-"
	_, err = f.svc.Register(context.Background(), input)
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "subdomain")
}

func TestRegisterSubdomainTaken(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, acme())
	require.NoError(t, err)

	again := acme()
	again.Subdomain = " Acme "
	again.AdminEmail = "b@acme.com"
	_, err = f.svc.Register(ctx, again)
	require.ErrorIs(t, err, apperr.ErrConflict)
	msg, _ := apperr.Message(err)
	require.Equal(t, "Subdomain already exists", msg)
}

func TestConcurrentRegistrationSameSubdomain(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			input := acme()
			input.AdminEmail = uuid.NewString() + "@acme.com"
			_, errs[i] = f.svc.Register(ctx, input)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, apperr.ErrConflict)
	}
	require.Equal(t, 1, succeeded)

	tenants, err := f.store.Client().ListTenants(ctx, persistence.ListTenantsParams{Page: persistence.Page{Page: 1, Limit: 10}})
	require.NoError(t, err)
	require.Equal(t, 1, tenants.Total)

	stats, err := f.store.Client().TenantStats(ctx, tenants.Items[0].ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalUsers)
}

type failingWriter struct{}

func (failingWriter) RecordTx(context.Context, persistence.AuditQueries, audit.Entry) error {
	return errors.New("audit table unavailable")
}

func TestRegisterRollsBackWhenAuditFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, failingWriter{})
	ctx := context.Background()

	_, err := f.svc.Register(ctx, acme())
	require.Error(t, err)

	_, err = f.store.Client().GetTenantBySubdomain(ctx, "acme")
	require.ErrorIs(t, err, persistence.ErrNotFound)
	_, err = f.store.Client().FindUserByEmail(ctx, nil, "a@acme.com")
	require.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestLoginSuspendedTenant(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	ctx := context.Background()

	registration, err := f.svc.Register(ctx, acme())
	require.NoError(t, err)

	var mask persistence.FieldMask
	mask.Set("status", persistence.TenantSuspended)
	_, err = f.store.Client().UpdateTenant(ctx, registration.TenantID, mask)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "S3cret!1", TenantSubdomain: "acme"})
	require.ErrorIs(t, err, apperr.ErrTenantInactive)

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "S3cret!1", TenantSubdomain: "globex"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLoginInactiveAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	ctx := context.Background()

	registration, err := f.svc.Register(ctx, acme())
	require.NoError(t, err)

	var mask persistence.FieldMask
	mask.Set("isActive", false)
	_, err = f.store.Client().UpdateUser(ctx, registration.Admin.ID, mask)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "wrong-password", TenantSubdomain: "acme"})
	require.ErrorIs(t, err, apperr.ErrBadCredential)

	_, err = f.svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "S3cret!1", TenantSubdomain: "acme"})
	require.ErrorIs(t, err, apperr.ErrAccountInactive)
}

func TestLoginGlobalNamespace(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	ctx := context.Background()

	verifier, err := f.hasher.Hash("root-secret")
	require.NoError(t, err)
	super, err := f.store.Client().CreateUser(ctx, persistence.CreateUserParams{
		ID: uuid.New(), Email: "root@worklane.dev", PasswordHash: verifier, FullName: "Root", Role: string(authz.RoleSuperAdmin), IsActive: true,
	})
	require.NoError(t, err)
	_, err = f.store.Client().CreateUser(ctx, persistence.CreateUserParams{
		ID: uuid.New(), Email: "stray@worklane.dev", PasswordHash: verifier, FullName: "Stray", Role: string(authz.RoleUser), IsActive: true,
	})
	require.NoError(t, err)

	session, err := f.svc.Login(ctx, LoginInput{Email: "root@worklane.dev", Password: "root-secret"})
	require.NoError(t, err)
	require.Nil(t, session.User.TenantID)

	actor, err := f.codec.Verify(session.Token)
	require.NoError(t, err)
	require.True(t, actor.IsSuperAdmin())

	_, err = f.svc.Login(ctx, LoginInput{Email: "stray@worklane.dev", Password: "root-secret"})
	require.ErrorIs(t, err, apperr.ErrBadCredential)

	profile, err := f.svc.Me(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, super.ID, profile.ID)
	require.Nil(t, profile.Tenant)
}

type cacheSpy struct {
	mu      sync.Mutex
	entries map[string]persistence.Tenant
	sets    int
}

func (c *cacheSpy) Get(_ context.Context, subdomain string) (persistence.Tenant, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[subdomain]
	return t, ok, nil
}

func (c *cacheSpy) Set(_ context.Context, tenant persistence.Tenant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]persistence.Tenant{}
	}
	c.entries[tenant.Subdomain] = tenant
	c.sets++
	return nil
}

func TestLoginUsesTenantCache(t *testing.T) {
	t.Parallel()

	spy := &cacheSpy{}
	f := newFixture(t, spy, nil)
	ctx := context.Background()

	registration, err := f.svc.Register(ctx, acme())
	require.NoError(t, err)

	for range 2 {
		_, err = f.svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "S3cret!1", TenantSubdomain: "acme"})
		require.NoError(t, err)
	}
	require.Equal(t, 1, spy.sets)

	profile, err := f.svc.Me(ctx, authz.Actor{UserID: registration.Admin.ID, TenantID: &registration.TenantID, Role: authz.RoleTenantAdmin})
	require.NoError(t, err)
	require.Equal(t, "acme", profile.Tenant.Subdomain)
}

func (c *cacheSpy) Invalidate(_ context.Context, subdomain string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, subdomain)
	return nil
}

// suspendingRepo suspends the tenant and drops its cache entry right after the
// first subdomain lookup returns, so the lookup result is already stale.
type suspendingRepo struct {
	repo.Repository
	store *memstore.Store
	cache *cacheSpy
	once  sync.Once
}

func (r *suspendingRepo) TenantBySubdomain(ctx context.Context, subdomain string) (persistence.Tenant, error) {
	tenant, err := r.Repository.TenantBySubdomain(ctx, subdomain)
	r.once.Do(func() {
		var mask persistence.FieldMask
		mask.Set("status", persistence.TenantSuspended)
		_, updateErr := r.store.Client().UpdateTenant(ctx, tenant.ID, mask)
		if updateErr != nil {
			panic(updateErr)
		}
		_ = r.cache.Invalidate(ctx, subdomain)
	})
	return tenant, err
}

func TestLoginAfterSuspensionIgnoresStaleCacheEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := newFixture(t, nil, nil)
	_, err := base.svc.Register(ctx, acme())
	require.NoError(t, err)

	spy := &cacheSpy{}
	svc := New(&suspendingRepo{Repository: repo.New(base.store), store: base.store, cache: spy},
		base.hasher, base.codec, spy, audit.NewRecorder(base.store, nil), Config{TokenTTL: time.Hour})

	// The first login resolved the tenant before the suspension and cached it as active.
	_, err = svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "S3cret!1", TenantSubdomain: "acme"})
	require.NoError(t, err)
	cached, found, err := spy.Get(ctx, "acme")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, persistence.TenantActive, cached.Status)

	_, err = svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "S3cret!1", TenantSubdomain: "acme"})
	require.ErrorIs(t, err, apperr.ErrTenantInactive)
}

func TestLoginCacheEntryForRemovedTenantFallsBackToStore(t *testing.T) {
	t.Parallel()

	spy := &cacheSpy{entries: map[string]persistence.Tenant{
		"acme": {ID: uuid.New(), Subdomain: "acme", Status: persistence.TenantActive},
	}}
	f := newFixture(t, spy, nil)
	ctx := context.Background()

	registration, err := f.svc.Register(ctx, acme())
	require.NoError(t, err)

	session, err := f.svc.Login(ctx, LoginInput{Email: "a@acme.com", Password: "S3cret!1", TenantSubdomain: "acme"})
	require.NoError(t, err)
	require.Equal(t, registration.TenantID, *session.User.TenantID)
	require.Equal(t, registration.TenantID, spy.entries["acme"].ID)
}
