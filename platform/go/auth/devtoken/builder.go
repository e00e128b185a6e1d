package devtoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/authz"
)

// Signer mints a session token for an actor.
type Signer interface {
	Sign(actor authz.Actor, ttl time.Duration) (string, error)
}

// Params captures the claims for a development token. No environment
// variables are read so the builder stays deterministic for tooling.
type Params struct {
	UserID    string        // subject (required)
	TenantID  string        // tenant claim; must be empty for super_admin
	Role      string        // super_admin, tenant_admin or user (required)
	ExpiresIn time.Duration // relative expiry; default 1h if zero
}

// Actor validates p and converts it into the actor the token will carry.
func (p Params) Actor() (authz.Actor, error) {
	userID, err := uuid.Parse(strings.TrimSpace(p.UserID))
	if err != nil {
		return authz.Actor{}, errors.New("userID must be a uuid")
	}

	role, ok := authz.ParseRole(strings.TrimSpace(p.Role))
	if !ok {
		return authz.Actor{}, fmt.Errorf("role %q is not one of super_admin, tenant_admin, user", p.Role)
	}

	actor := authz.Actor{UserID: userID, Role: role}
	rawTenant := strings.TrimSpace(p.TenantID)
	switch {
	case role == authz.RoleSuperAdmin && rawTenant != "":
		return authz.Actor{}, errors.New("super_admin tokens carry no tenant")
	case role != authz.RoleSuperAdmin && rawTenant == "":
		return authz.Actor{}, errors.New("tenantID is required for tenant roles")
	case rawTenant != "":
		tenantID, err := uuid.Parse(rawTenant)
		if err != nil {
			return authz.Actor{}, errors.New("tenantID must be a uuid")
		}
		actor.TenantID = &tenantID
	}
	return actor, nil
}

// Build returns a signed token for p.
func Build(signer Signer, p Params) (string, error) {
	if signer == nil {
		return "", errors.New("signer is required")
	}

	actor, err := p.Actor()
	if err != nil {
		return "", err
	}

	expiresIn := p.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}
	return signer.Sign(actor, expiresIn)
}
