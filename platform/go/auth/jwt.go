package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zenGate-Global/worklane/platform/go/authz"
)

// ExtractJWTToken reads a bearer token from the Authorization header.
func ExtractJWTToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const prefix = "Bearer "
	// Case-insensitive prefix match.
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", false
	}

	return strings.TrimSpace(authHeader[len(prefix):]), true
}

// ErrInvalidToken covers malformed, tampered and expired tokens.
var ErrInvalidToken = errors.New("invalid token")

type worklaneClaims struct {
	TenantID string `json:"tenantId,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTCodec signs and verifies HS256 session tokens carrying an actor.
type JWTCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTCodec builds a codec. The secret must be non-empty.
func NewJWTCodec(secret, issuer string) (*JWTCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTCodec{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Sign mints a token for actor that expires after ttl.
func (c *JWTCodec) Sign(actor authz.Actor, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}

	now := c.now()
	claims := worklaneClaims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if actor.TenantID != nil {
		claims.TenantID = actor.TenantID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry, and recovers the actor.
func (c *JWTCodec) Verify(token string) (authz.Actor, error) {
	var claims worklaneClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("%w: subject", ErrInvalidToken)
	}
	role, ok := authz.ParseRole(claims.Role)
	if !ok {
		return authz.Actor{}, fmt.Errorf("%w: role", ErrInvalidToken)
	}

	actor := authz.Actor{UserID: userID, Role: role}
	if claims.TenantID != "" {
		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return authz.Actor{}, fmt.Errorf("%w: tenant", ErrInvalidToken)
		}
		actor.TenantID = &tenantID
	}
	if (actor.Role == authz.RoleSuperAdmin) != (actor.TenantID == nil) {
		return authz.Actor{}, fmt.Errorf("%w: role and tenant disagree", ErrInvalidToken)
	}
	return actor, nil
}
