// Package auth maps API credentials to roles for the settlement service.
package auth

import (
	"context"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"github.com/predictleague/settlement/internal/domain"
)

// Role names a capability tier. Roles are strictly ordered only in the sense
// that Admin implies Resolver implies Service; see Principal.Has.
type Role string

const (
	RoleService  Role = "service"
	RoleResolver Role = "resolver"
	RoleAdmin    Role = "admin"
)

// rank orders roles for capability checks.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleResolver:
		return 2
	case RoleService:
		return 1
	default:
		return 0
	}
}

// Principal is an authenticated caller.
type Principal struct {
	Role Role
}

// Has reports whether the principal's role grants the given role's
// capabilities.
func (p Principal) Has(role Role) bool {
	return p.Role.rank() >= role.rank()
}

// Registry resolves presented tokens to principals. The service key is a
// shared plain secret compared in constant time; admin and resolver keys are
// stored as bcrypt hashes so the config file never holds them in the clear.
type Registry struct {
	serviceKey     string
	adminHashes    []string
	resolverHashes []string
}

// NewRegistry creates a Registry. Empty hash lists disable the corresponding
// role; an empty serviceKey disables service-level access entirely.
func NewRegistry(serviceKey string, adminHashes, resolverHashes []string) *Registry {
	return &Registry{
		serviceKey:     serviceKey,
		adminHashes:    adminHashes,
		resolverHashes: resolverHashes,
	}
}

// Identify resolves a token to a Principal. Privileged roles are checked
// first so an admin key presented to a service endpoint still carries its
// full capabilities. It returns domain.ErrUnauthorized for unknown tokens.
func (r *Registry) Identify(token string) (Principal, error) {
	if token == "" {
		return Principal{}, domain.ErrUnauthorized
	}

	if matchHash(r.adminHashes, token) {
		return Principal{Role: RoleAdmin}, nil
	}
	if matchHash(r.resolverHashes, token) {
		return Principal{Role: RoleResolver}, nil
	}
	if r.serviceKey != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(r.serviceKey)) == 1 {
		return Principal{Role: RoleService}, nil
	}

	return Principal{}, domain.ErrUnauthorized
}

func matchHash(hashes []string, token string) bool {
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(token)) == nil {
			return true
		}
	}
	return false
}

// HashKey produces a bcrypt hash suitable for the registry's hash lists.
func HashKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

type principalKey struct{}

// WithPrincipal attaches a principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext extracts the principal set by the auth middleware. The zero
// Principal (no role) is returned when none is present.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// Require returns domain.ErrUnauthorized unless the context carries a
// principal with the given role's capabilities.
func Require(ctx context.Context, role Role) error {
	if !FromContext(ctx).Has(role) {
		return domain.ErrUnauthorized
	}
	return nil
}
