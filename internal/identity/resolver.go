// Package identity turns a bearer token into the caller's current
// user and tenant records. Results are request-scoped and never
// cached: account deactivation or tenant suspension made by one
// request must be visible to the next.
package identity

import (
	"errors"

	"gorm.io/gorm"

	"projecthub/internal/apperr"
	"projecthub/internal/model"
	"projecthub/pkg/jwtutil"
)

// Resolver loads the identity behind a session token.
type Resolver struct {
	db  *gorm.DB
	jwt *jwtutil.JWT
}

// NewResolver creates a resolver over the token codec and store.
func NewResolver(db *gorm.DB, jwt *jwtutil.JWT) *Resolver {
	return &Resolver{db: db, jwt: jwt}
}

// Resolve verifies the token and loads the current user and, for
// tenant-scoped sessions, the tenant. The tenant is nil only for
// super-admin sessions.
func (r *Resolver) Resolve(token string) (*model.User, *model.Tenant, error) {
	claims, err := r.jwt.Verify(token)
	if err != nil {
		return nil, nil, apperr.New(apperr.Unauthenticated, "invalid or expired token")
	}

	var user model.User
	if err := r.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.Unauthenticated, "user not found")
		}
		return nil, nil, apperr.Wrap("load user", err)
	}

	if !user.IsActive {
		return nil, nil, apperr.WithCode(apperr.Forbidden, apperr.CodeAccountInactive, "account is inactive")
	}

	if claims.TenantID == nil {
		return &user, nil, nil
	}

	// A valid token referencing a deleted tenant must not resolve.
	var tenant model.Tenant
	if err := r.db.First(&tenant, *claims.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.Unauthenticated, "tenant not found")
		}
		return nil, nil, apperr.Wrap("load tenant", err)
	}
	if tenant.Status != model.TenantActive {
		return nil, nil, apperr.WithCode(apperr.Forbidden, apperr.CodeTenantNotActive, "tenant is not active")
	}

	return &user, &tenant, nil
}
