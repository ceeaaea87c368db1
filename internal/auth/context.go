package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/chantierflow/commerce-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      string
	DisplayName string
	Email       string
	Roles       []domain.UserRoleType
	CompanyID   uuid.UUID
}

type contextKey string

const userContextKey contextKey = "userContext"
const companyFilterKey contextKey = "companyFilter"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsServiceAccount reports whether the request was authenticated with the
// service API key rather than a user token.
func (u *UserContext) IsServiceAccount() bool {
	return u.HasRole(domain.RoleAPIService)
}

// CanWriteDocuments checks if user may create or mutate commercial documents
func (u *UserContext) CanWriteDocuments() bool {
	return u.HasAnyRole(domain.RoleAdmin, domain.RoleManager, domain.RoleAccountant, domain.RoleAPIService)
}

// GetCompanyFilter returns the company ID to filter queries by.
// Returns nil for service accounts, which may act across companies.
func (u *UserContext) GetCompanyFilter() *uuid.UUID {
	if u.IsServiceAccount() {
		return nil
	}
	return &u.CompanyID
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}

// CompanyFilter is the effective company scope for queries, set by middleware
type CompanyFilter struct {
	CompanyID *uuid.UUID
}

// WithCompanyFilter adds company filter to the context
func WithCompanyFilter(ctx context.Context, filter *CompanyFilter) context.Context {
	return context.WithValue(ctx, companyFilterKey, filter)
}

// CompanyFilterFromContext extracts company filter from the context
func CompanyFilterFromContext(ctx context.Context) (*CompanyFilter, bool) {
	filter, ok := ctx.Value(companyFilterKey).(*CompanyFilter)
	return filter, ok
}

// GetEffectiveCompanyFilter returns the company ID repositories should
// filter by. Nil means no filtering (service account scope).
func GetEffectiveCompanyFilter(ctx context.Context) *uuid.UUID {
	if filter, ok := CompanyFilterFromContext(ctx); ok && filter != nil {
		return filter.CompanyID
	}

	if userCtx, ok := FromContext(ctx); ok {
		return userCtx.GetCompanyFilter()
	}

	return nil
}
