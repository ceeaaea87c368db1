package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/auth"
)

// CompanyFilterMiddleware handles multi-tenant data isolation.
// Every authenticated request is scoped to the user's company; service
// accounts may narrow their scope with ?company_id=<uuid>.
type CompanyFilterMiddleware struct {
	logger *zap.Logger
}

func NewCompanyFilterMiddleware(logger *zap.Logger) *CompanyFilterMiddleware {
	return &CompanyFilterMiddleware{
		logger: logger,
	}
}

// Filter sets the effective company filter in the request context.
// Regular users are always filtered to their own company. Service
// accounts see all companies unless they request a specific one.
func (m *CompanyFilterMiddleware) Filter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			// Authentication middleware rejects unauthenticated requests,
			// so this only happens on routes mounted without auth.
			next.ServeHTTP(w, r)
			return
		}

		var filter *auth.CompanyFilter

		requested := r.URL.Query().Get("company_id")
		if requested != "" {
			companyID, err := uuid.Parse(requested)
			if err != nil {
				http.Error(w, "Invalid company_id parameter", http.StatusBadRequest)
				return
			}

			if !userCtx.IsServiceAccount() && companyID != userCtx.CompanyID {
				m.logger.Warn("user attempted to access another company",
					zap.String("user_id", userCtx.UserID),
					zap.String("user_company", userCtx.CompanyID.String()),
					zap.String("requested_company", requested),
				)
				http.Error(w, "Access to requested company denied", http.StatusForbidden)
				return
			}

			filter = &auth.CompanyFilter{CompanyID: &companyID}
		} else {
			filter = &auth.CompanyFilter{CompanyID: userCtx.GetCompanyFilter()}
		}

		ctx := auth.WithCompanyFilter(r.Context(), filter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
