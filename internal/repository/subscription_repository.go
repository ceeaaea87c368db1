package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chantierflow/commerce-api/internal/domain"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByCompanyID returns nil without an error when the company has no
// subscription row yet.
func (r *SubscriptionRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID) (*domain.CompanySubscription, error) {
	var sub domain.CompanySubscription
	err := r.db.WithContext(ctx).First(&sub, "company_id = ?", companyID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert merges the subscription row by company, last write wins. Billing
// webhooks may arrive out of order; the provider state is authoritative.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *domain.CompanySubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":             sub.Status,
				"plan_id":            sub.PlanID,
				"current_period_end": sub.CurrentPeriodEnd,
				"provider_ref":       sub.ProviderRef,
				"updated_at":         gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(sub).Error
}
