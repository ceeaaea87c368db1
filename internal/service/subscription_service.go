package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/mapper"
	"github.com/chantierflow/commerce-api/internal/repository"
)

// SubscriptionStatusProvider supplies the billing state used by the
// document mutation gate. The default implementation reads the local
// subscription table, kept current by billing webhooks.
type SubscriptionStatusProvider interface {
	Status(ctx context.Context, companyID uuid.UUID) (domain.SubscriptionStatus, error)
}

// SubscriptionService gates commercial-document mutation on billing state
// and applies billing webhook updates.
type SubscriptionService struct {
	repo   *repository.SubscriptionRepository
	logger *zap.Logger
}

func NewSubscriptionService(repo *repository.SubscriptionRepository, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{repo: repo, logger: logger}
}

// Status returns the company's subscription status. A company without a
// subscription row has status "none".
func (s *SubscriptionService) Status(ctx context.Context, companyID uuid.UUID) (domain.SubscriptionStatus, error) {
	sub, err := s.repo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return "", fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		return domain.SubscriptionStatusNone, nil
	}
	return sub.Status, nil
}

// CanMutateDocuments reports whether the company may create or modify
// commercial documents. Only trialing and active subscriptions allow writes.
func (s *SubscriptionService) CanMutateDocuments(ctx context.Context, companyID uuid.UUID) (bool, error) {
	status, err := s.Status(ctx, companyID)
	if err != nil {
		return false, err
	}
	return status.AllowsMutation(), nil
}

// Get returns the subscription DTO for a company.
func (s *SubscriptionService) Get(ctx context.Context, companyID uuid.UUID) (*domain.SubscriptionDTO, error) {
	sub, err := s.repo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		dto := domain.SubscriptionDTO{
			CompanyID: companyID,
			Status:    domain.SubscriptionStatusNone,
		}
		return &dto, nil
	}
	dto := mapper.ToSubscriptionDTO(sub)
	return &dto, nil
}

// ApplyProviderUpdate upserts the subscription state reported by the
// billing provider. Unknown statuses map to "none" rather than failing,
// so a provider-side status addition cannot wedge the webhook queue.
func (s *SubscriptionService) ApplyProviderUpdate(ctx context.Context, update *domain.WebhookSubscription) error {
	status := domain.SubscriptionStatus(update.Status)
	if !status.IsValid() {
		s.logger.Warn("unknown subscription status from provider",
			zap.String("status", update.Status),
			zap.String("companyID", update.CompanyID.String()))
		status = domain.SubscriptionStatusNone
	}

	sub := &domain.CompanySubscription{
		CompanyID:   update.CompanyID,
		Status:      status,
		PlanID:      update.PlanID,
		ProviderRef: update.CustomerID,
	}
	if update.CurrentPeriodEnd != nil {
		end := time.Unix(*update.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &end
	}

	if err := s.repo.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	s.logger.Info("subscription updated",
		zap.String("companyID", update.CompanyID.String()),
		zap.String("status", string(status)),
		zap.String("planID", update.PlanID))
	return nil
}
