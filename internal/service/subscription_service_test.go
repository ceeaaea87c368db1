package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantierflow/commerce-api/internal/domain"
)

func TestSubscriptionService_Status(t *testing.T) {
	env := newTestEnv(t)

	status, err := env.subscriptions.Status(env.ctx, env.company.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, status)

	// Unknown companies have no subscription, not an error.
	status, err = env.subscriptions.Status(env.ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusNone, status)
}

func TestSubscriptionService_CanMutateDocuments(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		status  domain.SubscriptionStatus
		allowed bool
	}{
		{domain.SubscriptionStatusTrialing, true},
		{domain.SubscriptionStatusActive, true},
		{domain.SubscriptionStatusPastDue, false},
		{domain.SubscriptionStatusCanceled, false},
		{domain.SubscriptionStatusNone, false},
	}
	for _, tc := range cases {
		env.setSubscriptionStatus(t, tc.status)
		allowed, err := env.subscriptions.CanMutateDocuments(env.ctx, env.company.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, allowed, "status %s", tc.status)
	}
}

func TestSubscriptionService_ApplyProviderUpdate(t *testing.T) {
	env := newTestEnv(t)

	periodEnd := time.Now().AddDate(0, 1, 0).Unix()
	err := env.subscriptions.ApplyProviderUpdate(env.ctx, &domain.WebhookSubscription{
		CompanyID:        env.company.ID,
		Status:           "past_due",
		PlanID:           "pro-annuel",
		CustomerID:       "cus_123",
		CurrentPeriodEnd: &periodEnd,
	})
	require.NoError(t, err)

	sub, err := env.subscriptions.Get(env.ctx, env.company.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPastDue, sub.Status)
	assert.Equal(t, "pro-annuel", sub.PlanID)
	require.NotNil(t, sub.CurrentPeriodEnd)
}

func TestSubscriptionService_ApplyProviderUpdate_UnknownStatus(t *testing.T) {
	env := newTestEnv(t)

	err := env.subscriptions.ApplyProviderUpdate(env.ctx, &domain.WebhookSubscription{
		CompanyID: env.company.ID,
		Status:    "paused",
	})
	require.NoError(t, err, "unknown provider status must not wedge the webhook")

	status, err := env.subscriptions.Status(env.ctx, env.company.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusNone, status)
}
