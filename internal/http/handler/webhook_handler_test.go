package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/pricing"
	"github.com/chantierflow/commerce-api/internal/repository"
	"github.com/chantierflow/commerce-api/internal/service"
)

const testWebhookSecret = "whsec_test_4f8a1c"

type webhookTestEnv struct {
	db      *gorm.DB
	handler *WebhookHandler
	company *domain.Company
	invoice *domain.Document
}

func newWebhookTestEnv(t *testing.T) *webhookTestEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.Company{},
		&domain.CompanySubscription{},
		&domain.Client{},
		&domain.Document{},
		&domain.DocumentLine{},
		&domain.PriceLibraryEntry{},
		&domain.SignatureSession{},
		&domain.Payment{},
		&domain.NumberSequence{},
		&domain.Activity{},
	))

	log := zap.NewNop()
	libraryRepo := repository.NewPriceLibraryRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	subscriptions := service.NewSubscriptionService(subRepo, log)
	numberSeq := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), log)
	resolver := pricing.NewResolver(libraryRepo, nil, nil, log)

	documents := service.NewDocumentService(
		repository.NewDocumentRepository(db),
		repository.NewDocumentLineRepository(db),
		libraryRepo,
		repository.NewClientRepository(db),
		repository.NewCompanyRepository(db),
		repository.NewActivityRepository(db),
		repository.NewPaymentRepository(db),
		subscriptions, numberSeq, resolver,
		30, log, db)

	company := &domain.Company{
		Name:           "Couverture Leblanc",
		Email:          "contact@couverture-leblanc.fr",
		Country:        "France",
		Currency:       "EUR",
		DefaultTaxRate: 0.20,
		IsActive:       true,
	}
	require.NoError(t, db.Create(company).Error)

	sub := &domain.CompanySubscription{
		CompanyID: company.ID,
		Status:    domain.SubscriptionStatusActive,
		PlanID:    "pro-mensuel",
	}
	require.NoError(t, db.Create(sub).Error)

	client := &domain.Client{
		CompanyID: company.ID,
		Name:      "SCI Les Tilleuls",
		Country:   "France",
		IsActive:  true,
	}
	require.NoError(t, db.Create(client).Error)

	due := time.Now().Add(30 * 24 * time.Hour)
	invoice := &domain.Document{
		CompanyID:  company.ID,
		ClientID:   client.ID,
		Type:       domain.DocumentTypeInvoice,
		Number:     "FAC-2026-001",
		Title:      "Réfection toiture",
		Status:     domain.DocumentStatusSent,
		TaxRate:    0.20,
		SubtotalHT: 1200,
		TotalTVA:   240,
		TotalTTC:   1440,
		DueDate:    &due,
	}
	require.NoError(t, db.Create(invoice).Error)

	h := NewWebhookHandler(documents, subscriptions, testWebhookSecret, log)

	return &webhookTestEnv{
		db:      db,
		handler: h,
		company: company,
		invoice: invoice,
	}
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (e *webhookTestEnv) post(t *testing.T, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	e.handler.HandleBillingEvent(rec, req)
	return rec
}

func TestWebhook_RejectsMissingSignature(t *testing.T) {
	env := newWebhookTestEnv(t)

	body := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)
	rec := env.post(t, body, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	env := newWebhookTestEnv(t)

	body := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)
	rec := env.post(t, body, signBody("wrong-secret", body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Tampering with the body after signing must also fail.
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = 'x'
	rec = env.post(t, tampered, signBody(testWebhookSecret, body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_PaymentSucceededMarksPaid(t *testing.T) {
	env := newWebhookTestEnv(t)

	body, err := json.Marshal(domain.WebhookEvent{
		ID:        "evt_pay_1",
		Type:      "payment.succeeded",
		CreatedAt: time.Now().Unix(),
		Data: domain.WebhookData{
			Payment: &domain.WebhookPayment{
				DocumentID: env.invoice.ID,
				Reference:  "pi_3XaBcD",
				Amount:     1440,
			},
		},
	})
	require.NoError(t, err)

	rec := env.post(t, body, signBody(testWebhookSecret, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var doc domain.Document
	require.NoError(t, env.db.First(&doc, "id = ?", env.invoice.ID).Error)
	assert.Equal(t, domain.DocumentStatusPaid, doc.Status)
	assert.Equal(t, "pi_3XaBcD", doc.PaymentReference)
	assert.NotNil(t, doc.PaidAt)

	// Provider retries deliver the same reference again; the replay is
	// acknowledged without creating a second payment.
	rec = env.post(t, body, signBody(testWebhookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&domain.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWebhook_SubscriptionUpdated(t *testing.T) {
	env := newWebhookTestEnv(t)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	body, err := json.Marshal(domain.WebhookEvent{
		ID:        "evt_sub_1",
		Type:      "subscription.updated",
		CreatedAt: time.Now().Unix(),
		Data: domain.WebhookData{
			Subscription: &domain.WebhookSubscription{
				CompanyID:        env.company.ID,
				Status:           "past_due",
				PlanID:           "pro-mensuel",
				CustomerID:       "cus_9Zt",
				CurrentPeriodEnd: &periodEnd,
			},
		},
	})
	require.NoError(t, err)

	rec := env.post(t, body, signBody(testWebhookSecret, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sub domain.CompanySubscription
	require.NoError(t, env.db.First(&sub, "company_id = ?", env.company.ID).Error)
	assert.Equal(t, domain.SubscriptionStatusPastDue, sub.Status)
}

func TestWebhook_UnknownEventAcknowledged(t *testing.T) {
	env := newWebhookTestEnv(t)

	body := []byte(`{"id":"evt_x","type":"invoice.finalized","data":{}}`)
	rec := env.post(t, body, signBody(testWebhookSecret, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := signBody(testWebhookSecret, body)

	assert.True(t, verifySignature(testWebhookSecret, body, sig))

	// The sha256= prefix is optional.
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	bare := hex.EncodeToString(mac.Sum(nil))
	assert.True(t, verifySignature(testWebhookSecret, body, bare))

	assert.False(t, verifySignature(testWebhookSecret, body, ""))
	assert.False(t, verifySignature("", body, sig))
	assert.False(t, verifySignature(testWebhookSecret, body, "not-hex"))
	assert.False(t, verifySignature(testWebhookSecret, body, fmt.Sprintf("sha256=%064d", 0)))
}
