package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/chantierflow/commerce-api/internal/auth"
	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/pricing"
	"github.com/chantierflow/commerce-api/internal/repository"
	"github.com/chantierflow/commerce-api/internal/service"
)

// setupTestDB opens an in-memory sqlite database with the full schema.
// A single connection keeps the memory database alive for the test.
func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

// testEnv wires the full service stack over an in-memory database with
// one company (active subscription) and one client.
type testEnv struct {
	db            *gorm.DB
	documents     *service.DocumentService
	signatures    *service.SignatureService
	subscriptions *service.SubscriptionService
	clients       *service.ClientService
	libraryRepo   *repository.PriceLibraryRepository
	sessionRepo   *repository.SignatureSessionRepository
	paymentRepo   *repository.PaymentRepository
	subRepo       *repository.SubscriptionRepository
	company       *domain.Company
	client        *domain.Client
	ctx           context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil, nil)
}

func newTestEnvWith(t *testing.T, market, ai pricing.Estimator) *testEnv {
	db := setupTestDB(t)
	log := zap.NewNop()

	docRepo := repository.NewDocumentRepository(db)
	lineRepo := repository.NewDocumentLineRepository(db)
	libraryRepo := repository.NewPriceLibraryRepository(db)
	clientRepo := repository.NewClientRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	sessionRepo := repository.NewSignatureSessionRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	seqRepo := repository.NewNumberSequenceRepository(db)

	subscriptions := service.NewSubscriptionService(subRepo, log)
	numberSeq := service.NewNumberSequenceService(seqRepo, log)
	resolver := pricing.NewResolver(libraryRepo, market, ai, log)

	documents := service.NewDocumentService(
		docRepo, lineRepo, libraryRepo, clientRepo, companyRepo,
		activityRepo, paymentRepo, subscriptions, numberSeq, resolver,
		30, log, db)
	signatures := service.NewSignatureService(sessionRepo, documents, nil, 0, log)
	clients := service.NewClientService(clientRepo, log)

	company := &domain.Company{
		Name:           "Bâtir Rénov SARL",
		Email:          "contact@batir-renov.fr",
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
		Name:      "Dupont Immobilier",
		Country:   "France",
		IsActive:  true,
	}
	require.NoError(t, db.Create(client).Error)

	return &testEnv{
		db:            db,
		documents:     documents,
		signatures:    signatures,
		subscriptions: subscriptions,
		clients:       clients,
		libraryRepo:   libraryRepo,
		sessionRepo:   sessionRepo,
		paymentRepo:   paymentRepo,
		subRepo:       subRepo,
		company:       company,
		client:        client,
		ctx:           testContext(company.ID),
	}
}

func testContext(companyID uuid.UUID) context.Context {
	user := &auth.UserContext{
		UserID:      "user-123",
		DisplayName: "Marie Martin",
		Email:       "marie@batir-renov.fr",
		Roles:       []domain.UserRoleType{domain.RoleAdmin},
		CompanyID:   companyID,
	}
	ctx := auth.WithUserContext(context.Background(), user)
	return auth.WithCompanyFilter(ctx, &auth.CompanyFilter{CompanyID: &companyID})
}

// setSubscriptionStatus flips the company's subscription status directly.
func (e *testEnv) setSubscriptionStatus(t *testing.T, status domain.SubscriptionStatus) {
	err := e.db.Model(&domain.CompanySubscription{}).
		Where("company_id = ?", e.company.ID).
		Update("status", status).Error
	require.NoError(t, err)
}

// createDocument creates a draft document with the given lines.
func (e *testEnv) createDocument(t *testing.T, docType domain.DocumentType, lines ...domain.CreateLineRequest) *domain.DocumentDTO {
	doc, err := e.documents.Create(e.ctx, &domain.CreateDocumentRequest{
		ClientID: e.client.ID,
		Type:     docType,
		Title:    "Rénovation salle de bain",
		Lines:    lines,
	})
	require.NoError(t, err)
	return doc
}

func floatPtr(v float64) *float64 { return &v }

// stubEstimator is a scripted price estimator for resolver paths.
type stubEstimator struct {
	price *float64
	err   error
	calls int
}

func (s *stubEstimator) Estimate(_ context.Context, _ pricing.EstimateRequest) (*float64, error) {
	s.calls++
	return s.price, s.err
}
