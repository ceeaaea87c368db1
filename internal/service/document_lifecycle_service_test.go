package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/service"
)

func TestLifecycle_Send_AssignsNumberAndDueDate(t *testing.T) {
	env := newTestEnv(t)
	year := time.Now().Year()

	quote := env.createDocument(t, domain.DocumentTypeQuote,
		domain.CreateLineRequest{Label: "Pose carrelage", Quantity: floatPtr(10), UnitPriceHT: floatPtr(35)},
	)
	sent, err := env.documents.Send(env.ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusSent, sent.Status)
	assert.Equal(t, fmt.Sprintf("DEV-%d-001", year), sent.Number)
	assert.NotNil(t, sent.SentAt)
	assert.Nil(t, sent.DueDate)

	// Quotes and invoices number independently.
	invoice := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Acompte travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(500)},
	)
	sentInvoice, err := env.documents.Send(env.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FAC-%d-001", year), sentInvoice.Number)
	require.NotNil(t, sentInvoice.DueDate)

	secondQuote := env.createDocument(t, domain.DocumentTypeQuote)
	sentSecond, err := env.documents.Send(env.ctx, secondQuote.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("DEV-%d-002", year), sentSecond.Number)
}

func TestLifecycle_Send_OnlyFromDraft(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createDocument(t, domain.DocumentTypeQuote)

	_, err := env.documents.Send(env.ctx, doc.ID)
	require.NoError(t, err)

	_, err = env.documents.Send(env.ctx, doc.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestLifecycle_Cancel(t *testing.T) {
	env := newTestEnv(t)

	doc := env.createDocument(t, domain.DocumentTypeQuote)
	cancelled, err := env.documents.Cancel(env.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	// Terminal: no way back.
	_, err = env.documents.Send(env.ctx, doc.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	_, err = env.documents.Cancel(env.ctx, doc.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestLifecycle_Cancel_PaidDocument(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(1000)},
	)
	_, err := env.documents.Send(env.ctx, invoice.ID)
	require.NoError(t, err)
	_, err = env.documents.MarkPaid(env.ctx, invoice.ID, &domain.MarkPaidRequest{Reference: "PAY-100"})
	require.NoError(t, err)

	_, err = env.documents.Cancel(env.ctx, invoice.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestLifecycle_IsPayable(t *testing.T) {
	env := newTestEnv(t)

	quote := env.createDocument(t, domain.DocumentTypeQuote,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(1000)},
	)
	payable, err := env.documents.IsPayable(env.ctx, quote.ID)
	require.NoError(t, err)
	assert.False(t, payable, "draft quote is not payable")

	_, err = env.documents.Send(env.ctx, quote.ID)
	require.NoError(t, err)
	payable, err = env.documents.IsPayable(env.ctx, quote.ID)
	require.NoError(t, err)
	assert.False(t, payable, "sent quote takes a deposit only once signed")

	err = env.db.Model(&domain.Document{}).
		Where("id = ?", quote.ID).
		Update("status", domain.DocumentStatusSigned).Error
	require.NoError(t, err)
	payable, err = env.documents.IsPayable(env.ctx, quote.ID)
	require.NoError(t, err)
	assert.True(t, payable)

	// Sent invoices are payable as soon as they carry a non-zero total.
	invoice := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(500)},
	)
	_, err = env.documents.Send(env.ctx, invoice.ID)
	require.NoError(t, err)
	payable, err = env.documents.IsPayable(env.ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, payable)

	emptyInvoice := env.createDocument(t, domain.DocumentTypeInvoice)
	_, err = env.documents.Send(env.ctx, emptyInvoice.ID)
	require.NoError(t, err)
	payable, err = env.documents.IsPayable(env.ctx, emptyInvoice.ID)
	require.NoError(t, err)
	assert.False(t, payable, "zero-total invoice is not payable")
}

func TestLifecycle_MarkPaid(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(1200)},
	)
	_, err := env.documents.Send(env.ctx, invoice.ID)
	require.NoError(t, err)

	paid, err := env.documents.MarkPaid(env.ctx, invoice.ID, &domain.MarkPaidRequest{Reference: "PAY-42"})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPaid, paid.Status)
	assert.Equal(t, "PAY-42", paid.PaymentReference)
	assert.NotNil(t, paid.PaidAt)

	payments, err := env.paymentRepo.ListByDocument(env.ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, 1440.0, payments[0].Amount)
}

func TestLifecycle_MarkPaid_IdempotentOnReference(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(1000)},
	)
	_, err := env.documents.Send(env.ctx, invoice.ID)
	require.NoError(t, err)

	_, err = env.documents.MarkPaid(env.ctx, invoice.ID, &domain.MarkPaidRequest{Reference: "PAY-77"})
	require.NoError(t, err)

	// Provider webhook replay: same reference, no double-count, no error.
	replayed, err := env.documents.MarkPaid(env.ctx, invoice.ID, &domain.MarkPaidRequest{Reference: "PAY-77"})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPaid, replayed.Status)

	payments, err := env.paymentRepo.ListByDocument(env.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	// A second distinct reference against a paid document is rejected.
	_, err = env.documents.MarkPaid(env.ctx, invoice.ID, &domain.MarkPaidRequest{Reference: "PAY-78"})
	assert.ErrorIs(t, err, service.ErrDocumentAlreadyPaid)
}

func TestLifecycle_MarkPaid_ReferenceBoundToDocument(t *testing.T) {
	env := newTestEnv(t)

	first := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(1000)},
	)
	second := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(2000)},
	)
	_, err := env.documents.Send(env.ctx, first.ID)
	require.NoError(t, err)
	_, err = env.documents.Send(env.ctx, second.ID)
	require.NoError(t, err)

	_, err = env.documents.MarkPaid(env.ctx, first.ID, &domain.MarkPaidRequest{Reference: "PAY-1"})
	require.NoError(t, err)

	_, err = env.documents.MarkPaid(env.ctx, second.ID, &domain.MarkPaidRequest{Reference: "PAY-1"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestLifecycle_MarkPaid_NotPayable(t *testing.T) {
	env := newTestEnv(t)

	quote := env.createDocument(t, domain.DocumentTypeQuote,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(1000)},
	)
	_, err := env.documents.MarkPaid(env.ctx, quote.ID, &domain.MarkPaidRequest{Reference: "PAY-9"})
	assert.ErrorIs(t, err, service.ErrDocumentNotPayable)
}

func TestLifecycle_OverdueIsDerived(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Travaux", Quantity: floatPtr(1), UnitPriceHT: floatPtr(1000)},
	)
	_, err := env.documents.Send(env.ctx, invoice.ID)
	require.NoError(t, err)

	pastDue := time.Now().AddDate(0, 0, -5)
	err = env.db.Model(&domain.Document{}).
		Where("id = ?", invoice.ID).
		Update("due_date", pastDue).Error
	require.NoError(t, err)

	doc, err := env.documents.Get(env.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusSent, doc.Status, "overdue is never a stored status")
	assert.True(t, doc.Overdue)

	// Payment clears the derived flag.
	_, err = env.documents.MarkPaid(env.ctx, invoice.ID, &domain.MarkPaidRequest{Reference: "PAY-55"})
	require.NoError(t, err)
	doc, err = env.documents.Get(env.ctx, invoice.ID)
	require.NoError(t, err)
	assert.False(t, doc.Overdue)
}

func TestLifecycle_ActivityTrail(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Gros œuvre", Quantity: floatPtr(1), UnitPriceHT: floatPtr(800)},
	)
	_, err := env.documents.Send(env.ctx, invoice.ID)
	require.NoError(t, err)
	_, err = env.documents.MarkPaid(env.ctx, invoice.ID, &domain.MarkPaidRequest{Reference: "PAY-91"})
	require.NoError(t, err)

	activities, err := env.documents.ListActivity(env.ctx, invoice.ID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, activities)
	for _, a := range activities {
		assert.Equal(t, domain.ActivityTargetInvoice, a.TargetType)
		assert.Equal(t, invoice.ID, a.TargetID)
		assert.Equal(t, "Marie Martin", a.UserName)
	}
}

func TestLifecycle_ListPayments(t *testing.T) {
	env := newTestEnv(t)

	invoice := env.createDocument(t, domain.DocumentTypeInvoice,
		domain.CreateLineRequest{Label: "Plomberie", Quantity: floatPtr(2), UnitPriceHT: floatPtr(450)},
	)
	_, err := env.documents.Send(env.ctx, invoice.ID)
	require.NoError(t, err)

	payments, err := env.documents.ListPayments(env.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	_, err = env.documents.MarkPaid(env.ctx, invoice.ID, &domain.MarkPaidRequest{Reference: "PAY-92"})
	require.NoError(t, err)

	payments, err = env.documents.ListPayments(env.ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "PAY-92", payments[0].Reference)
	assert.Equal(t, 1080.0, payments[0].Amount)

	_, err = env.documents.ListPayments(env.ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrDocumentNotFound)
}
