package service

// Lifecycle transitions for commercial documents: draft -> sent -> signed
// -> paid, with cancelled reachable from any non-terminal state. The
// signed transition lives in SignatureService; it is never settable
// through a generic status update.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/domain"
)

// Send transitions a document from draft to sent. The document number is
// assigned here: drafts are unnumbered until they leave the company.
// Invoices get a due date from the configured payment terms.
func (s *DocumentService) Send(ctx context.Context, id uuid.UUID) (*domain.DocumentDTO, error) {
	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubscription(ctx, doc.CompanyID); err != nil {
		return nil, err
	}

	if doc.Status != domain.DocumentStatusDraft {
		return nil, fmt.Errorf("%w: cannot send a %s document", ErrInvalidTransition, doc.Status)
	}

	if doc.Number == "" {
		number, err := s.numberSeq.GenerateDocumentNumber(ctx, doc.CompanyID, doc.Type)
		if err != nil {
			return nil, err
		}
		doc.Number = number
	}

	now := time.Now()
	doc.Status = domain.DocumentStatusSent
	doc.SentAt = &now

	if doc.Type == domain.DocumentTypeInvoice && doc.DueDate == nil {
		due := now.AddDate(0, 0, s.invoiceDueDays)
		doc.DueDate = &due
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to send document: %w", err)
	}

	s.logActivity(ctx, doc, "Document envoyé",
		fmt.Sprintf("Le document %s a été envoyé au client", doc.Number))

	return s.Get(ctx, id)
}

// Cancel transitions a document to cancelled. Allowed from any
// non-terminal state; paid documents can never be cancelled.
func (s *DocumentService) Cancel(ctx context.Context, id uuid.UUID) (*domain.DocumentDTO, error) {
	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireSubscription(ctx, doc.CompanyID); err != nil {
		return nil, err
	}

	if !doc.CanCancel() {
		return nil, fmt.Errorf("%w: cannot cancel a %s document", ErrInvalidTransition, doc.Status)
	}

	now := time.Now()
	doc.Status = domain.DocumentStatusCancelled
	doc.CancelledAt = &now

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to cancel document: %w", err)
	}

	s.logActivity(ctx, doc, "Document annulé",
		fmt.Sprintf("Le document '%s' a été annulé", doc.Title))

	return s.Get(ctx, id)
}

// IsPayable reports whether a payment session may be opened for the
// document. Quotes take a deposit only once signed; invoices are payable
// once signed, or once sent with a non-zero total.
func (s *DocumentService) IsPayable(ctx context.Context, id uuid.UUID) (bool, error) {
	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return false, err
	}
	return doc.IsPayable(), nil
}

// MarkPaid records a confirmed payment and transitions the document to
// paid. Idempotent on the provider reference: replaying a webhook with a
// reference already recorded is a no-op, not a double-count.
func (s *DocumentService) MarkPaid(ctx context.Context, id uuid.UUID, req *domain.MarkPaidRequest) (*domain.DocumentDTO, error) {
	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.paymentRepo.GetByReference(ctx, req.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment reference: %w", err)
	}
	if existing != nil {
		if existing.DocumentID != doc.ID {
			return nil, fmt.Errorf("%w: reference %s belongs to another document", ErrInvalidInput, req.Reference)
		}
		// Replayed confirmation: the document is already paid under this
		// reference.
		return s.Get(ctx, id)
	}

	if doc.Status == domain.DocumentStatusPaid {
		return nil, ErrDocumentAlreadyPaid
	}
	if !doc.IsPayable() {
		return nil, ErrDocumentNotPayable
	}

	amount := doc.TotalTTC
	if req.Amount != nil {
		amount = *req.Amount
	}
	receivedAt := time.Now()
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	payment := &domain.Payment{
		DocumentID: doc.ID,
		Reference:  req.Reference,
		Amount:     amount,
		ReceivedAt: receivedAt,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	doc.Status = domain.DocumentStatusPaid
	doc.PaidAt = &receivedAt
	doc.PaymentReference = req.Reference

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to mark document paid: %w", err)
	}

	s.logger.Info("document paid",
		zap.String("documentID", doc.ID.String()),
		zap.String("reference", req.Reference),
		zap.Float64("amount", amount))

	s.logActivity(ctx, doc, "Paiement reçu",
		fmt.Sprintf("Paiement de %.2f EUR reçu (réf. %s)", amount, req.Reference))

	return s.Get(ctx, id)
}
