package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/repository"
)

// NumberSequenceService handles generation of unique, formatted document
// numbers. Quotes and invoices number independently per company/year.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: DEV-2026-001, FAC-2026-042
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
	}
}

// GenerateDocumentNumber generates the next number for a company and
// document type. Called when a document leaves draft; drafts carry no number.
func (s *NumberSequenceService) GenerateDocumentNumber(ctx context.Context, companyID uuid.UUID, docType domain.DocumentType) (string, error) {
	if !docType.IsValid() {
		return "", fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}

	year := time.Now().Year()
	prefix := documentNumberPrefix(docType)

	nextSeq, err := s.repo.GetNextNumber(ctx, companyID, docType, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("companyID", companyID.String()),
			zap.Int("year", year),
			zap.String("docType", string(docType)),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", docType, err)
	}

	// Format: PREFIX-YYYY-NNN (zero-padded to 3 digits)
	number := fmt.Sprintf("%s-%d-%03d", prefix, year, nextSeq)

	s.logger.Info("generated document number",
		zap.String("number", number),
		zap.String("companyID", companyID.String()),
		zap.Int("year", year),
		zap.Int("sequence", nextSeq),
		zap.String("docType", string(docType)))

	return number, nil
}

// documentNumberPrefix maps a document type to its French numbering prefix:
// DEV for devis (quotes), FAC for factures (invoices).
func documentNumberPrefix(docType domain.DocumentType) string {
	if docType == domain.DocumentTypeInvoice {
		return "FAC"
	}
	return "DEV"
}
