package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chantierflow/commerce-api/internal/auth"
	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/mapper"
	"github.com/chantierflow/commerce-api/internal/pricing"
	"github.com/chantierflow/commerce-api/internal/repository"
)

// DocumentService owns document CRUD and the line store. Every line
// mutation runs through the subscription gate, the signed-document lock,
// and a synchronous totals recompute.
type DocumentService struct {
	docRepo        *repository.DocumentRepository
	lineRepo       *repository.DocumentLineRepository
	libraryRepo    *repository.PriceLibraryRepository
	clientRepo     *repository.ClientRepository
	companyRepo    *repository.CompanyRepository
	activityRepo   *repository.ActivityRepository
	paymentRepo    *repository.PaymentRepository
	subscriptions  *SubscriptionService
	numberSeq      *NumberSequenceService
	resolver       *pricing.Resolver
	invoiceDueDays int
	logger         *zap.Logger
	db             *gorm.DB
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	lineRepo *repository.DocumentLineRepository,
	libraryRepo *repository.PriceLibraryRepository,
	clientRepo *repository.ClientRepository,
	companyRepo *repository.CompanyRepository,
	activityRepo *repository.ActivityRepository,
	paymentRepo *repository.PaymentRepository,
	subscriptions *SubscriptionService,
	numberSeq *NumberSequenceService,
	resolver *pricing.Resolver,
	invoiceDueDays int,
	logger *zap.Logger,
	db *gorm.DB,
) *DocumentService {
	if invoiceDueDays <= 0 {
		invoiceDueDays = 30
	}
	return &DocumentService{
		docRepo:        docRepo,
		lineRepo:       lineRepo,
		libraryRepo:    libraryRepo,
		clientRepo:     clientRepo,
		companyRepo:    companyRepo,
		activityRepo:   activityRepo,
		paymentRepo:    paymentRepo,
		subscriptions:  subscriptions,
		numberSeq:      numberSeq,
		resolver:       resolver,
		invoiceDueDays: invoiceDueDays,
		logger:         logger,
		db:             db,
	}
}

// Create creates a new draft document, optionally with initial lines.
func (s *DocumentService) Create(ctx context.Context, req *domain.CreateDocumentRequest) (*domain.DocumentDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	if err := s.requireSubscription(ctx, userCtx.CompanyID); err != nil {
		return nil, err
	}

	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, req.Type)
	}

	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	taxRate := 0.20
	if company, err := s.companyRepo.GetByID(ctx, userCtx.CompanyID); err == nil {
		taxRate = company.DefaultTaxRate
	}
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	doc := &domain.Document{
		CompanyID: userCtx.CompanyID,
		ClientID:  client.ID,
		Type:      req.Type,
		Title:     req.Title,
		Status:    domain.DocumentStatusDraft,
		TaxRate:   taxRate,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	for i := range req.Lines {
		if _, err := s.addLine(ctx, doc, &req.Lines[i]); err != nil {
			return nil, err
		}
	}

	if err := s.RecomputeTotals(ctx, doc.ID); err != nil {
		return nil, err
	}

	s.logActivity(ctx, doc, "Document créé",
		fmt.Sprintf("Le document '%s' a été créé", doc.Title))

	return s.Get(ctx, doc.ID)
}

// Get returns the document with its lines and derived state.
func (s *DocumentService) Get(ctx context.Context, id uuid.UUID) (*domain.DocumentDTO, error) {
	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

// List returns documents matching the filter for the caller's company.
func (s *DocumentService) List(ctx context.Context, filter repository.DocumentFilter, page, pageSize int) ([]domain.DocumentDTO, int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, 0, ErrUnauthorized
	}
	if filter.CompanyID == uuid.Nil {
		filter.CompanyID = userCtx.CompanyID
	}

	docs, total, err := s.docRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}

	dtos := make([]domain.DocumentDTO, 0, len(docs))
	for i := range docs {
		dtos = append(dtos, mapper.ToDocumentDTO(&docs[i]))
	}
	return dtos, total, nil
}

// Update changes the document's header fields (title, default tax rate).
func (s *DocumentService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDocumentRequest) (*domain.DocumentDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if err := s.requireSubscription(ctx, userCtx.CompanyID); err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked() {
		return nil, ErrDocumentLocked
	}

	if req.Title != "" {
		doc.Title = req.Title
	}
	if req.TaxRate != nil {
		doc.TaxRate = *req.TaxRate
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	return s.Get(ctx, id)
}

// AddLine appends a line to the document. Prices missing from the request
// are resolved through the price sources; the library learns from the
// saved line afterwards.
func (s *DocumentService) AddLine(ctx context.Context, documentID uuid.UUID, req *domain.CreateLineRequest) (*domain.DocumentLineDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if err := s.requireSubscription(ctx, userCtx.CompanyID); err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked() {
		return nil, ErrDocumentLocked
	}

	line, err := s.addLine(ctx, doc, req)
	if err != nil {
		return nil, err
	}

	if err := s.RecomputeTotals(ctx, doc.ID); err != nil {
		return nil, err
	}

	dto := mapper.ToDocumentLineDTO(line)
	return &dto, nil
}

// addLine validates, prices and persists a line, then teaches the library.
// Callers are responsible for gate/lock checks and the totals recompute.
func (s *DocumentService) addLine(ctx context.Context, doc *domain.Document, req *domain.CreateLineRequest) (*domain.DocumentLine, error) {
	if strings.TrimSpace(req.Label) == "" {
		return nil, ErrBlankLabel
	}

	category := req.Category
	if category == "" {
		category = domain.LineCategoryOther
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown line category %q", ErrInvalidInput, category)
	}

	taxRate := doc.TaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	resolved := s.resolver.Resolve(ctx, pricing.ResolveInput{
		CompanyID:   doc.CompanyID,
		Label:       req.Label,
		Category:    category,
		Unit:        req.Unit,
		ManualPrice: req.UnitPriceHT,
	})

	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		next, err := s.lineRepo.NextPosition(ctx, doc.Type, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to compute line position: %w", err)
		}
		position = next
	}

	line := &domain.DocumentLine{
		Label:       strings.TrimSpace(req.Label),
		Description: req.Description,
		Category:    category,
		Unit:        req.Unit,
		Quantity:    req.Quantity,
		UnitPriceHT: resolved.Price,
		TaxRate:     taxRate,
		PriceSource: resolved.Source,
		Position:    position,
	}
	if doc.Type == domain.DocumentTypeQuote {
		line.QuoteID = &doc.ID
	} else {
		line.InvoiceID = &doc.ID
	}

	if err := s.lineRepo.Create(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to create line: %w", err)
	}

	// Library learning happens after the line is saved, from the line's
	// final values, so a failed save cannot poison the library.
	s.learnLibrary(ctx, doc.CompanyID, line)

	return line, nil
}

// AddLineFromLibrary appends a line built from a price library entry.
// The price comes from the resolver's library lookup so the line is
// tagged with the library source; entries without a stored price fall
// through to the estimators.
func (s *DocumentService) AddLineFromLibrary(ctx context.Context, documentID uuid.UUID, req *domain.AddLineFromLibraryRequest) (*domain.DocumentLineDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if err := s.requireSubscription(ctx, userCtx.CompanyID); err != nil {
		return nil, err
	}

	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked() {
		return nil, ErrDocumentLocked
	}

	entry, err := s.libraryRepo.GetByID(ctx, req.EntryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLibraryEntryNotFound
		}
		return nil, fmt.Errorf("failed to get library entry: %w", err)
	}

	lineReq := &domain.CreateLineRequest{
		Label:    entry.Label,
		Category: entry.DefaultCategory,
		Unit:     entry.DefaultUnit,
		Quantity: req.Quantity,
		Position: req.Position,
	}

	line, err := s.addLine(ctx, doc, lineReq)
	if err != nil {
		return nil, err
	}

	if err := s.RecomputeTotals(ctx, doc.ID); err != nil {
		return nil, err
	}

	dto := mapper.ToDocumentLineDTO(line)
	return &dto, nil
}

// UpdateLine replaces the line's editable fields. A manual price edit
// forces the source back to manual and teaches the library the correction.
func (s *DocumentService) UpdateLine(ctx context.Context, lineID uuid.UUID, req *domain.UpdateLineRequest) (*domain.DocumentLineDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if err := s.requireSubscription(ctx, userCtx.CompanyID); err != nil {
		return nil, err
	}

	line, err := s.lineRepo.GetByID(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("failed to get line: %w", err)
	}

	doc, err := s.loadDocument(ctx, line.DocumentID())
	if err != nil {
		return nil, err
	}
	if doc.IsLocked() {
		return nil, ErrDocumentLocked
	}

	if strings.TrimSpace(req.Label) == "" {
		return nil, ErrBlankLabel
	}

	priceEdited := !floatPtrEqual(line.UnitPriceHT, req.UnitPriceHT)

	line.Label = strings.TrimSpace(req.Label)
	line.Description = req.Description
	if req.Category != "" {
		if !req.Category.IsValid() {
			return nil, fmt.Errorf("%w: unknown line category %q", ErrInvalidInput, req.Category)
		}
		line.Category = req.Category
	}
	line.Unit = req.Unit
	line.Quantity = req.Quantity
	line.UnitPriceHT = req.UnitPriceHT
	if req.TaxRate != nil {
		line.TaxRate = *req.TaxRate
	}
	if req.Position != nil {
		line.Position = *req.Position
	}
	if priceEdited {
		line.PriceSource = domain.PriceSourceManual
	}

	if err := s.lineRepo.Update(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to update line: %w", err)
	}

	if priceEdited {
		s.learnLibrary(ctx, doc.CompanyID, line)
	}

	if err := s.RecomputeTotals(ctx, doc.ID); err != nil {
		return nil, err
	}

	dto := mapper.ToDocumentLineDTO(line)
	return &dto, nil
}

// RemoveLine deletes a line. The library is untouched: entries are
// label-scoped and may be in use on other documents.
func (s *DocumentService) RemoveLine(ctx context.Context, lineID uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if err := s.requireSubscription(ctx, userCtx.CompanyID); err != nil {
		return err
	}

	line, err := s.lineRepo.GetByID(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLineNotFound
		}
		return fmt.Errorf("failed to get line: %w", err)
	}

	doc, err := s.loadDocument(ctx, line.DocumentID())
	if err != nil {
		return err
	}
	if doc.IsLocked() {
		return ErrDocumentLocked
	}

	if err := s.lineRepo.Delete(ctx, lineID); err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}

	return s.RecomputeTotals(ctx, doc.ID)
}

// RecomputeTotals refreshes the document's denormalized totals snapshot
// from its current lines. Safe to call with zero lines.
func (s *DocumentService) RecomputeTotals(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}

	totals := pricing.SumLines(doc.Lines)
	if err := s.docRepo.UpdateTotals(ctx, doc.ID, domain.DocumentTotalsDTO{
		SubtotalHT: totals.SubtotalHT,
		TotalTVA:   totals.TotalTVA,
		TotalTTC:   totals.TotalTTC,
	}); err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}
	return nil
}

// ResolvePrice runs a read-only price resolution for the caller's company.
func (s *DocumentService) ResolvePrice(ctx context.Context, req *domain.ResolvePriceRequest) (*domain.ResolvedPriceDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(req.Label) == "" {
		return nil, ErrBlankLabel
	}
	if req.ManualPrice != nil && *req.ManualPrice < 0 {
		return nil, fmt.Errorf("%w: manual price must not be negative", ErrInvalidInput)
	}

	resolved := s.resolver.Resolve(ctx, pricing.ResolveInput{
		CompanyID:   userCtx.CompanyID,
		Label:       req.Label,
		Category:    req.Category,
		Unit:        req.Unit,
		ManualPrice: req.ManualPrice,
	})

	return &domain.ResolvedPriceDTO{Price: resolved.Price, Source: resolved.Source}, nil
}

// ListLibrary returns the company's price library entries.
func (s *DocumentService) ListLibrary(ctx context.Context, search string, page, pageSize int) ([]domain.PriceLibraryEntryDTO, int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, 0, ErrUnauthorized
	}

	entries, total, err := s.libraryRepo.List(ctx, userCtx.CompanyID, search, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list library entries: %w", err)
	}

	dtos := make([]domain.PriceLibraryEntryDTO, 0, len(entries))
	for i := range entries {
		dtos = append(dtos, mapper.ToPriceLibraryEntryDTO(&entries[i]))
	}
	return dtos, total, nil
}

// Delete removes a draft document and its lines. Anything past draft is
// immutable and can only be cancelled.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireSubscription(ctx, doc.CompanyID); err != nil {
		return err
	}
	if doc.Status != domain.DocumentStatusDraft {
		return ErrDocumentLocked
	}

	if err := s.lineRepo.DeleteByDocument(ctx, doc.Type, doc.ID); err != nil {
		return fmt.Errorf("failed to delete document lines: %w", err)
	}
	if err := s.docRepo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Stats returns per-status document counts for the caller's company.
func (s *DocumentService) Stats(ctx context.Context) (*domain.DocumentStatsDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	stats := &domain.DocumentStatsDTO{}
	for _, c := range []struct {
		status domain.DocumentStatus
		dst    *int64
	}{
		{domain.DocumentStatusDraft, &stats.Draft},
		{domain.DocumentStatusSent, &stats.Sent},
		{domain.DocumentStatusSigned, &stats.Signed},
		{domain.DocumentStatusPaid, &stats.Paid},
		{domain.DocumentStatusCancelled, &stats.Cancelled},
	} {
		n, err := s.docRepo.CountByStatus(ctx, userCtx.CompanyID, c.status)
		if err != nil {
			return nil, fmt.Errorf("failed to count documents: %w", err)
		}
		*c.dst = n
	}
	return stats, nil
}

// ListActivity returns the audit trail for a document, newest first.
func (s *DocumentService) ListActivity(ctx context.Context, documentID uuid.UUID, limit int) ([]domain.ActivityDTO, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	targetType := domain.ActivityTargetQuote
	if doc.Type == domain.DocumentTypeInvoice {
		targetType = domain.ActivityTargetInvoice
	}

	activities, err := s.activityRepo.ListByTarget(ctx, targetType, doc.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	dtos := make([]domain.ActivityDTO, 0, len(activities))
	for i := range activities {
		dtos = append(dtos, mapper.ToActivityDTO(&activities[i]))
	}
	return dtos, nil
}

// ListPayments returns the payments recorded against a document.
func (s *DocumentService) ListPayments(ctx context.Context, documentID uuid.UUID) ([]domain.PaymentDTO, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	dtos := make([]domain.PaymentDTO, 0, len(payments))
	for i := range payments {
		dtos = append(dtos, mapper.ToPaymentDTO(&payments[i]))
	}
	return dtos, nil
}

// loadDocument fetches a document with its lines, mapping gorm's not-found
// to the service sentinel.
func (s *DocumentService) loadDocument(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	lines, err := s.lineRepo.ListByDocument(ctx, doc.Type, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// requireSubscription rejects mutations for companies without an active
// or trialing subscription, before anything is persisted.
func (s *DocumentService) requireSubscription(ctx context.Context, companyID uuid.UUID) error {
	allowed, err := s.subscriptions.CanMutateDocuments(ctx, companyID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrSubscriptionRequired
	}
	return nil
}

// learnLibrary upserts the library entry from the line's final values.
// Failures are logged, never surfaced: learning is best-effort.
func (s *DocumentService) learnLibrary(ctx context.Context, companyID uuid.UUID, line *domain.DocumentLine) {
	normalized := pricing.NormalizeLabel(line.Label)
	if normalized == "" {
		return
	}

	entry := &domain.PriceLibraryEntry{
		CompanyID:          companyID,
		Label:              line.Label,
		NormalizedLabel:    normalized,
		DefaultUnit:        line.Unit,
		DefaultCategory:    line.Category,
		DefaultUnitPriceHT: line.UnitPriceHT,
		TimesUsed:          1,
	}
	if err := s.libraryRepo.Upsert(ctx, entry); err != nil {
		s.logger.Warn("failed to upsert price library entry",
			zap.String("label", normalized),
			zap.Error(err))
	}
}

// logActivity records an audit trail entry for a document event.
func (s *DocumentService) logActivity(ctx context.Context, doc *domain.Document, title, body string) {
	targetType := domain.ActivityTargetQuote
	if doc.Type == domain.DocumentTypeInvoice {
		targetType = domain.ActivityTargetInvoice
	}

	activity := &domain.Activity{
		TargetType: targetType,
		TargetID:   doc.ID,
		Title:      title,
		Body:       body,
	}
	if userCtx, ok := auth.FromContext(ctx); ok {
		activity.ActorID = userCtx.UserID
		activity.ActorName = userCtx.DisplayName
	}

	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to log activity", zap.Error(err))
	}
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
