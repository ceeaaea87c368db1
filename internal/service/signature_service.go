package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chantierflow/commerce-api/internal/auth"
	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/mapper"
	"github.com/chantierflow/commerce-api/internal/repository"
	"github.com/chantierflow/commerce-api/internal/storage"
)

// SignatureService manages signature sessions: issuance, token-scoped
// validation and the single-use signing transition that moves the owning
// document to signed.
type SignatureService struct {
	sessionRepo *repository.SignatureSessionRepository
	documents   *DocumentService
	storage     storage.Storage
	defaultTTL  time.Duration
	logger      *zap.Logger
}

func NewSignatureService(
	sessionRepo *repository.SignatureSessionRepository,
	documents *DocumentService,
	store storage.Storage,
	defaultTTL time.Duration,
	logger *zap.Logger,
) *SignatureService {
	if defaultTTL <= 0 {
		defaultTTL = 7 * 24 * time.Hour
	}
	return &SignatureService{
		sessionRepo: sessionRepo,
		documents:   documents,
		storage:     store,
		defaultTTL:  defaultTTL,
		logger:      logger,
	}
}

// CreateSession issues a signing link for a document. The document must
// still be signable (draft or sent); the session binds to exactly one
// document and expires strictly in the future.
func (s *SignatureService) CreateSession(ctx context.Context, documentID uuid.UUID, req *domain.CreateSessionRequest) (*domain.SignatureSessionDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if err := s.documents.requireSubscription(ctx, userCtx.CompanyID); err != nil {
		return nil, err
	}

	doc, err := s.documents.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.CanSign() {
		return nil, fmt.Errorf("%w: cannot request signature for a %s document", ErrInvalidTransition, doc.Status)
	}

	ttl := s.defaultTTL
	if req.TTLHours != nil {
		ttl = time.Duration(*req.TTLHours) * time.Hour
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &domain.SignatureSession{
		Token:       token,
		Status:      domain.SessionStatusPending,
		ExpiresAt:   time.Now().Add(ttl),
		SignerName:  req.SignerName,
		SignerEmail: req.SignerEmail,
	}
	if doc.Type == domain.DocumentTypeQuote {
		session.QuoteID = &doc.ID
	} else {
		session.InvoiceID = &doc.ID
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create signature session: %w", err)
	}

	s.documents.logActivity(ctx, doc, "Demande de signature envoyée",
		fmt.Sprintf("Une demande de signature a été créée pour '%s'", doc.Title))

	dto := mapper.ToSignatureSessionDTO(session)
	return &dto, nil
}

// ValidateSession resolves a token to the signer-facing document view.
// An expired-but-still-pending session reports expired, never pending.
func (s *SignatureService) ValidateSession(ctx context.Context, token string) (*domain.SignatureSessionPublicDTO, error) {
	session, err := s.getUsableSession(ctx, token, time.Now())
	if err != nil {
		return nil, err
	}

	doc, err := s.documents.loadDocument(ctx, session.DocumentID())
	if err != nil {
		return nil, err
	}

	dto := &domain.SignatureSessionPublicDTO{
		DocumentType:   doc.Type,
		DocumentNumber: doc.Number,
		DocumentTitle:  doc.Title,
		TotalTTC:       doc.TotalTTC,
		ExpiresAt:      session.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if doc.Client != nil {
		dto.ClientName = doc.Client.Name
	}
	dto.Lines = make([]domain.DocumentLineDTO, 0, len(doc.Lines))
	for i := range doc.Lines {
		dto.Lines = append(dto.Lines, mapper.ToDocumentLineDTO(&doc.Lines[i]))
	}
	return dto, nil
}

// SignSession performs the pending -> signed transition. Expiry is
// re-checked at the moment of signing: a session that lapsed between
// page-load and submit is rejected. A signed session rejects any further
// attempt. On failure the session stays pending so the signer can retry.
func (s *SignatureService) SignSession(ctx context.Context, token string, req *domain.SignSessionRequest) (*domain.SignatureSessionDTO, error) {
	now := time.Now()

	session, err := s.getUsableSession(ctx, token, now)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.SignerName) == "" {
		return nil, ErrSignerNameRequired
	}
	if strings.TrimSpace(req.Signature) == "" {
		return nil, ErrSignatureRequired
	}

	doc, err := s.documents.loadDocument(ctx, session.DocumentID())
	if err != nil {
		return nil, err
	}
	if !doc.CanSign() {
		return nil, fmt.Errorf("%w: document is %s", ErrInvalidTransition, doc.Status)
	}

	artifactPath, err := s.storeArtifact(ctx, session, req.Signature)
	if err != nil {
		return nil, fmt.Errorf("failed to store signature artifact: %w", err)
	}

	session.Status = domain.SessionStatusSigned
	session.SignerName = strings.TrimSpace(req.SignerName)
	if req.SignerEmail != "" {
		session.SignerEmail = req.SignerEmail
	}
	session.ArtifactPath = artifactPath
	session.SignedAt = &now

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update signature session: %w", err)
	}

	doc.Status = domain.DocumentStatusSigned
	doc.SignedAt = &now
	if err := s.documents.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to transition document to signed: %w", err)
	}

	s.logger.Info("document signed",
		zap.String("documentID", doc.ID.String()),
		zap.String("sessionID", session.ID.String()),
		zap.String("signer", session.SignerName))

	s.documents.logActivity(ctx, doc, "Document signé",
		fmt.Sprintf("Le document '%s' a été signé par %s", doc.Title, session.SignerName))

	dto := mapper.ToSignatureSessionDTO(session)
	return &dto, nil
}

// ListByDocument returns the signature sessions issued for a document.
func (s *SignatureService) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.SignatureSessionDTO, error) {
	doc, err := s.documents.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessionRepo.ListByDocument(ctx, doc.Type, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signature sessions: %w", err)
	}

	dtos := make([]domain.SignatureSessionDTO, 0, len(sessions))
	for i := range sessions {
		dtos = append(dtos, mapper.ToSignatureSessionDTO(&sessions[i]))
	}
	return dtos, nil
}

// SweepExpired removes pending sessions whose expiry passed before the
// grace period. Signed sessions are audit records and are kept.
func (s *SignatureService) SweepExpired(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().Add(-grace)
	removed, err := s.sessionRepo.DeleteExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Info("swept expired signature sessions", zap.Int64("removed", removed))
	}
	return removed, nil
}

// getUsableSession resolves a token and enforces the usability rules:
// unknown tokens are not found, signed sessions are single-use, expired
// sessions report expired regardless of stored status.
func (s *SignatureService) getUsableSession(ctx context.Context, token string, now time.Time) (*domain.SignatureSession, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get signature session: %w", err)
	}

	if session.Status == domain.SessionStatusSigned {
		return nil, ErrSessionAlreadySigned
	}
	if session.IsExpired(now) {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// storeArtifact persists the signature image and returns its storage path.
func (s *SignatureService) storeArtifact(ctx context.Context, session *domain.SignatureSession, signature string) (string, error) {
	if s.storage == nil {
		// No artifact store configured: keep a marker so the signed
		// session still records that an artifact was provided.
		return fmt.Sprintf("inline:%s", session.ID), nil
	}

	data, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		// Raw (non-base64) payloads are stored as-is.
		data = []byte(signature)
	}
	filename := fmt.Sprintf("signature-%s.png", session.ID)
	path, _, err := s.storage.Upload(ctx, filename, "image/png", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return path, nil
}

// newSessionToken returns an unguessable, URL-safe token.
func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
