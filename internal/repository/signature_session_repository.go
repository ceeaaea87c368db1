package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chantierflow/commerce-api/internal/domain"
)

type SignatureSessionRepository struct {
	db *gorm.DB
}

func NewSignatureSessionRepository(db *gorm.DB) *SignatureSessionRepository {
	return &SignatureSessionRepository{db: db}
}

func (r *SignatureSessionRepository) Create(ctx context.Context, session *domain.SignatureSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *SignatureSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SignatureSession, error) {
	var session domain.SignatureSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SignatureSessionRepository) GetByToken(ctx context.Context, token string) (*domain.SignatureSession, error) {
	var session domain.SignatureSession
	if err := r.db.WithContext(ctx).First(&session, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SignatureSessionRepository) Update(ctx context.Context, session *domain.SignatureSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *SignatureSessionRepository) ListByDocument(ctx context.Context, docType domain.DocumentType, documentID uuid.UUID) ([]domain.SignatureSession, error) {
	var sessions []domain.SignatureSession
	query := r.db.WithContext(ctx)
	if docType == domain.DocumentTypeQuote {
		query = query.Where("quote_id = ?", documentID)
	} else {
		query = query.Where("invoice_id = ?", documentID)
	}
	err := query.Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}

// DeleteExpiredPending removes pending sessions whose expiry passed before
// the cutoff. Signed sessions are audit records and are never deleted.
func (r *SignatureSessionRepository) DeleteExpiredPending(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", domain.SessionStatusPending, cutoff).
		Delete(&domain.SignatureSession{})
	return result.RowsAffected, result.Error
}
