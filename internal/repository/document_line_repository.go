package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chantierflow/commerce-api/internal/domain"
)

type DocumentLineRepository struct {
	db *gorm.DB
}

func NewDocumentLineRepository(db *gorm.DB) *DocumentLineRepository {
	return &DocumentLineRepository{db: db}
}

func (r *DocumentLineRepository) Create(ctx context.Context, line *domain.DocumentLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *DocumentLineRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DocumentLine, error) {
	var line domain.DocumentLine
	if err := r.db.WithContext(ctx).First(&line, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *DocumentLineRepository) Update(ctx context.Context, line *domain.DocumentLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *DocumentLineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.DocumentLine{}, "id = ?", id).Error
}

// ListByDocument returns the document's lines in display order.
func (r *DocumentLineRepository) ListByDocument(ctx context.Context, docType domain.DocumentType, documentID uuid.UUID) ([]domain.DocumentLine, error) {
	var lines []domain.DocumentLine
	query := r.db.WithContext(ctx)
	if docType == domain.DocumentTypeQuote {
		query = query.Where("quote_id = ?", documentID)
	} else {
		query = query.Where("invoice_id = ?", documentID)
	}
	err := query.Order("position ASC, created_at ASC").Find(&lines).Error
	return lines, err
}

func (r *DocumentLineRepository) DeleteByDocument(ctx context.Context, docType domain.DocumentType, documentID uuid.UUID) error {
	query := r.db.WithContext(ctx)
	if docType == domain.DocumentTypeQuote {
		query = query.Where("quote_id = ?", documentID)
	} else {
		query = query.Where("invoice_id = ?", documentID)
	}
	return query.Delete(&domain.DocumentLine{}).Error
}

// NextPosition returns the position to assign to a newly appended line.
func (r *DocumentLineRepository) NextPosition(ctx context.Context, docType domain.DocumentType, documentID uuid.UUID) (int, error) {
	var max *int
	query := r.db.WithContext(ctx).Model(&domain.DocumentLine{}).Select("MAX(position)")
	if docType == domain.DocumentTypeQuote {
		query = query.Where("quote_id = ?", documentID)
	} else {
		query = query.Where("invoice_id = ?", documentID)
	}
	if err := query.Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}
