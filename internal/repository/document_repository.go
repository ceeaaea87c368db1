package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chantierflow/commerce-api/internal/domain"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	query := r.db.WithContext(ctx).Preload("Client").Where("id = ?", id)
	query = ApplyCompanyFilter(ctx, query)
	if err := query.First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Document{}, "id = ?", id).Error
}

// UpdateTotals writes only the denormalized totals snapshot.
func (r *DocumentRepository) UpdateTotals(ctx context.Context, id uuid.UUID, totals domain.DocumentTotalsDTO) error {
	return r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subtotal_ht": totals.SubtotalHT,
			"total_tva":   totals.TotalTVA,
			"total_ttc":   totals.TotalTTC,
		}).Error
}

// DocumentFilter narrows List queries.
type DocumentFilter struct {
	CompanyID uuid.UUID
	ClientID  *uuid.UUID
	Type      domain.DocumentType
	Status    domain.DocumentStatus
	Search    string
	Sort      SortConfig
}

var documentSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"number":    "number",
	"dueDate":   "due_date",
	"totalTtc":  "total_ttc",
	"status":    "status",
}

func (r *DocumentRepository) List(ctx context.Context, filter DocumentFilter, page, pageSize int) ([]domain.Document, int64, error) {
	var docs []domain.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("company_id = ?", filter.CompanyID)

	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("number LIKE ? OR title LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	sort := filter.Sort
	if sort.Field == "" {
		sort = DefaultSortConfig()
	}
	err := query.Preload("Client").
		Offset(offset).Limit(pageSize).
		Order(BuildOrderClause(sort, documentSortFields, "created_at")).
		Find(&docs).Error

	return docs, total, err
}

func (r *DocumentRepository) CountByStatus(ctx context.Context, companyID uuid.UUID, status domain.DocumentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("company_id = ? AND status = ?", companyID, status).
		Count(&count).Error
	return count, err
}
