package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chantierflow/commerce-api/internal/domain"
)

type PriceLibraryRepository struct {
	db *gorm.DB
}

func NewPriceLibraryRepository(db *gorm.DB) *PriceLibraryRepository {
	return &PriceLibraryRepository{db: db}
}

// Lookup finds the library entry for a normalized label. Returns nil
// without an error when no entry exists.
func (r *PriceLibraryRepository) Lookup(ctx context.Context, companyID uuid.UUID, normalizedLabel string) (*domain.PriceLibraryEntry, error) {
	var entry domain.PriceLibraryEntry
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND normalized_label = ?", companyID, normalizedLabel).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *PriceLibraryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PriceLibraryEntry, error) {
	var entry domain.PriceLibraryEntry
	query := r.db.WithContext(ctx).Where("id = ?", id)
	query = ApplyCompanyFilter(ctx, query)
	if err := query.First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert merges the entry by (company, normalized label), last write wins,
// and increments times_used in the same statement so concurrent saves
// cannot lose increments.
func (r *PriceLibraryRepository) Upsert(ctx context.Context, entry *domain.PriceLibraryEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}, {Name: "normalized_label"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"label":                 entry.Label,
				"default_unit":          entry.DefaultUnit,
				"default_category":      entry.DefaultCategory,
				"default_unit_price_ht": entry.DefaultUnitPriceHT,
				"times_used":            gorm.Expr("price_library_entries.times_used + ?", 1),
				"updated_at":            gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(entry).Error
}

func (r *PriceLibraryRepository) List(ctx context.Context, companyID uuid.UUID, search string, page, pageSize int) ([]domain.PriceLibraryEntry, int64, error) {
	var entries []domain.PriceLibraryEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.PriceLibraryEntry{}).
		Where("company_id = ?", companyID)
	if search != "" {
		query = query.Where("normalized_label LIKE ?", "%"+search+"%")
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
	err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("times_used DESC, normalized_label ASC").
		Find(&entries).Error

	return entries, total, err
}
