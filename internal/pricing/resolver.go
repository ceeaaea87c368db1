package pricing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/domain"
)

// LibraryLookup answers normalized-label lookups against the company
// price library. A nil entry with a nil error means "no match".
type LibraryLookup interface {
	Lookup(ctx context.Context, companyID uuid.UUID, normalizedLabel string) (*domain.PriceLibraryEntry, error)
}

// Estimator produces a price suggestion for a labelled line. A nil
// price with a nil error means the estimator has no opinion.
type Estimator interface {
	Estimate(ctx context.Context, req EstimateRequest) (*float64, error)
}

// EstimateRequest carries the inputs shared by the market and AI
// estimators.
type EstimateRequest struct {
	Label    string
	Category domain.LineCategory
	Unit     string
}

// ResolveInput is a single price resolution request.
type ResolveInput struct {
	CompanyID   uuid.UUID
	Label       string
	Category    domain.LineCategory
	Unit        string
	ManualPrice *float64
}

// Resolved is the outcome of a resolution. Price is nil when no source
// produced a usable value; Source is then "manual" so callers can store
// the line as unpriced without a special case.
type Resolved struct {
	Price  *float64
	Source domain.PriceSource
}

// Resolver walks the price sources in priority order: manual, library,
// market estimate, AI estimate. Lookup failures are logged and treated
// as "no result"; they never abort the resolution.
type Resolver struct {
	library LibraryLookup
	market  Estimator
	ai      Estimator
	logger  *zap.Logger
}

func NewResolver(library LibraryLookup, market, ai Estimator, logger *zap.Logger) *Resolver {
	return &Resolver{
		library: library,
		market:  market,
		ai:      ai,
		logger:  logger,
	}
}

// NormalizeLabel folds a line label to its library key: trimmed,
// lower-cased, inner whitespace collapsed to single spaces.
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

// Resolve is read-only: it never writes to the library. Library
// learning happens when the caller saves the line.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) Resolved {
	if in.ManualPrice != nil && *in.ManualPrice != 0 {
		return Resolved{Price: in.ManualPrice, Source: domain.PriceSourceManual}
	}

	normalized := NormalizeLabel(in.Label)
	if normalized != "" && r.library != nil {
		entry, err := r.library.Lookup(ctx, in.CompanyID, normalized)
		if err != nil {
			r.logger.Warn("price library lookup failed",
				zap.String("label", normalized),
				zap.Error(err))
		} else if entry != nil && entry.DefaultUnitPriceHT != nil && *entry.DefaultUnitPriceHT != 0 {
			price := *entry.DefaultUnitPriceHT
			return Resolved{Price: &price, Source: domain.PriceSourceLibrary}
		}
	}

	req := EstimateRequest{Label: in.Label, Category: in.Category, Unit: in.Unit}

	if price := r.estimate(ctx, r.market, "market", req); price != nil {
		return Resolved{Price: price, Source: domain.PriceSourceMarketEstimate}
	}
	if price := r.estimate(ctx, r.ai, "ai", req); price != nil {
		return Resolved{Price: price, Source: domain.PriceSourceAIEstimate}
	}

	return Resolved{Price: nil, Source: domain.PriceSourceManual}
}

func (r *Resolver) estimate(ctx context.Context, e Estimator, name string, req EstimateRequest) *float64 {
	if e == nil {
		return nil
	}
	price, err := e.Estimate(ctx, req)
	if err != nil {
		r.logger.Warn("price estimator failed",
			zap.String("estimator", name),
			zap.String("label", req.Label),
			zap.Error(err))
		return nil
	}
	if price == nil || *price <= 0 {
		return nil
	}
	return price
}
