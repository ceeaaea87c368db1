package pricing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/pricing"
)

type stubLibrary struct {
	entry *domain.PriceLibraryEntry
	err   error
	calls int
}

func (s *stubLibrary) Lookup(_ context.Context, _ uuid.UUID, _ string) (*domain.PriceLibraryEntry, error) {
	s.calls++
	return s.entry, s.err
}

type stubEstimator struct {
	price *float64
	err   error
	calls int
}

func (s *stubEstimator) Estimate(_ context.Context, _ pricing.EstimateRequest) (*float64, error) {
	s.calls++
	return s.price, s.err
}

func newTestResolver(lib *stubLibrary, market, ai *stubEstimator) *pricing.Resolver {
	return pricing.NewResolver(lib, market, ai, zap.NewNop())
}

func TestResolverManualPriceShortCircuits(t *testing.T) {
	lib := &stubLibrary{entry: &domain.PriceLibraryEntry{DefaultUnitPriceHT: floatPtr(100)}}
	market := &stubEstimator{price: floatPtr(80)}
	ai := &stubEstimator{price: floatPtr(60)}
	r := newTestResolver(lib, market, ai)

	got := r.Resolve(context.Background(), pricing.ResolveInput{
		Label:       "Pose carrelage",
		ManualPrice: floatPtr(50),
	})

	assert.Equal(t, domain.PriceSourceManual, got.Source)
	assert.Equal(t, 50.0, *got.Price)
	assert.Zero(t, lib.calls)
	assert.Zero(t, market.calls)
	assert.Zero(t, ai.calls)
}

func TestResolverLibraryBeatsMarket(t *testing.T) {
	lib := &stubLibrary{entry: &domain.PriceLibraryEntry{DefaultUnitPriceHT: floatPtr(100)}}
	market := &stubEstimator{price: floatPtr(80)}
	ai := &stubEstimator{price: floatPtr(60)}
	r := newTestResolver(lib, market, ai)

	got := r.Resolve(context.Background(), pricing.ResolveInput{Label: "Pose carrelage"})

	assert.Equal(t, domain.PriceSourceLibrary, got.Source)
	assert.Equal(t, 100.0, *got.Price)
	assert.Equal(t, 1, lib.calls)
	assert.Zero(t, market.calls)
	assert.Zero(t, ai.calls)
}

func TestResolverFallsThroughToMarket(t *testing.T) {
	lib := &stubLibrary{}
	market := &stubEstimator{price: floatPtr(80)}
	ai := &stubEstimator{price: floatPtr(60)}
	r := newTestResolver(lib, market, ai)

	got := r.Resolve(context.Background(), pricing.ResolveInput{
		Label:    "Cloison placo",
		Category: domain.LineCategoryMaterial,
		Unit:     "m2",
	})

	assert.Equal(t, domain.PriceSourceMarketEstimate, got.Source)
	assert.Equal(t, 80.0, *got.Price)
	assert.Zero(t, ai.calls)
}

func TestResolverFallsThroughToAI(t *testing.T) {
	lib := &stubLibrary{err: errors.New("connection refused")}
	market := &stubEstimator{err: errors.New("timeout")}
	ai := &stubEstimator{price: floatPtr(42.5)}
	r := newTestResolver(lib, market, ai)

	got := r.Resolve(context.Background(), pricing.ResolveInput{Label: "Enduit de façade"})

	assert.Equal(t, domain.PriceSourceAIEstimate, got.Source)
	assert.Equal(t, 42.5, *got.Price)
}

func TestResolverTotalFallback(t *testing.T) {
	lib := &stubLibrary{err: errors.New("down")}
	market := &stubEstimator{err: errors.New("down")}
	ai := &stubEstimator{}
	r := newTestResolver(lib, market, ai)

	got := r.Resolve(context.Background(), pricing.ResolveInput{Label: "Travaux divers"})

	assert.Nil(t, got.Price)
	assert.Equal(t, domain.PriceSourceManual, got.Source)
}

func TestResolverZeroManualPriceIsIgnored(t *testing.T) {
	lib := &stubLibrary{entry: &domain.PriceLibraryEntry{DefaultUnitPriceHT: floatPtr(35)}}
	r := newTestResolver(lib, &stubEstimator{}, &stubEstimator{})

	got := r.Resolve(context.Background(), pricing.ResolveInput{
		Label:       "Pose carrelage",
		ManualPrice: floatPtr(0),
	})

	assert.Equal(t, domain.PriceSourceLibrary, got.Source)
	assert.Equal(t, 35.0, *got.Price)
}

func TestResolverIgnoresNonPositiveEstimates(t *testing.T) {
	lib := &stubLibrary{}
	market := &stubEstimator{price: floatPtr(-10)}
	ai := &stubEstimator{price: floatPtr(25)}
	r := newTestResolver(lib, market, ai)

	got := r.Resolve(context.Background(), pricing.ResolveInput{Label: "Peinture"})

	assert.Equal(t, domain.PriceSourceAIEstimate, got.Source)
	assert.Equal(t, 25.0, *got.Price)
}

func TestResolverBlankLabelSkipsLibrary(t *testing.T) {
	lib := &stubLibrary{entry: &domain.PriceLibraryEntry{DefaultUnitPriceHT: floatPtr(10)}}
	r := newTestResolver(lib, &stubEstimator{}, &stubEstimator{})

	got := r.Resolve(context.Background(), pricing.ResolveInput{Label: "   "})

	assert.Zero(t, lib.calls)
	assert.Nil(t, got.Price)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "pose carrelage", pricing.NormalizeLabel("  Pose   Carrelage "))
	assert.Equal(t, "enduit", pricing.NormalizeLabel("ENDUIT"))
	assert.Equal(t, "", pricing.NormalizeLabel("   "))
}
