// Package aiprice calls the AI pricing service, the last-resort source in
// the price resolution chain.
package aiprice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/config"
	"github.com/chantierflow/commerce-api/internal/pricing"
)

const defaultTimeout = 10 * time.Second

// Client calls the AI price estimation service over HTTP. It implements
// pricing.Estimator; a nil client is a valid "disabled" estimator.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

var _ pricing.Estimator = (*Client)(nil)

// NewClient creates an AI price client. Returns nil when the estimator is
// disabled or unconfigured; the resolver treats a nil estimator as absent.
func NewClient(cfg *config.AIEstimatorConfig, logger *zap.Logger) *Client {
	if cfg == nil || !cfg.Enabled || cfg.BaseURL == "" {
		logger.Info("AI price estimator disabled")
		return nil
	}

	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger.Info("AI price estimator enabled",
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("timeout", timeout))

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type estimateRequest struct {
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

type estimateResponse struct {
	UnitPriceHT *float64 `json:"unit_price_ht"`
	Confidence  float64  `json:"confidence"`
}

// Estimate asks the AI service for a unit price suggestion. A service
// error or an empty answer yields a nil price; the resolver then stores
// the line unpriced rather than failing the save.
func (c *Client) Estimate(ctx context.Context, req pricing.EstimateRequest) (*float64, error) {
	if c == nil {
		return nil, nil
	}

	body, err := json.Marshal(estimateRequest{
		Label:    req.Label,
		Category: string(req.Category),
		Unit:     req.Unit,
		Country:  "FR",
		Currency: "EUR",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode estimate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/estimates", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build estimate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("estimate call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The service has no model for this label.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("estimate service returned %d", resp.StatusCode)
	}

	var out estimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode estimate response: %w", err)
	}

	if out.UnitPriceHT == nil || *out.UnitPriceHT <= 0 {
		return nil, nil
	}

	c.logger.Debug("AI price estimate",
		zap.String("label", req.Label),
		zap.Float64("price", *out.UnitPriceHT),
		zap.Float64("confidence", out.Confidence),
		zap.Duration("duration", time.Since(start)))

	return out.UnitPriceHT, nil
}
