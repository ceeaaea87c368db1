package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/service"
)

const (
	signatureHeader = "X-Webhook-Signature"
	maxWebhookBody  = 1 << 20 // 1 MiB
)

// WebhookHandler receives billing provider events: payment confirmations
// and subscription state changes. Requests are authenticated by an HMAC
// signature over the raw body, not by user credentials.
type WebhookHandler struct {
	documentService     *service.DocumentService
	subscriptionService *service.SubscriptionService
	secret              string
	logger              *zap.Logger
}

func NewWebhookHandler(
	documentService *service.DocumentService,
	subscriptionService *service.SubscriptionService,
	secret string,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		documentService:     documentService,
		subscriptionService: subscriptionService,
		secret:              secret,
		logger:              logger,
	}
}

// verifySignature checks the sha256 HMAC over the raw body.
func verifySignature(secret string, body []byte, header string) bool {
	sig := strings.TrimSpace(header)
	if sig == "" || secret == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(sig), "sha256=") {
		sig = sig[len("sha256="):]
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// @Summary Billing provider webhook
// @Description Handles payment.succeeded and subscription.updated events.
// @Tags Webhooks
// @Accept json
// @Param X-Webhook-Signature header string true "HMAC-SHA256 of the body"
// @Success 200 "Event processed"
// @Failure 401 {object} domain.ErrorResponse "Bad signature"
// @Router /webhooks/billing [post]
func (h *WebhookHandler) HandleBillingEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if !verifySignature(h.secret, body, r.Header.Get(signatureHeader)) {
		h.logger.Warn("webhook signature verification failed",
			zap.String("remote_addr", r.RemoteAddr))
		respondWithError(w, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var event domain.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	h.logger.Info("billing webhook received",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))

	switch event.Type {
	case "payment.succeeded":
		h.handlePaymentSucceeded(w, r, &event)
	case "subscription.updated", "subscription.created", "subscription.deleted":
		h.handleSubscriptionUpdated(w, r, &event)
	default:
		// Unknown event types are acknowledged so the provider stops
		// retrying them.
		h.logger.Info("ignoring unhandled webhook event type",
			zap.String("event_type", event.Type))
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (h *WebhookHandler) handlePaymentSucceeded(w http.ResponseWriter, r *http.Request, event *domain.WebhookEvent) {
	payment := event.Data.Payment
	if payment == nil || payment.Reference == "" {
		respondWithError(w, http.StatusBadRequest, "Missing payment data")
		return
	}

	req := &domain.MarkPaidRequest{
		Reference: payment.Reference,
	}
	if payment.Amount > 0 {
		amount := payment.Amount
		req.Amount = &amount
	}

	if _, err := h.documentService.MarkPaid(r.Context(), payment.DocumentID, req); err != nil {
		h.logger.Error("failed to apply payment webhook",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.String("reference", payment.Reference))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *WebhookHandler) handleSubscriptionUpdated(w http.ResponseWriter, r *http.Request, event *domain.WebhookEvent) {
	sub := event.Data.Subscription
	if sub == nil {
		respondWithError(w, http.StatusBadRequest, "Missing subscription data")
		return
	}

	if err := h.subscriptionService.ApplyProviderUpdate(r.Context(), sub); err != nil {
		h.logger.Error("failed to apply subscription webhook",
			zap.Error(err),
			zap.String("event_id", event.ID))
		respondWithError(w, http.StatusInternalServerError, "Failed to apply subscription update")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
