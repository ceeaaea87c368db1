package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/auth"
	"github.com/chantierflow/commerce-api/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	logger              *zap.Logger
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// @Summary Get subscription for the authenticated company
// @Tags Subscription
// @Produce json
// @Success 200 {object} domain.SubscriptionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /subscription [get]
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	sub, err := h.subscriptionService.Get(r.Context(), userCtx.CompanyID)
	if err != nil {
		h.logger.Error("failed to get subscription", zap.Error(err))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sub)
}
