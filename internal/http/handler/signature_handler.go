package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/service"
)

type SignatureHandler struct {
	signatureService *service.SignatureService
	logger           *zap.Logger
}

func NewSignatureHandler(signatureService *service.SignatureService, logger *zap.Logger) *SignatureHandler {
	return &SignatureHandler{
		signatureService: signatureService,
		logger:           logger,
	}
}

// @Summary Create signature session
// @Description Issues a time-limited signing link for a draft or sent document.
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.CreateSessionRequest true "Session options"
// @Success 201 {object} domain.SignatureSessionDTO
// @Failure 402 {object} domain.ErrorResponse "Subscription required"
// @Failure 409 {object} domain.ErrorResponse "Document cannot be signed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/signature-sessions [post]
func (h *SignatureHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	session, err := h.signatureService.CreateSession(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to create signature session", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

// @Summary List signature sessions for a document
// @Tags Signatures
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {array} domain.SignatureSessionDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/signature-sessions [get]
func (h *SignatureHandler) ListByDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	sessions, err := h.signatureService.ListByDocument(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sessions)
}

// @Summary View document for signing
// @Description Public, token-scoped view of the document awaiting signature.
// @Tags Signing
// @Produce json
// @Param token path string true "Session token"
// @Success 200 {object} domain.SignatureSessionPublicDTO
// @Failure 404 {object} domain.ErrorResponse "Unknown token"
// @Failure 410 {object} domain.ErrorResponse "Link expired"
// @Router /sign/{token} [get]
func (h *SignatureHandler) ValidateSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	view, err := h.signatureService.ValidateSession(r.Context(), token)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// @Summary Sign document
// @Description Public signing endpoint. Single use; expiry is re-checked at submit.
// @Tags Signing
// @Accept json
// @Produce json
// @Param token path string true "Session token"
// @Param request body domain.SignSessionRequest true "Signer identity and signature"
// @Success 200 {object} domain.SignatureSessionDTO
// @Failure 409 {object} domain.ErrorResponse "Already signed"
// @Failure 410 {object} domain.ErrorResponse "Link expired"
// @Router /sign/{token} [post]
func (h *SignatureHandler) SignSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req domain.SignSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	session, err := h.signatureService.SignSession(r.Context(), token, &req)
	if err != nil {
		h.logger.Warn("signing attempt failed", zap.Error(err))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}
