package handler

// Status transition endpoints for documents: send, cancel, payability and
// manual payment confirmation. The signed transition has no endpoint here;
// it only happens through the public signing flow.

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/logger"
)

// @Summary Send document to client
// @Description Transitions a draft document to sent, assigning its number.
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.DocumentDTO
// @Failure 409 {object} domain.ErrorResponse "Document is not a draft"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/send [post]
func (h *DocumentHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.documentService.Send(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to send document", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err)
		return
	}

	logger.WithDocument(h.logger, id.String(), string(doc.Type)).Info("document sent",
		zap.String("number", doc.Number))

	respondJSON(w, http.StatusOK, doc)
}

// @Summary Cancel document
// @Description Transitions a document to cancelled from any non-terminal state.
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.DocumentDTO
// @Failure 409 {object} domain.ErrorResponse "Document is in a terminal state"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/cancel [post]
func (h *DocumentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.documentService.Cancel(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to cancel document", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// @Summary Check if document is payable
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} map[string]bool
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/payable [get]
func (h *DocumentHandler) IsPayable(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	payable, err := h.documentService.IsPayable(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"payable": payable})
}

// @Summary Mark document as paid
// @Description Records a confirmed payment. Idempotent on the payment reference.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.MarkPaidRequest true "Payment confirmation"
// @Success 200 {object} domain.DocumentDTO
// @Failure 409 {object} domain.ErrorResponse "Document is not payable"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/mark-paid [post]
func (h *DocumentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.MarkPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	doc, err := h.documentService.MarkPaid(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to mark document paid", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}
