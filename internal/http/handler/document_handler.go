package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chantierflow/commerce-api/internal/auth"
	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/logger"
	"github.com/chantierflow/commerce-api/internal/repository"
	"github.com/chantierflow/commerce-api/internal/service"
)

type DocumentHandler struct {
	documentService *service.DocumentService
	logger          *zap.Logger
}

func NewDocumentHandler(documentService *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// @Summary List documents
// @Tags Documents
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param type query string false "Filter by type" Enums(quote, invoice)
// @Param status query string false "Filter by status" Enums(draft, sent, signed, paid, cancelled)
// @Param clientId query string false "Filter by client ID"
// @Param search query string false "Search in number and title"
// @Param sort query string false "Sort field" Enums(createdAt, updatedAt, number, dueDate, totalTtc, status)
// @Param order query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents [get]
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filter := repository.DocumentFilter{
		Search: r.URL.Query().Get("search"),
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Type = domain.DocumentType(t)
	}
	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = domain.DocumentStatus(s)
	}
	if cid := r.URL.Query().Get("clientId"); cid != "" {
		if id, err := uuid.Parse(cid); err == nil {
			filter.ClientID = &id
		}
	}
	if sortField := r.URL.Query().Get("sort"); sortField != "" {
		filter.Sort = repository.SortConfig{
			Field: sortField,
			Order: repository.ParseSortOrder(r.URL.Query().Get("order")),
		}
	}

	docs, total, err := h.documentService.List(r.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.Error("failed to list documents", zap.Error(err))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated(docs, total, page, pageSize))
}

// @Summary Create document
// @Tags Documents
// @Accept json
// @Produce json
// @Param request body domain.CreateDocumentRequest true "Document to create"
// @Success 201 {object} domain.DocumentDTO
// @Failure 402 {object} domain.ErrorResponse "Subscription required"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents [post]
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	doc, err := h.documentService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create document", zap.Error(err))
		handleServiceError(w, err)
		return
	}

	if userCtx, ok := auth.FromContext(r.Context()); ok {
		logger.WithUser(h.logger, userCtx.UserID, userCtx.DisplayName).Info("document created",
			zap.String("document_id", doc.ID.String()),
			zap.String("type", string(doc.Type)))
	}

	respondJSON(w, http.StatusCreated, doc)
}

// @Summary Get document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.DocumentDTO
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	doc, err := h.documentService.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// @Summary Update document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.UpdateDocumentRequest true "Fields to update"
// @Success 200 {object} domain.DocumentDTO
// @Failure 409 {object} domain.ErrorResponse "Document is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id} [put]
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	doc, err := h.documentService.Update(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update document", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// @Summary Add line to document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.CreateLineRequest true "Line to add"
// @Success 201 {object} domain.DocumentLineDTO
// @Failure 402 {object} domain.ErrorResponse "Subscription required"
// @Failure 409 {object} domain.ErrorResponse "Document is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/lines [post]
func (h *DocumentHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.CreateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	line, err := h.documentService.AddLine(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to add line", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, line)
}

// @Summary Add line from price library
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body domain.AddLineFromLibraryRequest true "Library entry reference"
// @Success 201 {object} domain.DocumentLineDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/lines/from-library [post]
func (h *DocumentHandler) AddLineFromLibrary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	var req domain.AddLineFromLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	line, err := h.documentService.AddLineFromLibrary(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to add line from library", zap.Error(err), zap.String("document_id", id.String()))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, line)
}

// @Summary Update document line
// @Tags Documents
// @Accept json
// @Produce json
// @Param lineId path string true "Line ID"
// @Param request body domain.UpdateLineRequest true "Line fields"
// @Success 200 {object} domain.DocumentLineDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /lines/{lineId} [put]
func (h *DocumentHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuid.Parse(chi.URLParam(r, "lineId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid line ID")
		return
	}

	var req domain.UpdateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	line, err := h.documentService.UpdateLine(r.Context(), lineID, &req)
	if err != nil {
		h.logger.Error("failed to update line", zap.Error(err), zap.String("line_id", lineID.String()))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, line)
}

// @Summary Remove document line
// @Tags Documents
// @Param lineId path string true "Line ID"
// @Success 204 "Line removed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /lines/{lineId} [delete]
func (h *DocumentHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuid.Parse(chi.URLParam(r, "lineId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid line ID")
		return
	}

	if err := h.documentService.RemoveLine(r.Context(), lineID); err != nil {
		h.logger.Error("failed to remove line", zap.Error(err), zap.String("line_id", lineID.String()))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary Resolve price for a line label
// @Description Read-only price resolution through manual, library, market and AI sources.
// @Tags Pricing
// @Accept json
// @Produce json
// @Param request body domain.ResolvePriceRequest true "Label to price"
// @Success 200 {object} domain.ResolvedPriceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pricing/resolve [post]
func (h *DocumentHandler) ResolvePrice(w http.ResponseWriter, r *http.Request) {
	var req domain.ResolvePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	resolved, err := h.documentService.ResolvePrice(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resolved)
}

// @Summary List price library entries
// @Tags Pricing
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search in labels"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /pricing/library [get]
func (h *DocumentHandler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	entries, total, err := h.documentService.ListLibrary(r.Context(), r.URL.Query().Get("search"), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list price library", zap.Error(err))
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated(entries, total, page, pageSize))
}

// @Summary List document activity
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {array} domain.ActivityDTO
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/activity [get]
func (h *DocumentHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	activities, err := h.documentService.ListActivity(r.Context(), id, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, activities)
}

// @Summary List document payments
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {array} domain.PaymentDTO
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id}/payments [get]
func (h *DocumentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	payments, err := h.documentService.ListPayments(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payments)
}

// @Summary Delete draft document
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204 "Deleted"
// @Failure 404 {object} domain.ErrorResponse "Document not found"
// @Failure 409 {object} domain.ErrorResponse "Document is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	if err := h.documentService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Document counts per status
// @Tags Documents
// @Produce json
// @Success 200 {object} domain.DocumentStatsDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /documents/stats [get]
func (h *DocumentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.documentService.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
