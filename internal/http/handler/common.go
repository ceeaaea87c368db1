package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/service"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondValidationError sends a 400 with per-field messages
func respondValidationError(w http.ResponseWriter, err error) {
	var messages []string
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			messages = append(messages, formatValidationError(fe))
		}
	}
	respondWithError(w, http.StatusBadRequest, strings.Join(messages, "; "))
}

func formatValidationError(fe validator.FieldError) string {
	field := toJSONFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// toJSONFieldName converts a Go struct field name to its JSON equivalent (camelCase)
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// paginated wraps a page of results in the standard envelope
func paginated(data interface{}, total int64, page, pageSize int) domain.PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// parsePagination reads page/pageSize query parameters with defaults
func parsePagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

// handleServiceError maps service sentinels to HTTP status codes.
// Unknown errors become 500 without leaking internals.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, service.ErrSubscriptionRequired):
		respondWithError(w, http.StatusPaymentRequired, "An active subscription is required to modify documents")
	case errors.Is(err, service.ErrDocumentNotFound):
		respondWithError(w, http.StatusNotFound, "Document not found")
	case errors.Is(err, service.ErrLineNotFound):
		respondWithError(w, http.StatusNotFound, "Document line not found")
	case errors.Is(err, service.ErrClientNotFound):
		respondWithError(w, http.StatusNotFound, "Client not found")
	case errors.Is(err, service.ErrLibraryEntryNotFound):
		respondWithError(w, http.StatusNotFound, "Price library entry not found")
	case errors.Is(err, service.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, "Signature session not found")
	case errors.Is(err, service.ErrSessionExpired):
		respondWithError(w, http.StatusGone, "This signing link has expired")
	case errors.Is(err, service.ErrSessionAlreadySigned):
		respondWithError(w, http.StatusConflict, "This document has already been signed")
	case errors.Is(err, service.ErrDocumentLocked):
		respondWithError(w, http.StatusConflict, "Signed documents cannot be modified")
	case errors.Is(err, service.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, "The document status does not allow this operation")
	case errors.Is(err, service.ErrDocumentAlreadyPaid):
		respondWithError(w, http.StatusConflict, "Document is already paid")
	case errors.Is(err, service.ErrDocumentNotPayable):
		respondWithError(w, http.StatusConflict, "Document is not payable in its current state")
	case errors.Is(err, service.ErrBlankLabel):
		respondWithError(w, http.StatusBadRequest, "Line label must not be blank")
	case errors.Is(err, service.ErrSignerNameRequired):
		respondWithError(w, http.StatusBadRequest, "Signer name is required")
	case errors.Is(err, service.ErrSignatureRequired):
		respondWithError(w, http.StatusBadRequest, "Signature is required")
	case errors.Is(err, service.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, "Invalid input")
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
