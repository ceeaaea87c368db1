package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

type ClientDTO struct {
	ID            uuid.UUID `json:"id"`
	CompanyID     uuid.UUID `json:"companyId"`
	Name          string    `json:"name"`
	SiretNumber   string    `json:"siretNumber,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	PostalCode    string    `json:"postalCode,omitempty"`
	Country       string    `json:"country"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     string    `json:"createdAt"` // ISO 8601
	UpdatedAt     string    `json:"updatedAt"` // ISO 8601
}

type DocumentDTO struct {
	ID               uuid.UUID         `json:"id"`
	CompanyID        uuid.UUID         `json:"companyId"`
	ClientID         uuid.UUID         `json:"clientId"`
	ClientName       string            `json:"clientName,omitempty"`
	Type             DocumentType      `json:"type"`
	Number           string            `json:"number,omitempty"`
	Status           DocumentStatus    `json:"status"`
	Title            string            `json:"title,omitempty"`
	TaxRate          float64           `json:"taxRate"`
	SubtotalHT       float64           `json:"subtotalHt"`
	TotalTVA         float64           `json:"totalTva"`
	TotalTTC         float64           `json:"totalTtc"`
	Overdue          bool              `json:"overdue"`
	DueDate          *string           `json:"dueDate,omitempty"`   // ISO 8601
	SentAt           *string           `json:"sentAt,omitempty"`    // ISO 8601
	SignedAt         *string           `json:"signedAt,omitempty"`  // ISO 8601
	PaidAt           *string           `json:"paidAt,omitempty"`    // ISO 8601
	CancelledAt      *string           `json:"cancelledAt,omitempty"` // ISO 8601
	PaymentReference string            `json:"paymentReference,omitempty"`
	Lines            []DocumentLineDTO `json:"lines,omitempty"`
	CreatedAt        string            `json:"createdAt"` // ISO 8601
	UpdatedAt        string            `json:"updatedAt"` // ISO 8601
}

type DocumentLineDTO struct {
	ID          uuid.UUID    `json:"id"`
	QuoteID     *uuid.UUID   `json:"quoteId,omitempty"`
	InvoiceID   *uuid.UUID   `json:"invoiceId,omitempty"`
	Label       string       `json:"label"`
	Description string       `json:"description,omitempty"`
	Category    LineCategory `json:"category"`
	Unit        string       `json:"unit,omitempty"`
	Quantity    *float64     `json:"quantity,omitempty"`
	UnitPriceHT *float64     `json:"unitPriceHt,omitempty"`
	TaxRate     float64      `json:"taxRate"`
	PriceSource PriceSource  `json:"priceSource"`
	Position    int          `json:"position"`
	TotalHT     float64      `json:"totalHt"`
	TotalTVA    float64      `json:"totalTva"`
	TotalTTC    float64      `json:"totalTtc"`
	CreatedAt   string       `json:"createdAt"` // ISO 8601
	UpdatedAt   string       `json:"updatedAt"` // ISO 8601
}

type DocumentTotalsDTO struct {
	SubtotalHT float64 `json:"subtotalHt"`
	TotalTVA   float64 `json:"totalTva"`
	TotalTTC   float64 `json:"totalTtc"`
}

type PriceLibraryEntryDTO struct {
	ID              uuid.UUID    `json:"id"`
	Label           string       `json:"label"`
	NormalizedLabel string       `json:"normalizedLabel"`
	Category        LineCategory `json:"category"`
	DefaultUnit     string       `json:"defaultUnit,omitempty"`
	UnitPriceHT     float64      `json:"unitPriceHt"`
	TimesUsed       int          `json:"timesUsed"`
	CreatedAt       string       `json:"createdAt"` // ISO 8601
	UpdatedAt       string       `json:"updatedAt"` // ISO 8601
}

// ResolvedPriceDTO carries the outcome of a price resolution attempt.
// Price is null when no source could produce a suggestion.
type ResolvedPriceDTO struct {
	Price  *float64    `json:"price"`
	Source PriceSource `json:"source"`
}

type SignatureSessionDTO struct {
	ID          uuid.UUID     `json:"id"`
	QuoteID     *uuid.UUID    `json:"quoteId,omitempty"`
	InvoiceID   *uuid.UUID    `json:"invoiceId,omitempty"`
	Token       string        `json:"token,omitempty"`
	Status      SessionStatus `json:"status"`
	ExpiresAt   string        `json:"expiresAt"` // ISO 8601
	SignerName  string        `json:"signerName,omitempty"`
	SignerEmail string        `json:"signerEmail,omitempty"`
	SignedAt    *string       `json:"signedAt,omitempty"` // ISO 8601
	CreatedAt   string        `json:"createdAt"`          // ISO 8601
}

// SignatureSessionPublicDTO is the token-scoped view served to signers.
// It never exposes internal identifiers beyond the document summary.
type SignatureSessionPublicDTO struct {
	DocumentType   DocumentType      `json:"documentType"`
	DocumentNumber string            `json:"documentNumber,omitempty"`
	DocumentTitle  string            `json:"documentTitle,omitempty"`
	ClientName     string            `json:"clientName,omitempty"`
	TotalTTC       float64           `json:"totalTtc"`
	Lines          []DocumentLineDTO `json:"lines,omitempty"`
	ExpiresAt      string            `json:"expiresAt"` // ISO 8601
}

type SubscriptionDTO struct {
	CompanyID          uuid.UUID          `json:"companyId"`
	Status             SubscriptionStatus `json:"status"`
	PlanID             string             `json:"planId,omitempty"`
	CurrentPeriodEnd   *string            `json:"currentPeriodEnd,omitempty"` // ISO 8601
	ProviderCustomerID string             `json:"providerCustomerId,omitempty"`
	UpdatedAt          string             `json:"updatedAt"` // ISO 8601
}

type PaymentDTO struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"documentId"`
	Reference  string    `json:"reference"`
	Amount     float64   `json:"amount"`
	ReceivedAt string    `json:"receivedAt"` // ISO 8601
}

type ActivityDTO struct {
	ID          uuid.UUID          `json:"id"`
	Type        string             `json:"type"`
	Description string             `json:"description"`
	TargetType  ActivityTargetType `json:"targetType"`
	TargetID    uuid.UUID          `json:"targetId"`
	UserName    string             `json:"userName,omitempty"`
	CreatedAt   string             `json:"createdAt"` // ISO 8601
}

// DocumentStatsDTO aggregates document counts per stored status.
type DocumentStatsDTO struct {
	Draft     int64 `json:"draft"`
	Sent      int64 `json:"sent"`
	Signed    int64 `json:"signed"`
	Paid      int64 `json:"paid"`
	Cancelled int64 `json:"cancelled"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

type CreateClientRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	SiretNumber   string `json:"siretNumber,omitempty" validate:"omitempty,len=14,numeric"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string `json:"phone,omitempty" validate:"max=30"`
	Address       string `json:"address,omitempty" validate:"max=300"`
	City          string `json:"city,omitempty" validate:"max=100"`
	PostalCode    string `json:"postalCode,omitempty" validate:"max=10"`
	Country       string `json:"country,omitempty" validate:"max=100"`
	ContactPerson string `json:"contactPerson,omitempty" validate:"max=200"`
	Notes         string `json:"notes,omitempty"`
}

type UpdateClientRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	SiretNumber   string `json:"siretNumber,omitempty" validate:"omitempty,len=14,numeric"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Phone         string `json:"phone,omitempty" validate:"max=30"`
	Address       string `json:"address,omitempty" validate:"max=300"`
	City          string `json:"city,omitempty" validate:"max=100"`
	PostalCode    string `json:"postalCode,omitempty" validate:"max=10"`
	Country       string `json:"country,omitempty" validate:"max=100"`
	ContactPerson string `json:"contactPerson,omitempty" validate:"max=200"`
	Notes         string `json:"notes,omitempty"`
}

type CreateDocumentRequest struct {
	ClientID uuid.UUID           `json:"clientId" validate:"required"`
	Type     DocumentType        `json:"type" validate:"required"`
	Title    string              `json:"title,omitempty" validate:"max=200"`
	TaxRate  *float64            `json:"taxRate,omitempty" validate:"omitempty,gte=0,lte=1"`
	Lines    []CreateLineRequest `json:"lines,omitempty"`
}

type UpdateDocumentRequest struct {
	Title   string   `json:"title,omitempty" validate:"max=200"`
	TaxRate *float64 `json:"taxRate,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type CreateLineRequest struct {
	Label       string       `json:"label" validate:"required,max=300"`
	Description string       `json:"description,omitempty"`
	Category    LineCategory `json:"category,omitempty"`
	Unit        string       `json:"unit,omitempty" validate:"max=20"`
	Quantity    *float64     `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	UnitPriceHT *float64     `json:"unitPriceHt,omitempty" validate:"omitempty,gte=0"`
	TaxRate     *float64     `json:"taxRate,omitempty" validate:"omitempty,gte=0,lte=1"`
	Position    *int         `json:"position,omitempty" validate:"omitempty,gte=0"`
}

type UpdateLineRequest struct {
	Label       string       `json:"label" validate:"required,max=300"`
	Description string       `json:"description,omitempty"`
	Category    LineCategory `json:"category,omitempty"`
	Unit        string       `json:"unit,omitempty" validate:"max=20"`
	Quantity    *float64     `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	UnitPriceHT *float64     `json:"unitPriceHt,omitempty" validate:"omitempty,gte=0"`
	TaxRate     *float64     `json:"taxRate,omitempty" validate:"omitempty,gte=0,lte=1"`
	Position    *int         `json:"position,omitempty" validate:"omitempty,gte=0"`
}

type AddLineFromLibraryRequest struct {
	EntryID  uuid.UUID `json:"entryId" validate:"required"`
	Quantity *float64  `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Position *int      `json:"position,omitempty" validate:"omitempty,gte=0"`
}

type ResolvePriceRequest struct {
	Label       string       `json:"label" validate:"required,max=300"`
	Category    LineCategory `json:"category,omitempty"`
	Unit        string       `json:"unit,omitempty" validate:"max=20"`
	ManualPrice *float64     `json:"manualPrice,omitempty" validate:"omitempty,gte=0"`
}

type CreateSessionRequest struct {
	SignerName  string `json:"signerName,omitempty" validate:"max=200"`
	SignerEmail string `json:"signerEmail,omitempty" validate:"omitempty,email"`
	TTLHours    *int   `json:"ttlHours,omitempty" validate:"omitempty,min=1,max=720"`
}

type SignSessionRequest struct {
	SignerName  string `json:"signerName" validate:"required,max=200"`
	SignerEmail string `json:"signerEmail,omitempty" validate:"omitempty,email"`
	Signature   string `json:"signature,omitempty"` // base64 PNG, stored as artifact
}

type MarkPaidRequest struct {
	Reference  string     `json:"reference" validate:"required,max=100"`
	Amount     *float64   `json:"amount,omitempty" validate:"omitempty,gte=0"`
	ReceivedAt *time.Time `json:"receivedAt,omitempty"`
}

// WebhookEvent is the envelope posted by the payment provider.
type WebhookEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt int64           `json:"created_at"`
	Data      WebhookData     `json:"data"`
}

type WebhookData struct {
	Payment      *WebhookPayment      `json:"payment,omitempty"`
	Subscription *WebhookSubscription `json:"subscription,omitempty"`
}

type WebhookPayment struct {
	DocumentID uuid.UUID `json:"document_id"`
	Reference  string    `json:"reference"`
	Amount     float64   `json:"amount"`
}

type WebhookSubscription struct {
	CompanyID        uuid.UUID `json:"company_id"`
	Status           string    `json:"status"`
	PlanID           string    `json:"plan_id"`
	CustomerID       string    `json:"customer_id"`
	CurrentPeriodEnd *int64    `json:"current_period_end,omitempty"`
}
