package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database does not (e.g. sqlite in tests)
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Company represents a construction company (tenant) using the platform
type Company struct {
	BaseModel
	Name           string  `gorm:"type:varchar(200);not null;index"`
	SiretNumber    string  `gorm:"type:varchar(20);unique;index;column:siret_number"`
	Email          string  `gorm:"type:varchar(255);not null"`
	Phone          string  `gorm:"type:varchar(50)"`
	Address        string  `gorm:"type:varchar(500)"`
	City           string  `gorm:"type:varchar(100)"`
	PostalCode     string  `gorm:"type:varchar(20);column:postal_code"`
	Country        string  `gorm:"type:varchar(100);not null;default:'France'"`
	Currency       string  `gorm:"type:varchar(3);not null;default:'EUR'"`
	DefaultTaxRate float64 `gorm:"type:decimal(5,4);not null;default:0.20;column:default_tax_rate"`
	IsActive       bool    `gorm:"not null;default:true;column:is_active"`
}

// SubscriptionStatus represents the billing state of a company subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusNone     SubscriptionStatus = "none"
)

// IsValid checks if the SubscriptionStatus is a valid enum value
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusTrialing, SubscriptionStatusActive,
		SubscriptionStatusPastDue, SubscriptionStatusCanceled, SubscriptionStatusNone:
		return true
	}
	return false
}

// AllowsMutation reports whether commercial documents may be mutated
// under this subscription state. Only trialing and active allow writes.
func (s SubscriptionStatus) AllowsMutation() bool {
	return s == SubscriptionStatusTrialing || s == SubscriptionStatusActive
}

// CompanySubscription tracks the billing-provider subscription for a company
type CompanySubscription struct {
	BaseModel
	CompanyID        uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex;column:company_id"`
	Company          *Company           `gorm:"foreignKey:CompanyID"`
	Status           SubscriptionStatus `gorm:"type:varchar(50);not null;default:'none'"`
	PlanID           string             `gorm:"type:varchar(100);column:plan_id"`
	CurrentPeriodEnd *time.Time         `gorm:"column:current_period_end"`
	ProviderRef      string             `gorm:"type:varchar(100);column:provider_ref"`
}

// Client represents the addressee of quotes and invoices
type Client struct {
	BaseModel
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index;column:company_id"`
	Company       *Company  `gorm:"foreignKey:CompanyID"`
	Name          string    `gorm:"type:varchar(200);not null;index"`
	SiretNumber   string    `gorm:"type:varchar(20);column:siret_number"`
	Email         string    `gorm:"type:varchar(255)"`
	Phone         string    `gorm:"type:varchar(50)"`
	Address       string    `gorm:"type:varchar(500)"`
	City          string    `gorm:"type:varchar(100)"`
	PostalCode    string    `gorm:"type:varchar(20);column:postal_code"`
	Country       string    `gorm:"type:varchar(100);not null;default:'France'"`
	ContactPerson string    `gorm:"type:varchar(200);column:contact_person"`
	Notes         string    `gorm:"type:text"`
	IsActive      bool      `gorm:"not null;default:true;column:is_active"`
}

// DocumentType distinguishes quotes from invoices
type DocumentType string

const (
	DocumentTypeQuote   DocumentType = "quote"
	DocumentTypeInvoice DocumentType = "invoice"
)

// IsValid checks if the DocumentType is a valid enum value
func (t DocumentType) IsValid() bool {
	return t == DocumentTypeQuote || t == DocumentTypeInvoice
}

// DocumentStatus represents the stored lifecycle state of a document.
// "overdue" is intentionally absent: it is derived, never stored (see status.go).
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusSent      DocumentStatus = "sent"
	DocumentStatusSigned    DocumentStatus = "signed"
	DocumentStatusPaid      DocumentStatus = "paid"
	DocumentStatusCancelled DocumentStatus = "cancelled"
)

// IsValid checks if the DocumentStatus is a valid enum value
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusSent, DocumentStatusSigned,
		DocumentStatusPaid, DocumentStatusCancelled:
		return true
	}
	return false
}

// Document represents a commercial document (quote or invoice) with its
// ordered lines and a denormalized totals snapshot.
type Document struct {
	BaseModel
	CompanyID        uuid.UUID      `gorm:"type:uuid;not null;index;column:company_id"`
	Company          *Company       `gorm:"foreignKey:CompanyID"`
	ClientID         uuid.UUID      `gorm:"type:uuid;not null;index;column:client_id"`
	Client           *Client        `gorm:"foreignKey:ClientID"`
	Type             DocumentType   `gorm:"type:varchar(20);not null;index"`
	Number           string         `gorm:"type:varchar(50);index"`
	Title            string         `gorm:"type:varchar(200);not null"`
	Notes            string         `gorm:"type:text"`
	Status           DocumentStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	TaxRate          float64        `gorm:"type:decimal(5,4);not null;default:0.20;column:tax_rate"`
	SubtotalHT       float64        `gorm:"type:decimal(15,2);not null;default:0;column:subtotal_ht"`
	TotalTVA         float64        `gorm:"type:decimal(15,2);not null;default:0;column:total_tva"`
	TotalTTC         float64        `gorm:"type:decimal(15,2);not null;default:0;column:total_ttc"`
	DueDate          *time.Time     `gorm:"type:date;column:due_date"`
	SentAt           *time.Time     `gorm:"column:sent_at"`
	SignedAt         *time.Time     `gorm:"column:signed_at"`
	PaidAt           *time.Time     `gorm:"column:paid_at"`
	CancelledAt      *time.Time     `gorm:"column:cancelled_at"`
	PaymentReference string         `gorm:"type:varchar(100);column:payment_reference"`
	Lines            []DocumentLine `gorm:"-"`
}

// LineCategory classifies a document line
type LineCategory string

const (
	LineCategoryLabor    LineCategory = "labor"
	LineCategoryMaterial LineCategory = "material"
	LineCategoryService  LineCategory = "service"
	LineCategoryOther    LineCategory = "other"
)

// IsValid checks if the LineCategory is a valid enum value
func (c LineCategory) IsValid() bool {
	switch c {
	case LineCategoryLabor, LineCategoryMaterial, LineCategoryService, LineCategoryOther:
		return true
	}
	return false
}

// Common units for construction line items. Unit remains free text;
// these are the suggested values surfaced to the UI.
const (
	UnitHour        = "h"
	UnitDay         = "jour"
	UnitSquareMeter = "m2"
	UnitCubicMeter  = "m3"
	UnitLinearMeter = "ml"
	UnitPiece       = "u"
	UnitLumpSum     = "forfait"
)

// PriceSource records where a line's unit price came from
type PriceSource string

const (
	PriceSourceManual         PriceSource = "manual"
	PriceSourceLibrary        PriceSource = "library"
	PriceSourceMarketEstimate PriceSource = "market_estimate"
	PriceSourceAIEstimate     PriceSource = "ai_estimate"
)

// IsValid checks if the PriceSource is a valid enum value
func (p PriceSource) IsValid() bool {
	switch p {
	case PriceSourceManual, PriceSourceLibrary, PriceSourceMarketEstimate, PriceSourceAIEstimate:
		return true
	}
	return false
}

// DocumentLine belongs to exactly one document: QuoteID XOR InvoiceID is set.
// A line with nil quantity or nil unit price contributes zero to totals.
type DocumentLine struct {
	BaseModel
	QuoteID     *uuid.UUID   `gorm:"type:uuid;index;column:quote_id"`
	InvoiceID   *uuid.UUID   `gorm:"type:uuid;index;column:invoice_id"`
	Label       string       `gorm:"type:varchar(500);not null"`
	Description string       `gorm:"type:text"`
	Category    LineCategory `gorm:"type:varchar(20);not null;default:'other'"`
	Unit        string       `gorm:"type:varchar(50)"`
	Quantity    *float64     `gorm:"type:decimal(12,3)"`
	UnitPriceHT *float64     `gorm:"type:decimal(15,2);column:unit_price_ht"`
	TaxRate     float64      `gorm:"type:decimal(5,4);not null;default:0.20;column:tax_rate"`
	PriceSource PriceSource  `gorm:"type:varchar(30);not null;default:'manual';column:price_source"`
	Position    int          `gorm:"not null;default:0"`
}

// DocumentID returns the owning document's ID regardless of parent type.
func (l *DocumentLine) DocumentID() uuid.UUID {
	if l.QuoteID != nil {
		return *l.QuoteID
	}
	if l.InvoiceID != nil {
		return *l.InvoiceID
	}
	return uuid.Nil
}

// HasValidParent reports whether exactly one of QuoteID/InvoiceID is set.
func (l *DocumentLine) HasValidParent() bool {
	return (l.QuoteID != nil) != (l.InvoiceID != nil)
}

// PriceLibraryEntry is a learned mapping from a normalized line label to
// default pricing data. Upserted on every line save; never deleted by the engine.
type PriceLibraryEntry struct {
	BaseModel
	CompanyID          uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_library_company_label;column:company_id"`
	Label              string       `gorm:"type:varchar(500);not null"`
	NormalizedLabel    string       `gorm:"type:varchar(500);not null;uniqueIndex:idx_library_company_label;column:normalized_label"`
	DefaultUnit        string       `gorm:"type:varchar(50);column:default_unit"`
	DefaultCategory    LineCategory `gorm:"type:varchar(20);not null;default:'other';column:default_category"`
	DefaultUnitPriceHT *float64     `gorm:"type:decimal(15,2);column:default_unit_price_ht"`
	TimesUsed          int          `gorm:"not null;default:0;column:times_used"`
}

// SessionStatus represents the stored state of a signature session.
// Expiry is derived from the clock, never stored as a status.
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusSigned  SessionStatus = "signed"
)

// SignatureSession is a time-limited, token-addressed request for an
// external party to sign exactly one document (quote XOR invoice).
// Signed sessions are kept as audit records and never deleted.
type SignatureSession struct {
	BaseModel
	QuoteID      *uuid.UUID    `gorm:"type:uuid;index;column:quote_id"`
	InvoiceID    *uuid.UUID    `gorm:"type:uuid;index;column:invoice_id"`
	Token        string        `gorm:"type:varchar(100);not null;uniqueIndex"`
	Status       SessionStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ExpiresAt    time.Time     `gorm:"not null;column:expires_at"`
	SignerName   string        `gorm:"type:varchar(200);column:signer_name"`
	SignerEmail  string        `gorm:"type:varchar(255);column:signer_email"`
	ArtifactPath string        `gorm:"type:varchar(500);column:artifact_path"`
	SignedAt     *time.Time    `gorm:"column:signed_at"`
}

// DocumentID returns the owning document's ID regardless of parent type.
func (s *SignatureSession) DocumentID() uuid.UUID {
	if s.QuoteID != nil {
		return *s.QuoteID
	}
	if s.InvoiceID != nil {
		return *s.InvoiceID
	}
	return uuid.Nil
}

// IsExpired reports whether the session is past its expiry at the given instant.
func (s *SignatureSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsUsable reports whether the session may still be signed at the given instant.
func (s *SignatureSession) IsUsable(now time.Time) bool {
	return s.Status == SessionStatusPending && !s.IsExpired(now)
}

// Payment records a confirmed payment against a document. The provider
// reference is unique so webhook retries cannot double-count.
type Payment struct {
	BaseModel
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index;column:document_id"`
	Document   *Document `gorm:"foreignKey:DocumentID"`
	Reference  string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Amount     float64   `gorm:"type:decimal(15,2);not null"`
	ReceivedAt time.Time `gorm:"not null;column:received_at"`
}

// NumberSequence backs document number generation, unique per company/type/year
type NumberSequence struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key"`
	CompanyID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_sequence_scope;column:company_id"`
	DocType      DocumentType `gorm:"type:varchar(20);not null;uniqueIndex:idx_sequence_scope;column:doc_type"`
	Year         int          `gorm:"not null;uniqueIndex:idx_sequence_scope"`
	LastSequence int          `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database does not (e.g. sqlite in tests)
func (n *NumberSequence) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// ActivityTargetType represents the type of entity an activity is associated with
type ActivityTargetType string

const (
	ActivityTargetQuote     ActivityTargetType = "Quote"
	ActivityTargetInvoice   ActivityTargetType = "Invoice"
	ActivityTargetSignature ActivityTargetType = "Signature"
	ActivityTargetClient    ActivityTargetType = "Client"
)

// Activity is an audit trail entry for commercial document events
type Activity struct {
	BaseModel
	TargetType ActivityTargetType `gorm:"type:varchar(50);not null;index;column:target_type"`
	TargetID   uuid.UUID          `gorm:"type:uuid;not null;index;column:target_id"`
	Title      string             `gorm:"type:varchar(200);not null"`
	Body       string             `gorm:"type:varchar(2000)"`
	ActorID    string             `gorm:"type:varchar(100);column:actor_id"`
	ActorName  string             `gorm:"type:varchar(200);column:actor_name"`
	OccurredAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP;index;column:occurred_at"`
}

// UserRoleType represents a role a user can have
type UserRoleType string

const (
	RoleAdmin      UserRoleType = "admin"
	RoleManager    UserRoleType = "manager"
	RoleAccountant UserRoleType = "accountant"
	RoleViewer     UserRoleType = "viewer"
	RoleAPIService UserRoleType = "api_service"
)

// User represents a user in the system
type User struct {
	ID          string         `gorm:"type:varchar(100);primaryKey" json:"id"`
	Email       string         `gorm:"type:varchar(255);not null;unique" json:"email"`
	DisplayName string         `gorm:"type:varchar(200);not null;column:name" json:"displayName"`
	Roles       pq.StringArray `gorm:"type:text[];not null" json:"roles"`
	CompanyID   *uuid.UUID     `gorm:"type:uuid;column:company_id" json:"companyId,omitempty"`
	Company     *Company       `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	IsActive    bool           `gorm:"not null;default:true;column:is_active" json:"isActive"`
	LastLoginAt *time.Time     `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}
