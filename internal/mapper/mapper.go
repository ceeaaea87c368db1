package mapper

import (
	"time"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/pricing"
)

const timeFormat = "2006-01-02T15:04:05Z"

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

// ToClientDTO converts Client to ClientDTO
func ToClientDTO(client *domain.Client) domain.ClientDTO {
	return domain.ClientDTO{
		ID:            client.ID,
		CompanyID:     client.CompanyID,
		Name:          client.Name,
		SiretNumber:   client.SiretNumber,
		Email:         client.Email,
		Phone:         client.Phone,
		Address:       client.Address,
		City:          client.City,
		PostalCode:    client.PostalCode,
		Country:       client.Country,
		ContactPerson: client.ContactPerson,
		Notes:         client.Notes,
		CreatedAt:     client.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:     client.UpdatedAt.UTC().Format(timeFormat),
	}
}

// ToDocumentDTO converts Document to DocumentDTO. Overdue is derived from
// the stored status and due date at conversion time.
func ToDocumentDTO(doc *domain.Document) domain.DocumentDTO {
	dto := domain.DocumentDTO{
		ID:               doc.ID,
		CompanyID:        doc.CompanyID,
		ClientID:         doc.ClientID,
		Type:             doc.Type,
		Number:           doc.Number,
		Status:           doc.Status,
		Title:            doc.Title,
		TaxRate:          doc.TaxRate,
		SubtotalHT:       doc.SubtotalHT,
		TotalTVA:         doc.TotalTVA,
		TotalTTC:         doc.TotalTTC,
		Overdue:          domain.IsOverdue(doc, time.Now()),
		DueDate:          formatTimePtr(doc.DueDate),
		SentAt:           formatTimePtr(doc.SentAt),
		SignedAt:         formatTimePtr(doc.SignedAt),
		PaidAt:           formatTimePtr(doc.PaidAt),
		CancelledAt:      formatTimePtr(doc.CancelledAt),
		PaymentReference: doc.PaymentReference,
		CreatedAt:        doc.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:        doc.UpdatedAt.UTC().Format(timeFormat),
	}
	if doc.Client != nil {
		dto.ClientName = doc.Client.Name
	}
	if len(doc.Lines) > 0 {
		dto.Lines = make([]domain.DocumentLineDTO, 0, len(doc.Lines))
		for i := range doc.Lines {
			dto.Lines = append(dto.Lines, ToDocumentLineDTO(&doc.Lines[i]))
		}
	}
	return dto
}

// ToDocumentLineDTO converts DocumentLine to DocumentLineDTO with computed totals
func ToDocumentLineDTO(line *domain.DocumentLine) domain.DocumentLineDTO {
	totals := pricing.ComputeLineTotals(line)
	return domain.DocumentLineDTO{
		ID:          line.ID,
		QuoteID:     line.QuoteID,
		InvoiceID:   line.InvoiceID,
		Label:       line.Label,
		Description: line.Description,
		Category:    line.Category,
		Unit:        line.Unit,
		Quantity:    line.Quantity,
		UnitPriceHT: line.UnitPriceHT,
		TaxRate:     line.TaxRate,
		PriceSource: line.PriceSource,
		Position:    line.Position,
		TotalHT:     totals.TotalHT,
		TotalTVA:    totals.TotalTVA,
		TotalTTC:    totals.TotalTTC,
		CreatedAt:   line.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   line.UpdatedAt.UTC().Format(timeFormat),
	}
}

// ToPriceLibraryEntryDTO converts PriceLibraryEntry to its DTO
func ToPriceLibraryEntryDTO(entry *domain.PriceLibraryEntry) domain.PriceLibraryEntryDTO {
	var price float64
	if entry.DefaultUnitPriceHT != nil {
		price = *entry.DefaultUnitPriceHT
	}
	return domain.PriceLibraryEntryDTO{
		ID:              entry.ID,
		Label:           entry.Label,
		NormalizedLabel: entry.NormalizedLabel,
		Category:        entry.DefaultCategory,
		DefaultUnit:     entry.DefaultUnit,
		UnitPriceHT:     price,
		TimesUsed:       entry.TimesUsed,
		CreatedAt:       entry.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:       entry.UpdatedAt.UTC().Format(timeFormat),
	}
}

// ToSignatureSessionDTO converts SignatureSession to its DTO
func ToSignatureSessionDTO(session *domain.SignatureSession) domain.SignatureSessionDTO {
	return domain.SignatureSessionDTO{
		ID:          session.ID,
		QuoteID:     session.QuoteID,
		InvoiceID:   session.InvoiceID,
		Token:       session.Token,
		Status:      session.Status,
		ExpiresAt:   session.ExpiresAt.UTC().Format(timeFormat),
		SignerName:  session.SignerName,
		SignerEmail: session.SignerEmail,
		SignedAt:    formatTimePtr(session.SignedAt),
		CreatedAt:   session.CreatedAt.UTC().Format(timeFormat),
	}
}

// ToSubscriptionDTO converts CompanySubscription to its DTO
func ToSubscriptionDTO(sub *domain.CompanySubscription) domain.SubscriptionDTO {
	return domain.SubscriptionDTO{
		CompanyID:          sub.CompanyID,
		Status:             sub.Status,
		PlanID:             sub.PlanID,
		CurrentPeriodEnd:   formatTimePtr(sub.CurrentPeriodEnd),
		ProviderCustomerID: sub.ProviderRef,
		UpdatedAt:          sub.UpdatedAt.UTC().Format(timeFormat),
	}
}

// ToPaymentDTO converts Payment to its DTO
func ToPaymentDTO(payment *domain.Payment) domain.PaymentDTO {
	return domain.PaymentDTO{
		ID:         payment.ID,
		DocumentID: payment.DocumentID,
		Reference:  payment.Reference,
		Amount:     payment.Amount,
		ReceivedAt: payment.ReceivedAt.UTC().Format(timeFormat),
	}
}

// ToActivityDTO converts Activity to its DTO
func ToActivityDTO(activity *domain.Activity) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:          activity.ID,
		Type:        activity.Title,
		Description: activity.Body,
		TargetType:  activity.TargetType,
		TargetID:    activity.TargetID,
		UserName:    activity.ActorName,
		CreatedAt:   activity.OccurredAt.UTC().Format(timeFormat),
	}
}
