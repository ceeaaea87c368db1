package domain

import "time"

// IsTerminal reports whether a document status admits no further transitions.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusPaid || s == DocumentStatusCancelled
}

// IsLocked reports whether a document's lines may no longer be edited.
// Lines are editable up to and including "sent"; signing freezes them.
func (d *Document) IsLocked() bool {
	switch d.Status {
	case DocumentStatusSigned, DocumentStatusPaid, DocumentStatusCancelled:
		return true
	}
	return false
}

// IsOverdue derives the presentational "overdue" state for invoices.
// It is true iff the document is an invoice, not paid or cancelled, and its
// due date has passed. This is never stored; recompute it on every read.
func IsOverdue(d *Document, now time.Time) bool {
	if d.Type != DocumentTypeInvoice {
		return false
	}
	if d.Status == DocumentStatusPaid || d.Status == DocumentStatusCancelled {
		return false
	}
	if d.DueDate == nil {
		return false
	}
	return now.After(*d.DueDate)
}

// CanCancel reports whether the document may transition to cancelled.
// Cancelled is reachable from any non-terminal state, never from paid.
func (d *Document) CanCancel() bool {
	return !d.Status.IsTerminal()
}

// IsPayable reports whether a payment may be taken against the document.
// Quotes become payable (deposit) only once signed; invoices are payable when
// signed, or when sent with a non-zero total.
func (d *Document) IsPayable() bool {
	switch d.Type {
	case DocumentTypeQuote:
		return d.Status == DocumentStatusSigned
	case DocumentTypeInvoice:
		if d.Status == DocumentStatusSigned {
			return true
		}
		return d.Status == DocumentStatusSent && d.TotalTTC != 0
	}
	return false
}

// CanSign reports whether the document may transition to signed.
func (d *Document) CanSign() bool {
	return d.Status == DocumentStatusDraft || d.Status == DocumentStatusSent
}
