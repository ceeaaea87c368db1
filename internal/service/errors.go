package service

import "errors"

// Common service errors
var (
	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrClientNotFound is returned when a client is not found
	ErrClientNotFound = errors.New("client not found")

	// ErrDocumentNotFound is returned when a document is not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrLineNotFound is returned when a document line is not found
	ErrLineNotFound = errors.New("document line not found")

	// ErrLibraryEntryNotFound is returned when a price library entry is not found
	ErrLibraryEntryNotFound = errors.New("price library entry not found")

	// ErrSessionNotFound is returned when a signature session is not found
	ErrSessionNotFound = errors.New("signature session not found")

	// ErrSessionExpired is returned when a signature session is past its expiry
	ErrSessionExpired = errors.New("signature session expired")

	// ErrSessionAlreadySigned is returned when signing an already-signed session
	ErrSessionAlreadySigned = errors.New("signature session already signed")

	// ErrBlankLabel is returned when a line label is empty or whitespace
	ErrBlankLabel = errors.New("line label must not be blank")

	// ErrDocumentLocked is returned when mutating lines of a signed, paid or
	// cancelled document
	ErrDocumentLocked = errors.New("document is locked")

	// ErrInvalidTransition is returned on an illegal lifecycle transition
	ErrInvalidTransition = errors.New("invalid document status transition")

	// ErrDocumentNotPayable is returned when a payment session is requested
	// for a document that is not in a payable state
	ErrDocumentNotPayable = errors.New("document is not payable")

	// ErrDocumentAlreadyPaid is returned when paying a document that already
	// transitioned to paid under a different reference
	ErrDocumentAlreadyPaid = errors.New("document already paid")

	// ErrSubscriptionRequired is returned when the company subscription does
	// not allow document mutation
	ErrSubscriptionRequired = errors.New("active subscription required")

	// ErrSignerNameRequired is returned when signing without a signer name
	ErrSignerNameRequired = errors.New("signer name is required")

	// ErrSignatureRequired is returned when signing without a signature artifact
	ErrSignatureRequired = errors.New("signature artifact is required")
)
