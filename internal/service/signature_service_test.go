package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/service"
)

func (e *testEnv) createSentQuote(t *testing.T) *domain.DocumentDTO {
	doc := e.createDocument(t, domain.DocumentTypeQuote,
		domain.CreateLineRequest{Label: "Pose carrelage", Quantity: floatPtr(10), UnitPriceHT: floatPtr(35)},
	)
	sent, err := e.documents.Send(e.ctx, doc.ID)
	require.NoError(t, err)
	return sent
}

func (e *testEnv) expireSession(t *testing.T, token string, at time.Time) {
	err := e.db.Model(&domain.SignatureSession{}).
		Where("token = ?", token).
		Update("expires_at", at).Error
	require.NoError(t, err)
}

func TestSignatureService_CreateSession(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	session, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{
		SignerEmail: "client@dupont-immo.fr",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusPending, session.Status)
	assert.NotEmpty(t, session.Token)
	assert.GreaterOrEqual(t, len(session.Token), 40, "token carries 32 bytes of entropy")
	require.NotNil(t, session.QuoteID)
	assert.Equal(t, doc.ID, *session.QuoteID)
	assert.Nil(t, session.InvoiceID)

	// Tokens are unique per session.
	second, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, session.Token, second.Token)
}

func TestSignatureService_CreateSession_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createDocument(t, domain.DocumentTypeQuote)

	_, err := env.documents.Cancel(env.ctx, doc.ID)
	require.NoError(t, err)

	_, err = env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestSignatureService_CreateSession_SubscriptionGate(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	env.setSubscriptionStatus(t, domain.SubscriptionStatusPastDue)

	_, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	assert.ErrorIs(t, err, service.ErrSubscriptionRequired)
}

func TestSignatureService_ValidateSession(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	session, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)

	view, err := env.signatures.ValidateSession(env.ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeQuote, view.DocumentType)
	assert.Equal(t, doc.Number, view.DocumentNumber)
	assert.Equal(t, "Dupont Immobilier", view.ClientName)
	assert.Equal(t, 420.0, view.TotalTTC)
	assert.Len(t, view.Lines, 1)

	_, err = time.Parse(time.RFC3339, view.ExpiresAt)
	assert.NoError(t, err, "expiry is an RFC 3339 timestamp")

	_, err = env.signatures.ValidateSession(env.ctx, "no-such-token")
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestSignatureService_ValidateSession_Expired(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	session, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)
	env.expireSession(t, session.Token, time.Now().Add(-time.Minute))

	_, err = env.signatures.ValidateSession(env.ctx, session.Token)
	assert.ErrorIs(t, err, service.ErrSessionExpired)
}

func TestSignatureService_SignSession(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	session, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)

	signed, err := env.signatures.SignSession(env.ctx, session.Token, &domain.SignSessionRequest{
		SignerName: "Jean Dupont",
		Signature:  "iVBORw0KGgo=",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusSigned, signed.Status)
	assert.Equal(t, "Jean Dupont", signed.SignerName)
	assert.NotNil(t, signed.SignedAt)

	// Signing moves the document to signed and locks its lines.
	refreshed, err := env.documents.Get(env.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusSigned, refreshed.Status)
	assert.NotNil(t, refreshed.SignedAt)

	_, err = env.documents.AddLine(env.ctx, doc.ID, &domain.CreateLineRequest{Label: "Supplément"})
	assert.ErrorIs(t, err, service.ErrDocumentLocked)

	stored, err := env.sessionRepo.GetByToken(env.ctx, session.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ArtifactPath)
}

func TestSignatureService_SignSession_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	session, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = env.signatures.SignSession(env.ctx, session.Token, &domain.SignSessionRequest{
		SignerName: "Jean Dupont",
		Signature:  "iVBORw0KGgo=",
	})
	require.NoError(t, err)

	_, err = env.signatures.SignSession(env.ctx, session.Token, &domain.SignSessionRequest{
		SignerName: "Jean Dupont",
		Signature:  "iVBORw0KGgo=",
	})
	assert.ErrorIs(t, err, service.ErrSessionAlreadySigned)

	// The token keeps answering "already signed", even after expiry.
	env.expireSession(t, session.Token, time.Now().Add(-time.Hour))
	_, err = env.signatures.SignSession(env.ctx, session.Token, &domain.SignSessionRequest{
		SignerName: "Jean Dupont",
		Signature:  "iVBORw0KGgo=",
	})
	assert.ErrorIs(t, err, service.ErrSessionAlreadySigned)
}

func TestSignatureService_SignSession_ExpiryRecheckedAtSigning(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	session, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)

	// The session lapses between page-load and submit.
	env.expireSession(t, session.Token, time.Now().Add(-time.Second))

	_, err = env.signatures.SignSession(env.ctx, session.Token, &domain.SignSessionRequest{
		SignerName: "Jean Dupont",
		Signature:  "iVBORw0KGgo=",
	})
	assert.ErrorIs(t, err, service.ErrSessionExpired)

	// The document is untouched.
	refreshed, err := env.documents.Get(env.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusSent, refreshed.Status)
}

func TestSignatureService_SignSession_MissingInputs(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	session, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = env.signatures.SignSession(env.ctx, session.Token, &domain.SignSessionRequest{
		SignerName: "  ",
		Signature:  "iVBORw0KGgo=",
	})
	assert.ErrorIs(t, err, service.ErrSignerNameRequired)

	_, err = env.signatures.SignSession(env.ctx, session.Token, &domain.SignSessionRequest{
		SignerName: "Jean Dupont",
	})
	assert.ErrorIs(t, err, service.ErrSignatureRequired)

	// Failed attempts leave the session usable.
	stored, err := env.sessionRepo.GetByToken(env.ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusPending, stored.Status)
}

func TestSignatureService_SweepExpired(t *testing.T) {
	env := newTestEnv(t)
	doc := env.createSentQuote(t)

	stale, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)
	env.expireSession(t, stale.Token, time.Now().Add(-48*time.Hour))

	fresh, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)

	signed, err := env.signatures.CreateSession(env.ctx, doc.ID, &domain.CreateSessionRequest{})
	require.NoError(t, err)
	_, err = env.signatures.SignSession(env.ctx, signed.Token, &domain.SignSessionRequest{
		SignerName: "Jean Dupont",
		Signature:  "iVBORw0KGgo=",
	})
	require.NoError(t, err)
	env.expireSession(t, signed.Token, time.Now().Add(-48*time.Hour))

	removed, err := env.signatures.SweepExpired(env.ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = env.sessionRepo.GetByToken(env.ctx, fresh.Token)
	assert.NoError(t, err)

	// Signed sessions are audit records: never swept.
	kept, err := env.sessionRepo.GetByToken(env.ctx, signed.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusSigned, kept.Status)
}
