package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantierflow/commerce-api/internal/config"
	"github.com/chantierflow/commerce-api/internal/domain"
)

func testValidator() *JWTValidator {
	return NewJWTValidator(&config.AuthConfig{
		JWTSecret: "test-secret-0123456789",
		Issuer:    "chantierflow-auth",
		Audience:  "commerce-api",
	})
}

func TestJWT_RoundTrip(t *testing.T) {
	v := testValidator()
	companyID := uuid.New()

	user := &UserContext{
		UserID:      "user-42",
		DisplayName: "Paul Girard",
		Email:       "paul@batiment-girard.fr",
		Roles:       []domain.UserRoleType{domain.RoleManager},
		CompanyID:   companyID,
	}

	token, err := v.IssueToken(user, time.Hour)
	require.NoError(t, err)

	got, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", got.UserID)
	assert.Equal(t, "Paul Girard", got.DisplayName)
	assert.Equal(t, companyID, got.CompanyID)
	assert.True(t, got.HasRole(domain.RoleManager))
}

func TestJWT_ExpiredToken(t *testing.T) {
	v := testValidator()

	token, err := v.IssueToken(&UserContext{
		UserID:    "user-42",
		Roles:     []domain.UserRoleType{domain.RoleViewer},
		CompanyID: uuid.New(),
	}, -time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWT_WrongIssuer(t *testing.T) {
	other := NewJWTValidator(&config.AuthConfig{
		JWTSecret: "test-secret-0123456789",
		Issuer:    "someone-else",
		Audience:  "commerce-api",
	})
	token, err := other.IssueToken(&UserContext{
		UserID:    "user-42",
		CompanyID: uuid.New(),
	}, time.Hour)
	require.NoError(t, err)

	_, err = testValidator().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	forged := NewJWTValidator(&config.AuthConfig{
		JWTSecret: "not-the-real-secret",
		Issuer:    "chantierflow-auth",
		Audience:  "commerce-api",
	})
	token, err := forged.IssueToken(&UserContext{
		UserID:    "user-42",
		CompanyID: uuid.New(),
	}, time.Hour)
	require.NoError(t, err)

	_, err = testValidator().ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_DefaultsToViewerRole(t *testing.T) {
	v := testValidator()

	token, err := v.IssueToken(&UserContext{
		UserID:    "user-42",
		CompanyID: uuid.New(),
	}, time.Hour)
	require.NoError(t, err)

	got, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserRoleType{domain.RoleViewer}, got.Roles)
	assert.False(t, got.CanWriteDocuments())
}
