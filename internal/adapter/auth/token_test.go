package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/campuseats/internal/domain"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	for _, actor := range []domain.Actor{
		domain.CustomerActor("08012345678"),
		domain.VendorActor("v1", "mama-put"),
		domain.RiderActor("r1"),
	} {
		token, err := issuer.Issue(actor)
		require.NoError(t, err)

		got, err := issuer.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, actor, got)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.Issue(domain.RiderActor("r1"))
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewIssuer("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue(domain.RiderActor("r1"))
	require.NoError(t, err)
	_, err = issuer.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsUnknownRole(t *testing.T) {
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "root",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueVendorNeedsRestaurant(t *testing.T) {
	_, err := NewIssuer("secret", time.Hour).Issue(domain.Actor{Role: domain.RoleVendor, ID: "v1"})
	assert.Error(t, err)
}
