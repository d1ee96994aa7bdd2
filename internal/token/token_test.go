package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/testutil"
)

func Test_Decode(t *testing.T) {
	t.Parallel()

	t.Run("malformed input returns nil", func(t *testing.T) {
		tests := []struct {
			name  string
			token string
		}{
			{"empty string", ""},
			{"not a jwt at all", "garbage"},
			{"two segments only", "aaaa.bbbb"},
			{"bad base64 payload", "eyJhbGciOiJIUzI1NiJ9.!!!not-base64!!!.sig"},
			{"valid base64 but not json", "eyJhbGciOiJIUzI1NiJ9.Z2FyYmFnZQ.sig"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Nil(t, Decode(tt.token), "malformed token must decode to nil")
			})
		}
	})

	t.Run("valid token decodes", func(t *testing.T) {
		issuedAt := time.Unix(1_700_000_000, 0)
		expiresAt := issuedAt.Add(15 * time.Minute)
		raw := testutil.MintToken(t, models.RoleEmployee, models.TokenTypeAccess, issuedAt, expiresAt)

		payload := Decode(raw)

		require.NotNil(t, payload)
		assert.Equal(t, int64(1), payload.SubjectID)
		assert.Equal(t, models.RoleEmployee, payload.Role)
		assert.Equal(t, models.TokenTypeAccess, payload.TokenType)
		assert.Equal(t, issuedAt.Unix(), payload.IssuedAt)
		assert.Equal(t, expiresAt.Unix(), payload.ExpiresAt)
	})

	t.Run("signature is not verified", func(t *testing.T) {
		now := time.Now()
		claims := jwt.MapClaims{
			"userId":    int64(7),
			"role":      models.RoleOwner,
			"tokenType": models.TokenTypeRefresh,
			"iat":       now.Unix(),
			"exp":       now.Add(time.Hour).Unix(),
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("a-completely-different-key"))
		require.NoError(t, err)

		payload := Decode(raw)

		require.NotNil(t, payload, "decoding must not depend on the signing key")
		assert.Equal(t, int64(7), payload.SubjectID)
		assert.Equal(t, models.RoleOwner, payload.Role)
	})

	t.Run("expiry must follow issuance", func(t *testing.T) {
		at := time.Unix(1_700_000_000, 0)

		sameInstant := testutil.MintToken(t, models.RoleOwner, models.TokenTypeAccess, at, at)
		assert.Nil(t, Decode(sameInstant), "exp == iat is not a usable token")

		backwards := testutil.MintToken(t, models.RoleOwner, models.TokenTypeAccess, at, at.Add(-time.Minute))
		assert.Nil(t, Decode(backwards), "exp before iat is not a usable token")
	})

	t.Run("missing time claims", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"userId": int64(1),
			"role":   models.RoleOwner,
		}).SignedString([]byte(testutil.SigningKey))
		require.NoError(t, err)

		assert.Nil(t, Decode(raw), "token without iat/exp must decode to nil")
	})
}

func Test_PayloadHelpers(t *testing.T) {
	t.Parallel()

	payload := &Payload{IssuedAt: 0, ExpiresAt: 900}

	t.Run("lifetime and remaining", func(t *testing.T) {
		assert.Equal(t, 900*time.Second, payload.Lifetime())
		assert.Equal(t, 400*time.Second, payload.Remaining(time.Unix(500, 0)))
		assert.Equal(t, -100*time.Second, payload.Remaining(time.Unix(1000, 0)))
	})

	t.Run("expired honors the safety margin", func(t *testing.T) {
		p := &Payload{IssuedAt: 0, ExpiresAt: 1000}

		assert.False(t, p.Expired(time.Unix(998, 0), time.Second))
		assert.True(t, p.Expired(time.Unix(999, 0), time.Second), "margin shrinks the lifetime by one second")
		assert.True(t, p.Expired(time.Unix(1000, 0), time.Second))
	})
}
