package testutil

import (
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Signing key for tokens minted in tests. The gateway never verifies
// signatures, the key only has to produce a well-formed JWT.
const SigningKey = "test-secret-key"

// MintToken builds a signed JWT the way the upstream auth API would
func MintToken(t *testing.T, role string, tokenType string, issuedAt time.Time, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"userId":    int64(1),
		"role":      role,
		"tokenType": tokenType,
		"iat":       issuedAt.Unix(),
		"exp":       expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(SigningKey))
	require.NoError(t, err, "minting test token should not fail")

	return signed
}

// RandomPort returns a free tcp port
func RandomPort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return 0, err
	}
	defer ln.Close() // nolint:errcheck

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, nil
}

// Ptr returns a pointer to v, handy for the nullable model fields
func Ptr[T any](v T) *T {
	return &v
}
