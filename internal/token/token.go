// Package token reads session token payloads without verifying signatures.
//
// Tokens are minted and signature-checked by the upstream auth API only.
// The gateway still has to tolerate structurally broken input (a tampered
// cookie, a malicious query parameter), so Decode never panics and returns
// nil for anything it cannot make sense of.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Payload is the decoded, unverified body of a session token
type Payload struct {
	SubjectID int64
	Role      string
	TokenType string
	IssuedAt  int64 // unix seconds
	ExpiresAt int64 // unix seconds
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"userId"`
	Role      string `json:"role"`
	TokenType string `json:"tokenType"`
}

var parser = jwt.NewParser()

// Decode parses the token payload without validating the signature.
// Returns nil on malformed input or when expiry does not follow issuance;
// callers must treat nil as "not authenticated".
func Decode(tokenString string) *Payload {
	claims := &tokenClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil
	}

	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil
	}

	p := &Payload{
		SubjectID: claims.UserID,
		Role:      claims.Role,
		TokenType: claims.TokenType,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}

	if p.ExpiresAt <= p.IssuedAt {
		return nil
	}

	return p
}

// Expired reports whether the token expiry has passed, shrinking the
// remaining lifetime by margin to avoid racing the clock
func (p *Payload) Expired(now time.Time, margin time.Duration) bool {
	return float64(p.ExpiresAt)-margin.Seconds() <= float64(now.UnixMilli())/1000
}

// Lifetime is the full issued lifetime of the token
func (p *Payload) Lifetime() time.Duration {
	return time.Duration(p.ExpiresAt-p.IssuedAt) * time.Second
}

// Remaining is the lifetime left at now. Negative once expired.
func (p *Payload) Remaining(now time.Time) time.Duration {
	return time.Unix(p.ExpiresAt, 0).Sub(now)
}
