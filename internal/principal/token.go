package principal

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "clinsim"

// Claims is the verified content of a credential.
type Claims struct {
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies the signed bearer credentials binding a
// subject id to an issued-at time and an expiry. A single HMAC secret signs
// every token.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec returns a codec signing with secret and issuing tokens valid
// for ttl.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Tests use this to pin "now".
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a new credential for the subject.
func (c *TokenCodec) Issue(subjectID string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("principal: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry cryptographically, before any store
// lookup happens. An expiry equal to "now" counts as expired.
func (c *TokenCodec) Verify(raw string) (Claims, *AuthError) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, authError(FailureExpiredCredential, err)
		}
		return Claims{}, authError(FailureMalformedCredential, err)
	}

	registered, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || registered.Subject == "" || registered.ExpiresAt == nil {
		return Claims{}, authError(FailureMalformedCredential, errors.New("missing claims"))
	}
	// The library treats exp == now as still valid; the platform boundary is
	// inclusive, so enforce it here.
	if !registered.ExpiresAt.Time.After(c.now()) {
		return Claims{}, authError(FailureExpiredCredential, errors.New("token expiry reached"))
	}

	claims := Claims{
		SubjectID: registered.Subject,
		ExpiresAt: registered.ExpiresAt.Time,
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, nil
}
