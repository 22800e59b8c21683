package principal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	token, err := codec.Issue("u1")
	require.NoError(t, err)

	claims, authErr := codec.Verify(token)
	require.Nil(t, authErr)
	require.Equal(t, "u1", claims.SubjectID)
	require.True(t, claims.ExpiresAt.After(time.Now()))

	// Verification is idempotent within the expiry window.
	again, authErr := codec.Verify(token)
	require.Nil(t, authErr)
	require.Equal(t, claims.SubjectID, again.SubjectID)
}

func TestTokenExpiryBoundaryIsInclusive(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	codec := NewTokenCodec("test-secret", time.Hour).WithClock(func() time.Time { return now })

	token, err := codec.Issue("u1")
	require.NoError(t, err)

	// One second before expiry: still valid.
	now = issuedAt.Add(time.Hour - time.Second)
	_, authErr := codec.Verify(token)
	require.Nil(t, authErr)

	// Exactly at expiry: expired, not valid.
	now = issuedAt.Add(time.Hour)
	_, authErr = codec.Verify(token)
	require.NotNil(t, authErr)
	require.Equal(t, FailureExpiredCredential, authErr.Kind)

	// Past expiry.
	now = issuedAt.Add(2 * time.Hour)
	_, authErr = codec.Verify(token)
	require.NotNil(t, authErr)
	require.Equal(t, FailureExpiredCredential, authErr.Kind)
}

func TestTokenMalformed(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	_, authErr := codec.Verify("not-a-token")
	require.NotNil(t, authErr)
	require.Equal(t, FailureMalformedCredential, authErr.Kind)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenCodec("secret-a", time.Hour)
	verifier := NewTokenCodec("secret-b", time.Hour)

	token, err := issuer.Issue("u1")
	require.NoError(t, err)

	_, authErr := verifier.Verify(token)
	require.NotNil(t, authErr)
	require.Equal(t, FailureMalformedCredential, authErr.Kind)
}
