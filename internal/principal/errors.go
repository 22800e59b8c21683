package principal

import "fmt"

// FailureKind classifies why a credential did not resolve to a subject.
type FailureKind string

const (
	FailureNoCredential        FailureKind = "NO_CREDENTIAL"
	FailureMalformedCredential FailureKind = "MALFORMED_CREDENTIAL"
	FailureExpiredCredential   FailureKind = "EXPIRED_CREDENTIAL"
	FailureUnknownSubject      FailureKind = "UNKNOWN_SUBJECT"
	FailureInactiveSubject     FailureKind = "INACTIVE_SUBJECT"
)

// AuthError is the modeled, expected failure returned by the resolver.
// Callers branch on Kind; it is never a panic path.
type AuthError struct {
	Kind FailureKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("principal: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("principal: %s", e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Message returns the client-facing description for the failure kind.
func (e *AuthError) Message() string {
	switch e.Kind {
	case FailureNoCredential:
		return "authentication required"
	case FailureMalformedCredential:
		return "invalid token"
	case FailureExpiredCredential:
		return "token expired, please log in again"
	case FailureUnknownSubject:
		return "user not found"
	case FailureInactiveSubject:
		return "account deactivated"
	default:
		return "authentication failed"
	}
}

func authError(kind FailureKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}
