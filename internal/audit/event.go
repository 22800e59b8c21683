package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind categorises an audit event.
type Kind string

const (
	KindAuthSuccess Kind = "AUTH_SUCCESS"
	KindAuthFailed  Kind = "AUTH_FAILED"
	KindAuthzGrant  Kind = "AUTHZ_GRANTED"
	KindAuthzDeny   Kind = "AUTHZ_DENIED"
	KindAuthzError  Kind = "AUTHZ_ERROR"
	KindLogin       Kind = "AUTH_LOGIN"
	KindLoginFailed Kind = "AUTH_LOGIN_FAILED"
)

// Outcome is the final result recorded for a decision.
type Outcome string

const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
	OutcomeError Outcome = "error"
)

// Reason explains a failed authentication or a denied authorization.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoCredential    Reason = "NO_CREDENTIAL"
	ReasonTokenMalformed  Reason = "TOKEN_MALFORMED"
	ReasonTokenExpired    Reason = "TOKEN_EXPIRED"
	ReasonUserNotFound    Reason = "USER_NOT_FOUND"
	ReasonUserInactive    Reason = "USER_INACTIVE"
	ReasonStoreError      Reason = "STORE_ERROR"
	ReasonMissingRole     Reason = "MISSING_ROLE"
	ReasonPredicateFailed Reason = "PREDICATE_FAILED"
	ReasonBadCredentials  Reason = "BAD_CREDENTIALS"
	ReasonEvaluatorFault  Reason = "EVALUATOR_FAULT"
)

// Origin carries request metadata attached to every event.
type Origin struct {
	IP        string
	UserAgent string
	Path      string
}

// Event is an immutable record of an authentication or authorization
// decision. Events are appended, never mutated.
type Event struct {
	ID        string
	Kind      Kind
	SubjectID string
	Resource  string
	Action    string
	Outcome   Outcome
	Reason    Reason
	Origin    Origin
	At        time.Time
}

// New builds an event with a fresh id and the current timestamp.
func New(kind Kind, subjectID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		SubjectID: subjectID,
		At:        time.Now().UTC(),
	}
}
