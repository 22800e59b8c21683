package principal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinsim/clinsim/internal/audit"
)

// Resolver turns a bearer credential into a live Subject. It is the single
// authentication path; required and optional resolution share all validation
// logic and differ only in how failure is surfaced.
type Resolver struct {
	codec        *TokenCodec
	store        SubjectStore
	sink         audit.Sink
	logger       *slog.Logger
	serviceKeys  map[string]string
	touchTimeout time.Duration
}

// ResolverConfig collects resolver dependencies.
type ResolverConfig struct {
	Codec  *TokenCodec
	Store  SubjectStore
	Sink   audit.Sink
	Logger *slog.Logger
	// ServiceKeys maps a raw key to its caller id. A bearer credential equal
	// to a key authenticates as a synthetic service subject without any
	// store lookup.
	ServiceKeys map[string]string
	// TouchTimeout bounds the fire-and-forget last-activity write.
	TouchTimeout time.Duration
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.TouchTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{
		codec:        cfg.Codec,
		store:        cfg.Store,
		sink:         cfg.Sink,
		logger:       cfg.Logger,
		serviceKeys:  cfg.ServiceKeys,
		touchTimeout: timeout,
	}
}

// Resolve validates the Authorization header value and loads the subject.
// Modeled failures come back as *AuthError; anything else is a store fault.
// Every call emits exactly one audit event before returning.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (Subject, error) {
	credential := strings.TrimSpace(authorization)
	if credential == "" {
		return Subject{}, r.fail(ctx, "", authError(FailureNoCredential, nil))
	}

	token, ok := strings.CutPrefix(credential, "Bearer ")
	if !ok {
		return Subject{}, r.fail(ctx, "", authError(FailureMalformedCredential, errors.New("authorization scheme must be Bearer")))
	}
	token = strings.TrimSpace(token)

	if keyID, found := r.serviceKeys[token]; found {
		subject := ServiceSubject(keyID)
		r.emit(ctx, audit.Event{
			Kind:      audit.KindAuthSuccess,
			SubjectID: subject.ID,
			Outcome:   audit.OutcomeAllow,
		})
		return subject, nil
	}

	claims, authErr := r.codec.Verify(token)
	if authErr != nil {
		return Subject{}, r.fail(ctx, "", authErr)
	}

	subject, err := r.store.FindByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return Subject{}, r.fail(ctx, claims.SubjectID, authError(FailureUnknownSubject, err))
		}
		r.emit(ctx, audit.Event{
			Kind:      audit.KindAuthFailed,
			SubjectID: claims.SubjectID,
			Outcome:   audit.OutcomeError,
			Reason:    audit.ReasonStoreError,
		})
		return Subject{}, fmt.Errorf("principal: resolve: %w", err)
	}
	if !subject.Active {
		return Subject{}, r.fail(ctx, subject.ID, authError(FailureInactiveSubject, nil))
	}

	r.emit(ctx, audit.Event{
		Kind:      audit.KindAuthSuccess,
		SubjectID: subject.ID,
		Outcome:   audit.OutcomeAllow,
	})
	r.touch(subject.ID)
	return subject, nil
}

// ResolveOptional never fails: a missing or invalid credential resolves to
// the anonymous subject and the pipeline continues. Used by public endpoints
// that enrich responses for logged-in callers.
func (r *Resolver) ResolveOptional(ctx context.Context, authorization string) Subject {
	subject, err := r.Resolve(ctx, authorization)
	if err != nil {
		return Anonymous()
	}
	return subject
}

// touch updates last-activity without blocking or failing the request.
func (r *Resolver) touch(subjectID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.touchTimeout)
		defer cancel()
		if err := r.store.TouchLastActivity(ctx, subjectID); err != nil && r.logger != nil {
			r.logger.Warn("touch last activity",
				slog.Any("error", err),
				slog.String("subject", subjectID))
		}
	}()
}

func (r *Resolver) fail(ctx context.Context, subjectID string, authErr *AuthError) *AuthError {
	r.emit(ctx, audit.Event{
		Kind:      audit.KindAuthFailed,
		SubjectID: subjectID,
		Outcome:   audit.OutcomeDeny,
		Reason:    failureReason(authErr.Kind),
	})
	return authErr
}

func (r *Resolver) emit(ctx context.Context, event audit.Event) {
	if r.sink == nil {
		return
	}
	filled := audit.New(event.Kind, event.SubjectID)
	filled.Outcome = event.Outcome
	filled.Reason = event.Reason
	filled.Origin = audit.OriginFromContext(ctx)
	if err := r.sink.Record(ctx, filled); err != nil && r.logger != nil {
		r.logger.Error("audit record", slog.Any("error", err))
	}
}

func failureReason(kind FailureKind) audit.Reason {
	switch kind {
	case FailureNoCredential:
		return audit.ReasonNoCredential
	case FailureMalformedCredential:
		return audit.ReasonTokenMalformed
	case FailureExpiredCredential:
		return audit.ReasonTokenExpired
	case FailureUnknownSubject:
		return audit.ReasonUserNotFound
	case FailureInactiveSubject:
		return audit.ReasonUserInactive
	default:
		return audit.ReasonNone
	}
}
