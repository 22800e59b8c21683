package policy

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/clinsim/clinsim/internal/audit"
	"github.com/clinsim/clinsim/internal/principal"
)

// ErrEvaluatorFault marks an unexpected internal error during evaluation.
// It is the only authorization outcome that propagates as an error; expected
// denials are plain boolean results.
var ErrEvaluatorFault = errors.New("policy: evaluator fault")

// Evaluator decides allow/deny for (subject, resource, action, context)
// against the grant table. Every evaluation, whichever way it goes, emits
// exactly one audit event.
type Evaluator struct {
	grants GrantTable
	sink   audit.Sink
	logger *slog.Logger
}

// NewEvaluator constructs an Evaluator over the given grant table.
func NewEvaluator(grants GrantTable, sink audit.Sink, logger *slog.Logger) *Evaluator {
	return &Evaluator{grants: grants, sink: sink, logger: logger}
}

// Authorize resolves the subject's capability set and evaluates it.
//
// An unconditional grant from any held role allows immediately; otherwise
// every registered predicate across the held roles is tried and one passing
// predicate suffices (union semantics, never intersection). No registered
// rule means deny.
func (e *Evaluator) Authorize(ctx context.Context, sub principal.Subject, resource Resource, action Action, dc Context) (bool, error) {
	if e == nil || e.grants == nil {
		if e != nil {
			e.emit(ctx, audit.Event{
				Kind:      audit.KindAuthzError,
				SubjectID: sub.ID,
				Resource:  string(resource),
				Action:    string(action),
				Outcome:   audit.OutcomeError,
				Reason:    audit.ReasonEvaluatorFault,
			})
		}
		return false, ErrEvaluatorFault
	}

	var predicates []Predicate
	for _, role := range sub.Roles {
		byResource, ok := e.grants[role]
		if !ok {
			continue
		}
		byAction, ok := byResource[resource]
		if !ok {
			continue
		}
		rule, ok := byAction[action]
		if !ok {
			continue
		}
		if rule.Unconditional {
			e.emitDecision(ctx, sub, resource, action, audit.OutcomeAllow, audit.ReasonNone)
			return true, nil
		}
		if rule.Predicate != nil {
			predicates = append(predicates, rule.Predicate)
		}
	}

	if len(predicates) == 0 {
		e.emitDecision(ctx, sub, resource, action, audit.OutcomeDeny, audit.ReasonMissingRole)
		return false, nil
	}
	for _, pred := range predicates {
		if pred(sub, dc) {
			e.emitDecision(ctx, sub, resource, action, audit.OutcomeAllow, audit.ReasonNone)
			return true, nil
		}
	}
	e.emitDecision(ctx, sub, resource, action, audit.OutcomeDeny, audit.ReasonPredicateFailed)
	return false, nil
}

// AuthorizeAnyRole decides purely on role membership: at least one of the
// listed roles must be held.
func (e *Evaluator) AuthorizeAnyRole(ctx context.Context, sub principal.Subject, roles ...principal.Role) bool {
	return e.roleDecision(ctx, sub, sub.HasAnyRole(roles...), roles)
}

// AuthorizeAllRoles decides purely on role membership: every listed role
// must be held.
func (e *Evaluator) AuthorizeAllRoles(ctx context.Context, sub principal.Subject, roles ...principal.Role) bool {
	return e.roleDecision(ctx, sub, sub.HasAllRoles(roles...), roles)
}

// AuthorizePredicate evaluates a single named predicate against the context.
// Convenience guards (own-data, same-discipline) are built on this.
func (e *Evaluator) AuthorizePredicate(ctx context.Context, sub principal.Subject, label string, pred Predicate, dc Context) bool {
	allowed := pred != nil && pred(sub, dc)
	outcome := audit.OutcomeDeny
	reason := audit.ReasonPredicateFailed
	if allowed {
		outcome = audit.OutcomeAllow
		reason = audit.ReasonNone
	}
	e.emit(ctx, audit.Event{
		Kind:      decisionKind(allowed),
		SubjectID: sub.ID,
		Resource:  label,
		Action:    "access",
		Outcome:   outcome,
		Reason:    reason,
	})
	return allowed
}

func (e *Evaluator) roleDecision(ctx context.Context, sub principal.Subject, allowed bool, roles []principal.Role) bool {
	outcome := audit.OutcomeDeny
	reason := audit.ReasonMissingRole
	if allowed {
		outcome = audit.OutcomeAllow
		reason = audit.ReasonNone
	}
	e.emit(ctx, audit.Event{
		Kind:      decisionKind(allowed),
		SubjectID: sub.ID,
		Resource:  "roles:" + joinRoles(roles),
		Action:    "access",
		Outcome:   outcome,
		Reason:    reason,
	})
	return allowed
}

func (e *Evaluator) emitDecision(ctx context.Context, sub principal.Subject, resource Resource, action Action, outcome audit.Outcome, reason audit.Reason) {
	e.emit(ctx, audit.Event{
		Kind:      decisionKind(outcome == audit.OutcomeAllow),
		SubjectID: sub.ID,
		Resource:  string(resource),
		Action:    string(action),
		Outcome:   outcome,
		Reason:    reason,
	})
}

func (e *Evaluator) emit(ctx context.Context, event audit.Event) {
	if e.sink == nil {
		return
	}
	filled := audit.New(event.Kind, event.SubjectID)
	filled.Resource = event.Resource
	filled.Action = event.Action
	filled.Outcome = event.Outcome
	filled.Reason = event.Reason
	filled.Origin = audit.OriginFromContext(ctx)
	if err := e.sink.Record(ctx, filled); err != nil && e.logger != nil {
		e.logger.Error("audit record", slog.Any("error", err))
	}
}

func decisionKind(allowed bool) audit.Kind {
	if allowed {
		return audit.KindAuthzGrant
	}
	return audit.KindAuthzDeny
}

func joinRoles(roles []principal.Role) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return strings.Join(names, ",")
}
