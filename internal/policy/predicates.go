package policy

import "github.com/clinsim/clinsim/internal/principal"

// Predicate conditionally grants a capability based on the decision context.
// Predicates fail closed: missing context attributes never grant access.
type Predicate func(sub principal.Subject, c Context) bool

// Ownership allows a subject to act on their own records only.
func Ownership() Predicate {
	return func(sub principal.Subject, c Context) bool {
		return c.TargetSubjectID != "" && c.TargetSubjectID == sub.ID
	}
}

// SameDiscipline restricts access to the subject's own discipline partition.
func SameDiscipline() Predicate {
	return func(sub principal.Subject, c Context) bool {
		return c.TargetDiscipline != "" && c.TargetDiscipline == sub.Discipline
	}
}

// AssignmentRelation allows the creator, a collaborator or an assigned
// reviewer of the resource.
func AssignmentRelation() Predicate {
	return func(sub principal.Subject, c Context) bool {
		if sub.ID == "" {
			return false
		}
		if c.OwnerID == sub.ID {
			return true
		}
		for _, id := range c.Collaborators {
			if id == sub.ID {
				return true
			}
		}
		for _, id := range c.Reviewers {
			if id == sub.ID {
				return true
			}
		}
		return false
	}
}

// All combines predicates conjunctively: every one must pass.
func All(preds ...Predicate) Predicate {
	return func(sub principal.Subject, c Context) bool {
		for _, p := range preds {
			if !p(sub, c) {
				return false
			}
		}
		return len(preds) > 0
	}
}

// Any combines predicates disjunctively: one passing grant suffices.
func Any(preds ...Predicate) Predicate {
	return func(sub principal.Subject, c Context) bool {
		for _, p := range preds {
			if p(sub, c) {
				return true
			}
		}
		return false
	}
}
