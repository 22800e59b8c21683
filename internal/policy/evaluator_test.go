package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clinsim/clinsim/internal/audit"
	"github.com/clinsim/clinsim/internal/principal"
)

func newTestEvaluator() (*Evaluator, *audit.Recorder) {
	recorder := audit.NewRecorder()
	return NewEvaluator(DefaultGrants(), recorder, nil), recorder
}

func student(id, discipline string) principal.Subject {
	return principal.Subject{ID: id, Roles: []principal.Role{principal.RoleStudent}, Discipline: discipline, Active: true}
}

func TestStudentReadsCasesInOwnDiscipline(t *testing.T) {
	eval, _ := newTestEvaluator()
	u1 := student("u1", "medicine")

	allowed, err := eval.Authorize(context.Background(), u1, ResourceCases, ActionRead, Context{TargetDiscipline: "medicine"})
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestStudentDeniedCasesInOtherDiscipline(t *testing.T) {
	eval, recorder := newTestEvaluator()
	u1 := student("u1", "medicine")

	allowed, err := eval.Authorize(context.Background(), u1, ResourceCases, ActionRead, Context{TargetDiscipline: "nursing"})
	require.NoError(t, err)
	require.False(t, allowed)

	events := recorder.Events()
	require.Len(t, events, 1)
	require.Equal(t, audit.ReasonPredicateFailed, events[0].Reason)
}

func TestStudentDeniedOtherSubjectsProgress(t *testing.T) {
	eval, _ := newTestEvaluator()
	u1 := student("u1", "medicine")

	// Ownership is independent of discipline: same discipline does not help.
	allowed, err := eval.Authorize(context.Background(), u1, ResourceProgress, ActionRead, Context{
		TargetSubjectID:  "u2",
		TargetDiscipline: "medicine",
	})
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = eval.Authorize(context.Background(), u1, ResourceProgress, ActionRead, Context{TargetSubjectID: "u1"})
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestEducatorCreatesCasesRegardlessOfOtherRoles(t *testing.T) {
	eval, _ := newTestEvaluator()
	u2 := principal.Subject{
		ID:         "u2",
		Roles:      []principal.Role{principal.RoleEducator, principal.RoleStudent},
		Discipline: "nursing",
		Active:     true,
	}

	// Union semantics: the educator grant wins even though the student role
	// has no cases/create capability.
	allowed, err := eval.Authorize(context.Background(), u2, ResourceCases, ActionCreate, Context{})
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestAdminBypassesContextChecks(t *testing.T) {
	eval, _ := newTestEvaluator()
	admin := principal.Subject{ID: "a1", Roles: []principal.Role{principal.RoleAdmin}, Discipline: "medicine", Active: true}

	resources := []Resource{ResourceCases, ResourceProgress, ResourceUsers, ResourceAnalytics, ResourceSimulations, ResourceTemplates, ResourceAudit}
	actions := []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList}
	hostile := Context{TargetSubjectID: "someone-else", TargetDiscipline: "nursing", OwnerID: "someone-else"}

	for _, res := range resources {
		for _, act := range actions {
			allowed, err := eval.Authorize(context.Background(), admin, res, act, hostile)
			require.NoError(t, err)
			require.True(t, allowed, "admin denied %s/%s", res, act)
		}
	}
}

func TestUnregisteredCombinationDeniesWithMissingRole(t *testing.T) {
	eval, recorder := newTestEvaluator()
	u1 := student("u1", "medicine")

	allowed, err := eval.Authorize(context.Background(), u1, ResourceTemplates, ActionDelete, Context{})
	require.NoError(t, err)
	require.False(t, allowed)

	events := recorder.Events()
	require.Len(t, events, 1)
	require.Equal(t, audit.ReasonMissingRole, events[0].Reason)
}

func TestAnonymousSubjectDenied(t *testing.T) {
	eval, _ := newTestEvaluator()

	allowed, err := eval.Authorize(context.Background(), principal.Anonymous(), ResourceCases, ActionRead, Context{TargetDiscipline: "medicine"})
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestEveryAuthorizeEmitsExactlyOneEvent(t *testing.T) {
	eval, recorder := newTestEvaluator()
	u1 := student("u1", "medicine")

	cases := []struct {
		resource Resource
		action   Action
		dc       Context
		want     bool
	}{
		{ResourceCases, ActionRead, Context{TargetDiscipline: "medicine"}, true},
		{ResourceCases, ActionRead, Context{TargetDiscipline: "nursing"}, false},
		{ResourceProgress, ActionRead, Context{TargetSubjectID: "u1"}, true},
		{ResourceProgress, ActionRead, Context{TargetSubjectID: "u9"}, false},
		{ResourceAudit, ActionRead, Context{}, false},
	}
	for _, tc := range cases {
		recorder.Reset()
		allowed, err := eval.Authorize(context.Background(), u1, tc.resource, tc.action, tc.dc)
		require.NoError(t, err)
		require.Equal(t, tc.want, allowed)

		events := recorder.Events()
		require.Len(t, events, 1, "%s/%s must emit exactly one event", tc.resource, tc.action)
		wantOutcome := audit.OutcomeDeny
		if tc.want {
			wantOutcome = audit.OutcomeAllow
		}
		require.Equal(t, wantOutcome, events[0].Outcome)
	}
}

func TestEvaluatorFaultOnMissingGrants(t *testing.T) {
	recorder := audit.NewRecorder()
	eval := NewEvaluator(nil, recorder, nil)

	allowed, err := eval.Authorize(context.Background(), student("u1", "medicine"), ResourceCases, ActionRead, Context{})
	require.ErrorIs(t, err, ErrEvaluatorFault)
	require.False(t, allowed)

	events := recorder.Events()
	require.Len(t, events, 1)
	require.Equal(t, audit.KindAuthzError, events[0].Kind)
	require.Equal(t, audit.OutcomeError, events[0].Outcome)
}

func TestRoleDecisions(t *testing.T) {
	eval, recorder := newTestEvaluator()
	u2 := principal.Subject{ID: "u2", Roles: []principal.Role{principal.RoleEducator, principal.RoleStudent}, Active: true}

	require.True(t, eval.AuthorizeAnyRole(context.Background(), u2, principal.RoleAdmin, principal.RoleEducator))
	require.False(t, eval.AuthorizeAnyRole(context.Background(), u2, principal.RoleAdmin))
	require.True(t, eval.AuthorizeAllRoles(context.Background(), u2, principal.RoleEducator, principal.RoleStudent))
	require.False(t, eval.AuthorizeAllRoles(context.Background(), u2, principal.RoleEducator, principal.RoleAdmin))

	events := recorder.Events()
	require.Len(t, events, 4)
	require.Equal(t, audit.ReasonMissingRole, events[1].Reason)
}
