package policy

import "github.com/clinsim/clinsim/internal/principal"

// Resource identifies a protected resource type.
type Resource string

const (
	ResourceCases       Resource = "cases"
	ResourceProgress    Resource = "progress"
	ResourceUsers       Resource = "users"
	ResourceAnalytics   Resource = "analytics"
	ResourceSimulations Resource = "simulations"
	ResourceTemplates   Resource = "templates"
	ResourceAudit       Resource = "audit"
)

// Action identifies what the caller wants to do with the resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Rule is a single capability grant: either unconditional or gated by a
// predicate over the decision context.
type Rule struct {
	Unconditional bool
	Predicate     Predicate
}

// Unconditionally grants the capability with no context checks.
func Unconditionally() Rule {
	return Rule{Unconditional: true}
}

// When grants the capability only while the predicate holds.
func When(pred Predicate) Rule {
	return Rule{Predicate: pred}
}

// GrantTable maps role -> resource -> action -> rule. Absence of an entry is
// a denial; nothing is granted implicitly.
type GrantTable map[principal.Role]map[Resource]map[Action]Rule

var allActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList}

// DefaultGrants is the platform capability table. Admin holds an
// unconditional superset of every other role's grants for all declared
// resources, so admin decisions short-circuit before predicate evaluation.
func DefaultGrants() GrantTable {
	table := GrantTable{
		principal.RoleStudent: {
			ResourceCases: {
				ActionRead: When(SameDiscipline()),
				ActionList: When(SameDiscipline()),
			},
			ResourceProgress: {
				ActionRead:   When(Ownership()),
				ActionUpdate: When(Ownership()),
			},
			ResourceUsers: {
				ActionRead:   When(Ownership()),
				ActionUpdate: When(Ownership()),
			},
			ResourceSimulations: {
				ActionCreate: Unconditionally(),
				ActionRead:   When(Ownership()),
				ActionList:   When(Ownership()),
			},
		},
		principal.RoleEducator: {
			ResourceCases: {
				ActionCreate: Unconditionally(),
				ActionRead:   Unconditionally(),
				ActionList:   Unconditionally(),
				ActionUpdate: When(AssignmentRelation()),
				ActionDelete: When(AssignmentRelation()),
			},
			ResourceProgress: {
				ActionRead: When(SameDiscipline()),
			},
			ResourceUsers: {
				ActionRead:   When(Any(Ownership(), SameDiscipline())),
				ActionUpdate: When(Ownership()),
			},
			ResourceAnalytics: {
				ActionRead: When(SameDiscipline()),
			},
			ResourceTemplates: {
				ActionCreate: Unconditionally(),
				ActionRead:   Unconditionally(),
				ActionList:   Unconditionally(),
				ActionUpdate: When(AssignmentRelation()),
			},
			ResourceSimulations: {
				ActionRead: When(SameDiscipline()),
				ActionList: When(SameDiscipline()),
			},
		},
		principal.RoleService: {
			ResourceCases: {
				ActionRead: Unconditionally(),
				ActionList: Unconditionally(),
			},
			ResourceProgress: {
				ActionRead: Unconditionally(),
			},
			ResourceAnalytics: {
				ActionRead: Unconditionally(),
			},
		},
	}

	// Admin: unconditional access to every declared resource and action.
	admin := make(map[Resource]map[Action]Rule)
	for _, res := range []Resource{
		ResourceCases, ResourceProgress, ResourceUsers, ResourceAnalytics,
		ResourceSimulations, ResourceTemplates, ResourceAudit,
	} {
		actions := make(map[Action]Rule, len(allActions))
		for _, act := range allActions {
			actions[act] = Unconditionally()
		}
		admin[res] = actions
	}
	table[principal.RoleAdmin] = admin

	return table
}
