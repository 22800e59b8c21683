package principal

import "time"

// Role is one of the closed set of platform roles. There is no dynamic role
// registration at runtime.
type Role string

const (
	RoleStudent  Role = "student"
	RoleEducator Role = "educator"
	RoleAdmin    Role = "admin"
	// RoleService is the synthetic role held by machine-to-machine callers
	// authenticated through the service-key allow list.
	RoleService Role = "service"
)

// Subject is an authenticated principal. A subject may hold several roles
// simultaneously; capability evaluation takes the union of their grants.
type Subject struct {
	ID           string
	Roles        []Role
	Discipline   string
	Active       bool
	LastActiveAt time.Time
}

// HasAnyRole reports whether the subject holds at least one of the roles.
func (s Subject) HasAnyRole(roles ...Role) bool {
	for _, want := range roles {
		for _, held := range s.Roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

// HasAllRoles reports whether the subject holds every listed role.
func (s Subject) HasAllRoles(roles ...Role) bool {
	for _, want := range roles {
		if !s.HasAnyRole(want) {
			return false
		}
	}
	return true
}

// IsAnonymous reports whether this is the anonymous placeholder subject.
func (s Subject) IsAnonymous() bool {
	return s.ID == ""
}

// Anonymous is the placeholder subject produced by optional resolution when
// no valid credential is present. It holds no roles and passes no guard.
func Anonymous() Subject {
	return Subject{}
}

// ServiceSubject is the synthetic subject produced by a matching service key.
func ServiceSubject(keyID string) Subject {
	return Subject{
		ID:     "service:" + keyID,
		Roles:  []Role{RoleService},
		Active: true,
	}
}
