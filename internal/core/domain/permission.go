package domain

// Resource enumerates the protected resource kinds.
type Resource string

const (
	ResourceForklifts Resource = "forklifts"
	ResourceUsers     Resource = "users"
)

// Valid reports whether the resource is one of the closed set.
func (r Resource) Valid() bool {
	switch r {
	case ResourceForklifts, ResourceUsers:
		return true
	}
	return false
}

// Action enumerates the operations a permission can grant.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether the action is one of the closed set.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ActionSet holds the grant flags for one resource.
type ActionSet struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// Allows reports whether the set grants the supplied action.
func (s ActionSet) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return s.Create
	case ActionRead:
		return s.Read
	case ActionUpdate:
		return s.Update
	case ActionDelete:
		return s.Delete
	}
	return false
}

// PermissionMatrix is the fixed-shape resource/action grant table carried on
// each user and snapshotted into access tokens. Unknown resources or actions
// never match, so a typo'd lookup denies rather than panics.
type PermissionMatrix struct {
	Forklifts ActionSet `json:"forklifts"`
	Users     ActionSet `json:"users"`
}

// Allows reports whether the matrix grants action on resource.
func (m PermissionMatrix) Allows(resource Resource, action Action) bool {
	switch resource {
	case ResourceForklifts:
		return m.Forklifts.Allows(action)
	case ResourceUsers:
		return m.Users.Allows(action)
	}
	return false
}

// DefaultPermissions returns the grant table seeded for a newly provisioned role.
func DefaultPermissions(role Role) PermissionMatrix {
	full := ActionSet{Create: true, Read: true, Update: true, Delete: true}
	switch role {
	case RoleSuperAdmin:
		return PermissionMatrix{Forklifts: full, Users: full}
	case RoleAdmin:
		return PermissionMatrix{
			Forklifts: full,
			Users:     ActionSet{Read: true},
		}
	}
	return PermissionMatrix{}
}
