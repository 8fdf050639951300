package auth

import "time"

// Role is the single role held by an identity. Roles are fixed at
// registration; changing a role means provisioning a new identity.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleDoctor        Role = "doctor"
	RoleNurse         Role = "nurse"
	RoleReceptionist  Role = "receptionist"
	RoleLabTechnician Role = "lab_technician"
	RolePharmacist    Role = "pharmacist"
	RoleAccountant    Role = "accountant"
)

// Roles lists every known role in declaration order.
var Roles = []Role{
	RoleAdmin,
	RoleDoctor,
	RoleNurse,
	RoleReceptionist,
	RoleLabTechnician,
	RolePharmacist,
	RoleAccountant,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Status controls whether an identity may log in. Only active identities
// authenticate; the evaluator re-checks status on every request.
type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusSuspended  Status = "suspended"
	StatusTerminated Status = "terminated"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusTerminated:
		return true
	}
	return false
}

// Module names a protected area of the front-office API.
type Module string

const (
	ModulePatients     Module = "patients"
	ModuleDoctors      Module = "doctors"
	ModuleAppointments Module = "appointments"
	ModulePharmacy     Module = "pharmacy"
	ModuleLab          Module = "lab"
	ModuleBilling      Module = "billing"
	ModuleRooms        Module = "rooms"
	ModuleReports      Module = "reports"
	ModuleAdmin        Module = "admin"
)

// Modules lists every protected module.
var Modules = []Module{
	ModulePatients,
	ModuleDoctors,
	ModuleAppointments,
	ModulePharmacy,
	ModuleLab,
	ModuleBilling,
	ModuleRooms,
	ModuleReports,
	ModuleAdmin,
}

// Action is an operation within a module.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
)

// Actions lists every action.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove}

// Grant allows a set of actions on a single module.
type Grant struct {
	Module  Module   `json:"module"`
	Actions []Action `json:"actions"`
}

// Allows reports whether the grant covers the action.
func (g Grant) Allows(action Action) bool {
	for _, a := range g.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Identity is the persisted account record. Grants are assigned from the
// per-role default table at registration and never recomputed.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         Role
	Status       Status
	Department   string
	Position     string
	Grants       []Grant

	LoginAttempts int
	LockUntil     *time.Time
	LastLogin     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GrantFor returns the grant covering the module, if any. Grants are a
// short fixed list, so a linear scan is fine.
func (id *Identity) GrantFor(module Module) (Grant, bool) {
	for _, g := range id.Grants {
		if g.Module == module {
			return g, true
		}
	}
	return Grant{}, false
}

// LockedAt reports whether the identity has a lock window covering now.
func (id *Identity) LockedAt(now time.Time) bool {
	return id.LockUntil != nil && id.LockUntil.After(now)
}

// Profile is the client-safe projection of an identity. No password hash,
// no lockout counters.
type Profile struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Phone      string     `json:"phone,omitempty"`
	Role       Role       `json:"role"`
	Status     Status     `json:"status"`
	Department string     `json:"department,omitempty"`
	Position   string     `json:"position,omitempty"`
	Grants     []Grant    `json:"permissions"`
	LastLogin  *time.Time `json:"lastLogin,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Profile returns the sanitized projection of the identity.
func (id *Identity) Profile() Profile {
	return Profile{
		ID:         id.ID,
		Username:   id.Username,
		Email:      id.Email,
		FirstName:  id.FirstName,
		LastName:   id.LastName,
		Phone:      id.Phone,
		Role:       id.Role,
		Status:     id.Status,
		Department: id.Department,
		Position:   id.Position,
		Grants:     id.Grants,
		LastLogin:  id.LastLogin,
		CreatedAt:  id.CreatedAt,
	}
}
