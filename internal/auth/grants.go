package auth

// allActions covers every action; used for the admin default table.
var allActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove}

// defaultGrants is the static per-role grant table applied once at
// registration. The evaluator never consults this table for admins: the
// admin bypass lives in Principal.Allows, the stored grants are only a
// record of what the role was provisioned with.
var defaultGrants = map[Role][]Grant{
	RoleAdmin: fullGrants(),
	RoleDoctor: {
		{Module: ModulePatients, Actions: []Action{ActionRead, ActionUpdate}},
		{Module: ModuleAppointments, Actions: []Action{ActionRead, ActionUpdate}},
		{Module: ModuleLab, Actions: []Action{ActionCreate, ActionRead}},
		{Module: ModulePharmacy, Actions: []Action{ActionCreate, ActionRead}},
	},
	RoleNurse: {
		{Module: ModulePatients, Actions: []Action{ActionRead, ActionUpdate}},
		{Module: ModuleAppointments, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
		{Module: ModuleRooms, Actions: []Action{ActionRead, ActionUpdate}},
	},
	RoleReceptionist: {
		{Module: ModulePatients, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
		{Module: ModuleDoctors, Actions: []Action{ActionRead}},
		{Module: ModuleAppointments, Actions: []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}},
		{Module: ModuleBilling, Actions: []Action{ActionCreate, ActionRead}},
	},
	RoleLabTechnician: {
		{Module: ModulePatients, Actions: []Action{ActionRead}},
		{Module: ModuleLab, Actions: []Action{ActionCreate, ActionRead, ActionUpdate, ActionApprove}},
	},
	RolePharmacist: {
		{Module: ModulePatients, Actions: []Action{ActionRead}},
		{Module: ModulePharmacy, Actions: []Action{ActionCreate, ActionRead, ActionUpdate, ActionApprove}},
	},
	RoleAccountant: {
		{Module: ModulePatients, Actions: []Action{ActionRead}},
		{Module: ModuleBilling, Actions: []Action{ActionCreate, ActionRead, ActionUpdate, ActionApprove}},
		{Module: ModuleReports, Actions: []Action{ActionCreate, ActionRead}},
	},
}

func fullGrants() []Grant {
	grants := make([]Grant, 0, len(Modules))
	for _, m := range Modules {
		grants = append(grants, Grant{Module: m, Actions: allActions})
	}
	return grants
}

// DefaultGrants returns a deep copy of the static grant table for the
// role. Callers may mutate the result, including the action slices,
// without reaching the shared table.
func DefaultGrants(role Role) []Grant {
	return cloneGrants(defaultGrants[role])
}

func cloneGrants(src []Grant) []Grant {
	out := make([]Grant, len(src))
	for i, g := range src {
		actions := make([]Action, len(g.Actions))
		copy(actions, g.Actions)
		out[i] = Grant{Module: g.Module, Actions: actions}
	}
	return out
}
