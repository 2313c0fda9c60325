// Package permission derives a member's role in a workspace and decides
// which actions that role may perform.
//
// The functions are pure. The acting member is always passed in explicitly;
// nothing is read from session state.
package permission

import "taskboard/internal/models"

// Action is a single capability a role may grant.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionInvite Action = "invite"
)

// capabilities maps each role to the actions it grants. Roles are not
// ordered; each carries an explicit set.
var capabilities = map[models.Role]map[Action]struct{}{
	models.RoleOwner: {
		ActionView:   {},
		ActionEdit:   {},
		ActionDelete: {},
		ActionInvite: {},
	},
	models.RoleAdmin: {
		ActionView:   {},
		ActionEdit:   {},
		ActionInvite: {},
	},
	models.RoleEditor: {
		ActionView:   {},
		ActionEdit:   {},
		ActionInvite: {},
	},
	models.RoleViewer: {
		ActionView: {},
	},
}

// GetRole returns the role memberID holds in ws. The owner check comes
// first, then the member list. It returns "" when ws is nil, the member is
// unknown or the identifier is empty.
func GetRole(ws *models.Workspace, memberID any) models.Role {
	id := models.CanonicalID(memberID)
	if ws == nil || id == "" {
		return ""
	}
	if ws.OwnerID() == id {
		return models.RoleOwner
	}
	for _, m := range ws.Members {
		if m.Member.String() == id {
			return m.Role
		}
	}
	return ""
}

// HasPermission reports whether memberID may perform action in ws. Unknown
// members, unknown roles and unknown actions are all denied.
func HasPermission(action Action, ws *models.Workspace, memberID any) bool {
	role := GetRole(ws, memberID)
	if role == "" {
		return false
	}
	_, ok := capabilities[role][action]
	return ok
}

// Capabilities returns the actions granted to role, in a fixed order.
func Capabilities(role models.Role) []Action {
	var out []Action
	for _, a := range []Action{ActionView, ActionEdit, ActionDelete, ActionInvite} {
		if _, ok := capabilities[role][a]; ok {
			out = append(out, a)
		}
	}
	return out
}
