package models

import "time"

// Role is a named permission tier inside a workspace.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Membership pairs a member with the role they hold in a workspace.
type Membership struct {
	Member MemberRef `json:"member"`
	Role   Role      `json:"role"`
}

// Workspace is the tenant container. The owner is implicit and never listed
// in Members.
type Workspace struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Owner       *MemberRef   `json:"owner"`
	Members     []Membership `json:"members"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}

// OwnerID returns the canonical identifier of the owner.
func (w *Workspace) OwnerID() string {
	if w == nil {
		return ""
	}
	return CanonicalID(w.Owner)
}

// KnownMembers returns the owner followed by every listed member, skipping
// duplicates and entries without an identifier.
func (w *Workspace) KnownMembers() []MemberRef {
	if w == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []MemberRef
	if id := w.OwnerID(); id != "" {
		seen[id] = struct{}{}
		out = append(out, *w.Owner)
	}
	for _, m := range w.Members {
		id := m.Member.String()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, m.Member)
	}
	return out
}
