package auth

import (
	"slices"
	"sort"
	"strings"
)

// Identity is a resolved request identity: the user plus the effective
// permission set derived from its active roles. It is recomputed on every
// request and never cached, so permission changes apply immediately.
type Identity struct {
	User        *User    `json:"user"`
	Permissions []string `json:"permissions"`

	// Convenience flags for the team management checks that appear on
	// nearly every page.
	HasTeamRead    bool `json:"has_team_read"`
	HasTeamWrite   bool `json:"has_team_write"`
	HasTeamDelete  bool `json:"has_team_delete"`
	HasManageRoles bool `json:"has_manage_roles"`
}

// NewIdentity builds an Identity from a user and its raw permission keys.
// Keys are deduplicated and sorted.
func NewIdentity(user *User, permissions []string) *Identity {
	perms := dedupeKeys(permissions)
	return &Identity{
		User:           user,
		Permissions:    perms,
		HasTeamRead:    slices.Contains(perms, PermTeamRead),
		HasTeamWrite:   slices.Contains(perms, PermTeamWrite),
		HasTeamDelete:  slices.Contains(perms, PermTeamDelete),
		HasManageRoles: slices.Contains(perms, PermTeamManageRoles),
	}
}

// HasPermission reports whether the identity holds the permission key.
// Matching is exact and case-sensitive; keys unknown to the catalog are
// honored if a role granted them.
func (id *Identity) HasPermission(key string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Permissions, key)
}

// Require returns ErrForbidden unless the identity holds the permission.
// A nil identity is ErrUnauthenticated.
func (id *Identity) Require(key string) error {
	if id == nil || id.User == nil {
		return ErrUnauthenticated
	}
	if !id.HasPermission(key) {
		return ErrForbidden
	}
	return nil
}

func dedupeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
