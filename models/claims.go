package models

// Claims are the verified identity attributes of the caller
type Claims struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// NewClaims merges the flat and realm-scoped role lists, keeping first-seen order.
func NewClaims(userID, displayName string, roles, realmRoles []string) Claims {
	seen := make(map[string]struct{}, len(roles)+len(realmRoles))
	merged := make([]string, 0, len(roles)+len(realmRoles))
	for _, list := range [][]string{roles, realmRoles} {
		for _, r := range list {
			if r == "" {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			merged = append(merged, r)
		}
	}
	return Claims{
		UserID:      userID,
		DisplayName: displayName,
		Roles:       merged,
	}
}

// HasRole reports whether the caller holds role
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
