package auth

import (
	"context"
	"sort"

	"github.com/frahmantamala/ai-helper/internal"
)

const (
	PermUsersRead   = "users:read"
	PermUsersWrite  = "users:write"
	PermChatUse     = "chat:use"
	PermProfileRead = "profile:read"
)

// DefaultRules is the built-in role table used when no policy is configured.
func DefaultRules() map[string][]string {
	return map[string][]string{
		internal.RoleAdmin: {PermUsersRead, PermUsersWrite, PermChatUse, PermProfileRead},
		internal.RoleUser:  {PermChatUse, PermProfileRead},
	}
}

// Policy decides role permissions from data. Anything not granted is denied, including
// unknown roles.
type Policy struct {
	rules map[string]map[string]struct{}
}

func NewPolicy(rules map[string][]string) *Policy {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	p := &Policy{rules: make(map[string]map[string]struct{}, len(rules))}
	for role, perms := range rules {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		p.rules[role] = set
	}
	return p
}

func (p *Policy) Allows(role, permission string) bool {
	perms, ok := p.rules[role]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}

func (p *Policy) HasPermission(_ context.Context, principal internal.Principal, permission string) (bool, error) {
	return p.Allows(principal.Role, permission), nil
}

// Permissions lists what role is granted, sorted.
func (p *Policy) Permissions(role string) []string {
	out := make([]string, 0, len(p.rules[role]))
	for perm := range p.rules[role] {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}
