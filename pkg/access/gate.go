// Package access decides whether a user may run a command.
package access

import (
	"errors"

	"github.com/plaenen/bidibip/pkg/command"
)

// ErrDenied signals that the invoker lacks the role a command requires.
// It is never shown to the user.
var ErrDenied = errors.New("access denied")

// RoleSet is the set of role identifiers held by a user.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from role identifiers.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		if role != "" {
			set[role] = struct{}{}
		}
	}
	return set
}

// Has reports whether role is in the set.
func (r RoleSet) Has(role string) bool {
	_, ok := r[role]
	return ok
}

// Gate evaluates command access requirements against a user's roles.
type Gate interface {
	Allows(roles RoleSet, requirement command.Access) bool
}

// RoleGate implements Gate with a single configured member role.
type RoleGate struct {
	memberRole string
}

// NewRoleGate creates a gate for the given member role identifier.
func NewRoleGate(memberRole string) *RoleGate {
	return &RoleGate{memberRole: memberRole}
}

// Allows implements Gate. Unknown requirements are denied.
func (g *RoleGate) Allows(roles RoleSet, requirement command.Access) bool {
	switch requirement {
	case command.AccessPublic:
		return true
	case command.AccessMemberOnly:
		return g.memberRole != "" && roles.Has(g.memberRole)
	default:
		return false
	}
}

// Check is Allows expressed as an error for callers that propagate it.
func Check(g Gate, roles RoleSet, requirement command.Access) error {
	if !g.Allows(roles, requirement) {
		return ErrDenied
	}
	return nil
}
