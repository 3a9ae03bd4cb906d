package auth

import "campus/cmd/identity"

// Rule names an access-control decision from the rule table.
type Rule int

const (
	// RuleAnyAuthenticated allows every resolved actor.
	RuleAnyAuthenticated Rule = iota

	// RuleSelfOrAdmin allows the actor acting on itself, or any admin.
	RuleSelfOrAdmin

	// RuleAdminOnly allows admins.
	RuleAdminOnly

	// RuleTeacherOrAdmin allows teachers and admins.
	RuleTeacherOrAdmin
)

// Authorize applies the rule table. targetUserID is only consulted by
// RuleSelfOrAdmin; pass "" for the other rules. Anything the table does not
// allow is ErrForbidden.
func Authorize(a Actor, rule Rule, targetUserID string) error {
	switch rule {
	case RuleAnyAuthenticated:
		return nil
	case RuleSelfOrAdmin:
		if a.ID == targetUserID || a.Role == identity.RoleAdmin {
			return nil
		}
	case RuleAdminOnly:
		if a.Role == identity.RoleAdmin {
			return nil
		}
	case RuleTeacherOrAdmin:
		if a.Role == identity.RoleTeacher || a.Role == identity.RoleAdmin {
			return nil
		}
	}
	return ErrForbidden
}
