package auth

// Authorize evaluates a required-role set against the principal. An empty
// requirement always allows. A superadmin principal passes unconditionally.
// Otherwise admission requires a non-empty intersection between the
// principal's role names and the requirement. The check assumes
// authentication already happened; it never grants identity.
func Authorize(requiredRoles []string, p Principal) bool {
	if len(requiredRoles) == 0 {
		return true
	}
	if p.IsSuperAdmin {
		return true
	}
	for _, required := range requiredRoles {
		if p.HasRole(required) {
			return true
		}
	}
	return false
}
