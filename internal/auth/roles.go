package auth

// Role is the access level carried in the token's role claim.
type Role string

const (
	// RoleViewer reads the alert banner, the cached forecast and commute records.
	RoleViewer Role = "viewer"
	// RoleOperator may also force a forecast refresh and download commute reports.
	RoleOperator Role = "operator"
	// RoleAdmin is reserved for tooling and satisfies every route.
	RoleAdmin Role = "admin"
)

// roleRanks orders roles; a higher rank satisfies every lower requirement.
var roleRanks = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// NormalizeRole reports whether value names a known role.
func NormalizeRole(value string) (Role, bool) {
	role := Role(value)
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// RoleAtLeast reports whether role satisfies required. Unknown roles satisfy nothing.
func RoleAtLeast(role Role, required Role) bool {
	rank, ok := roleRanks[role]
	if !ok {
		return false
	}
	return rank >= roleRanks[required]
}
