package model

// Permission represents a string code for a specific admin action.
type Permission string

const (
	// PermissionQuestionsWrite allows managing passages, questions, buckets and choices.
	PermissionQuestionsWrite Permission = "questions:write"

	// PermissionVersionsRead allows viewing test versions and their resolved question sets.
	PermissionVersionsRead Permission = "versions:read"

	// PermissionVersionsPublish allows publishing a new current test version.
	PermissionVersionsPublish Permission = "versions:publish"

	// PermissionReportsRead allows viewing and exporting answer reports.
	PermissionReportsRead Permission = "reports:read"

	// PermissionStudentsWrite allows creating students and issuing enrolment keys.
	PermissionStudentsWrite Permission = "students:write"

	// PermissionStudentsRead allows viewing students and their stage history.
	PermissionStudentsRead Permission = "students:read"

	// PermissionMonitorRead allows attaching to the live key monitor.
	PermissionMonitorRead Permission = "monitor:read"
)

// AdminRole is the coarse role assigned to an admin account.
type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "SUPER_ADMIN"
	AdminRoleReviewer   AdminRole = "REVIEWER"
)

// RolePermissions maps each role to the permissions it grants.
var RolePermissions = map[AdminRole][]Permission{
	AdminRoleSuperAdmin: {
		PermissionQuestionsWrite,
		PermissionVersionsRead,
		PermissionVersionsPublish,
		PermissionReportsRead,
		PermissionStudentsWrite,
		PermissionStudentsRead,
		PermissionMonitorRead,
	},
	AdminRoleReviewer: {
		PermissionVersionsRead,
		PermissionReportsRead,
		PermissionStudentsRead,
		PermissionMonitorRead,
	},
}

// PermissionCodes returns the string codes granted to role.
func PermissionCodes(role AdminRole) []string {
	perms := RolePermissions[role]
	codes := make([]string, len(perms))
	for i, p := range perms {
		codes[i] = string(p)
	}
	return codes
}
