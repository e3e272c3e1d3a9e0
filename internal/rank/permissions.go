package rank

// Permission is a capability token checked by privileged handlers.
type Permission string

const (
	PermViewUsers               Permission = "VIEW_USERS"
	PermEditUsers               Permission = "EDIT_USERS"
	PermDeleteUsers             Permission = "DELETE_USERS"
	PermAddUsers                Permission = "ADD_USERS"
	PermViewAllSessions         Permission = "VIEW_ALL_SESSIONS"
	PermForceLogoutUsers        Permission = "FORCE_LOGOUT_USERS"
	PermViewErrorLogs           Permission = "VIEW_ERROR_LOGS"
	PermConfigureSessionTimeout Permission = "CONFIGURE_SESSION_TIMEOUT"
	PermViewLoginHistory        Permission = "VIEW_LOGIN_HISTORY"
)

// permissions is the authored capability table. Each rank's set is written
// out in full; seniority does not imply inheritance.
var permissions = map[Rank]map[Permission]bool{
	Developer: {
		PermViewUsers:               true,
		PermEditUsers:               true,
		PermDeleteUsers:             true,
		PermAddUsers:                true,
		PermViewAllSessions:         true,
		PermForceLogoutUsers:        true,
		PermViewErrorLogs:           true,
		PermConfigureSessionTimeout: true,
		PermViewLoginHistory:        true,
	},
	Admin: {
		PermViewUsers:               true,
		PermEditUsers:               true,
		PermDeleteUsers:             true,
		PermAddUsers:                true,
		PermViewAllSessions:         true,
		PermForceLogoutUsers:        true,
		PermConfigureSessionTimeout: true,
		PermViewLoginHistory:        true,
	},
	Moderator: {
		PermViewUsers:        true,
		PermEditUsers:        true,
		PermViewAllSessions:  true,
		PermViewLoginHistory: true,
	},
	Werknemer: {
		PermViewUsers: true,
	},
	Gebruiker: {},
}

// HasPermission reports whether rank holds perm. Unknown ranks hold nothing.
// Route guards pass the actual rank here; simulation never changes the set.
func HasPermission(r Rank, perm Permission) bool {
	return permissions[r][perm]
}

// Permissions returns the capability set of r, for presentation (e.g. /auth/me).
func Permissions(r Rank) []Permission {
	set := permissions[r]
	out := make([]Permission, 0, len(set))
	for _, p := range []Permission{
		PermViewUsers, PermEditUsers, PermDeleteUsers, PermAddUsers,
		PermViewAllSessions, PermForceLogoutUsers, PermViewErrorLogs,
		PermConfigureSessionTimeout, PermViewLoginHistory,
	} {
		if set[p] {
			out = append(out, p)
		}
	}
	return out
}
