package entity

// Role names
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
	RoleNurse  = "nurse"
)

// ValidRoles lists every role a user can be issued with.
var ValidRoles = []string{RoleAdmin, RoleDoctor, RoleNurse}
