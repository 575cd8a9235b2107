package enums

// UserRole is the coarse account role stored on users.role.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

var validUserRoles = []UserRole{UserRoleUser, UserRoleAdmin}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	return known(r, validUserRoles)
}

// ParseUserRole accepts the role case-insensitively.
func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, validUserRoles, upperTrimmed)
}
