package auth

import "github.com/kaokai/furniture-backend/pkg/enums"

// Capability is a coarse permission checked at the HTTP edge.
type Capability string

const (
	CapabilityRead  Capability = "read"
	CapabilityWrite Capability = "write"
	CapabilityAdmin Capability = "admin"
)

var capabilitiesByRole = map[enums.UserRole][]Capability{
	enums.UserRoleUser:  {CapabilityRead, CapabilityWrite},
	enums.UserRoleAdmin: {CapabilityRead, CapabilityWrite, CapabilityAdmin},
}

// CapabilitiesFor returns the capability set granted to role. Unknown roles
// get nothing.
func CapabilitiesFor(role enums.UserRole) []Capability {
	caps := capabilitiesByRole[role]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// HasCapability reports whether role grants capability.
func HasCapability(role enums.UserRole, capability Capability) bool {
	for _, c := range capabilitiesByRole[role] {
		if c == capability {
			return true
		}
	}
	return false
}
