package enums

import "fmt"

// ClientRole identifies the kind of display a realtime client is.
type ClientRole string

const (
	ClientRolePOS             ClientRole = "pos"
	ClientRoleCustomerDisplay ClientRole = "customer_display"
	ClientRoleKitchenDisplay  ClientRole = "kitchen_display"
)

var validClientRoles = []ClientRole{
	ClientRolePOS,
	ClientRoleCustomerDisplay,
	ClientRoleKitchenDisplay,
}

// String implements fmt.Stringer.
func (r ClientRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ClientRole.
func (r ClientRole) IsValid() bool {
	for _, candidate := range validClientRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseClientRole converts raw input into a ClientRole.
func ParseClientRole(value string) (ClientRole, error) {
	for _, candidate := range validClientRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid client role %q", value)
}
