package enums

import "fmt"

// WalletRole identifies which side of the marketplace owns a wallet.
// Every actor holds at most one wallet per role.
type WalletRole string

const (
	WalletRoleConsumer WalletRole = "consumer"
	WalletRoleVendor   WalletRole = "vendor"
)

var validWalletRoles = []WalletRole{
	WalletRoleConsumer,
	WalletRoleVendor,
}

// String implements fmt.Stringer.
func (r WalletRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known WalletRole.
func (r WalletRole) IsValid() bool {
	for _, candidate := range validWalletRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseWalletRole converts raw input into a WalletRole.
func ParseWalletRole(value string) (WalletRole, error) {
	for _, candidate := range validWalletRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet role %q", value)
}
