package enums

import "fmt"

// WalletTxnType classifies a single wallet balance adjustment.
type WalletTxnType string

const (
	WalletTxnTypeDebit      WalletTxnType = "debit"
	WalletTxnTypeCredit     WalletTxnType = "credit"
	WalletTxnTypeRecharge   WalletTxnType = "recharge"
	WalletTxnTypeRefund     WalletTxnType = "refund"
	WalletTxnTypeWithdrawal WalletTxnType = "withdrawal"
)

var validWalletTxnTypes = []WalletTxnType{
	WalletTxnTypeDebit,
	WalletTxnTypeCredit,
	WalletTxnTypeRecharge,
	WalletTxnTypeRefund,
	WalletTxnTypeWithdrawal,
}

// String implements fmt.Stringer.
func (t WalletTxnType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletTxnType.
func (t WalletTxnType) IsValid() bool {
	for _, candidate := range validWalletTxnTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTxnType converts raw input into a WalletTxnType.
func ParseWalletTxnType(value string) (WalletTxnType, error) {
	for _, candidate := range validWalletTxnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
