package enums

import "fmt"

// CreditTransactionType classifies entries in the expiring marketing-credit pool.
type CreditTransactionType string

const (
	CreditTransactionTypeWelcomeBonus     CreditTransactionType = "welcome_bonus"
	CreditTransactionTypeReferralReward   CreditTransactionType = "referral_reward"
	CreditTransactionTypeLoyaltyCashback  CreditTransactionType = "loyalty_cashback"
	CreditTransactionTypeAdminCredit      CreditTransactionType = "admin_credit"
	CreditTransactionTypeBookingDeduction CreditTransactionType = "booking_deduction"
	CreditTransactionTypeExpired          CreditTransactionType = "expired"
)

var validCreditTransactionTypes = []CreditTransactionType{
	CreditTransactionTypeWelcomeBonus,
	CreditTransactionTypeReferralReward,
	CreditTransactionTypeLoyaltyCashback,
	CreditTransactionTypeAdminCredit,
	CreditTransactionTypeBookingDeduction,
	CreditTransactionTypeExpired,
}

// String implements fmt.Stringer.
func (c CreditTransactionType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CreditTransactionType.
func (c CreditTransactionType) IsValid() bool {
	for _, candidate := range validCreditTransactionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsGrant reports whether the entry adds spendable credit.
func (c CreditTransactionType) IsGrant() bool {
	switch c {
	case CreditTransactionTypeWelcomeBonus,
		CreditTransactionTypeReferralReward,
		CreditTransactionTypeLoyaltyCashback,
		CreditTransactionTypeAdminCredit:
		return true
	}
	return false
}

// ParseCreditTransactionType converts raw input into a CreditTransactionType.
func ParseCreditTransactionType(value string) (CreditTransactionType, error) {
	for _, candidate := range validCreditTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit transaction type %q", value)
}
