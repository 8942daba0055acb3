package enums

import "fmt"

// ReferenceType is the polymorphic back-reference carried by ledger entries.
type ReferenceType string

const (
	ReferenceTypeBooking      ReferenceType = "booking"
	ReferenceTypeSubscription ReferenceType = "subscription"
	ReferenceTypeReferral     ReferenceType = "referral"
	ReferenceTypeRefund       ReferenceType = "refund"
	ReferenceTypePayment      ReferenceType = "payment"
)

var validReferenceTypes = []ReferenceType{
	ReferenceTypeBooking,
	ReferenceTypeSubscription,
	ReferenceTypeReferral,
	ReferenceTypeRefund,
	ReferenceTypePayment,
}

// String implements fmt.Stringer.
func (r ReferenceType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReferenceType.
func (r ReferenceType) IsValid() bool {
	for _, candidate := range validReferenceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReferenceType converts raw input into a ReferenceType.
func ParseReferenceType(value string) (ReferenceType, error) {
	for _, candidate := range validReferenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q", value)
}
