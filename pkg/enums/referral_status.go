package enums

import "fmt"

// ReferralStatus tracks the reward lifecycle of a referral.
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusRewarded  ReferralStatus = "rewarded"
)

var validReferralStatuses = []ReferralStatus{
	ReferralStatusPending,
	ReferralStatusCompleted,
	ReferralStatusRewarded,
}

// String implements fmt.Stringer.
func (r ReferralStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReferralStatus.
func (r ReferralStatus) IsValid() bool {
	for _, candidate := range validReferralStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReferralStatus converts raw input into a ReferralStatus.
func ParseReferralStatus(value string) (ReferralStatus, error) {
	for _, candidate := range validReferralStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid referral status %q", value)
}
