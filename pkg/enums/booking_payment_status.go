package enums

import "fmt"

// BookingPaymentStatus mirrors the settled state a booking shows its owners.
type BookingPaymentStatus string

const (
	BookingPaymentStatusUnpaid   BookingPaymentStatus = "unpaid"
	BookingPaymentStatusPending  BookingPaymentStatus = "pending"
	BookingPaymentStatusPaid     BookingPaymentStatus = "paid"
	BookingPaymentStatusRefunded BookingPaymentStatus = "refunded"
)

var validBookingPaymentStatuses = []BookingPaymentStatus{
	BookingPaymentStatusUnpaid,
	BookingPaymentStatusPending,
	BookingPaymentStatusPaid,
	BookingPaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (b BookingPaymentStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingPaymentStatus.
func (b BookingPaymentStatus) IsValid() bool {
	for _, candidate := range validBookingPaymentStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBookingPaymentStatus converts raw input into a BookingPaymentStatus.
func ParseBookingPaymentStatus(value string) (BookingPaymentStatus, error) {
	for _, candidate := range validBookingPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking payment status %q", value)
}
