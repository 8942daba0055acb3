package moyasar

import "github.com/lamsahq/lamsa-backend/pkg/enums"

// MapStatus translates Moyasar's status vocabulary into the internal payment
// status enum. Unknown statuses map to pending so a new provider status never
// fabricates a terminal transition.
func MapStatus(status string) enums.PaymentStatus {
	switch status {
	case "initiated":
		return enums.PaymentStatusPending
	case "authorized", "verified":
		return enums.PaymentStatusAuthorized
	case "paid", "captured":
		return enums.PaymentStatusPaid
	case "failed":
		return enums.PaymentStatusFailed
	case "voided":
		return enums.PaymentStatusCancelled
	case "refunded":
		return enums.PaymentStatusRefunded
	default:
		return enums.PaymentStatusPending
	}
}
