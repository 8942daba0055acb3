package tabby

import "github.com/lamsahq/lamsa-backend/pkg/enums"

// MapStatus translates Tabby's status vocabulary into the internal payment
// status enum. CLOSED with refunds attached is refined to a refund status by
// the caller based on amounts. Unknown statuses map to pending.
func MapStatus(status string) enums.PaymentStatus {
	switch status {
	case "CREATED":
		return enums.PaymentStatusPending
	case "AUTHORIZED":
		return enums.PaymentStatusAuthorized
	case "CLOSED":
		return enums.PaymentStatusPaid
	case "REJECTED":
		return enums.PaymentStatusFailed
	case "EXPIRED":
		return enums.PaymentStatusCancelled
	default:
		return enums.PaymentStatusPending
	}
}

// MapPaymentStatus maps a full payment, treating a CLOSED payment whose
// refunds cover the amount as refunded.
func MapPaymentStatus(payment *Payment) enums.PaymentStatus {
	status := MapStatus(payment.Status)
	if status != enums.PaymentStatusPaid {
		return status
	}
	refunded := payment.RefundedMinor()
	if refunded == 0 {
		return status
	}
	total, err := AmountToMinor(payment.Amount)
	if err != nil || refunded < total {
		return enums.PaymentStatusPartialRefund
	}
	return enums.PaymentStatusRefunded
}
