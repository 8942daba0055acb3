package payments

import "github.com/lamsahq/lamsa-backend/pkg/enums"

// legalTransitions is the payment status adjacency list. Anything not listed
// here is rejected: logged by the caller, never applied.
var legalTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {
		enums.PaymentStatusAuthorized,
		enums.PaymentStatusPaid,
		enums.PaymentStatusFailed,
		enums.PaymentStatusCancelled,
	},
	enums.PaymentStatusAuthorized: {
		enums.PaymentStatusPaid,
		enums.PaymentStatusCancelled,
	},
	enums.PaymentStatusPaid: {
		enums.PaymentStatusPartialRefund,
		enums.PaymentStatusRefunded,
	},
	enums.PaymentStatusPartialRefund: {
		enums.PaymentStatusRefunded,
	},
}

// CanTransition reports whether moving from one payment status to another is
// legal. Same-status "transitions" are not legal; callers treat them as
// no-ops before consulting the state machine.
func CanTransition(from, to enums.PaymentStatus) bool {
	for _, candidate := range legalTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
