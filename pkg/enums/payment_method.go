package enums

import "fmt"

// PaymentMethod identifies how a payment's gateway leg is routed. Wallet-only
// payments carry no gateway leg at all.
type PaymentMethod string

const (
	PaymentMethodWallet  PaymentMethod = "wallet"
	PaymentMethodMoyasar PaymentMethod = "moyasar"
	PaymentMethodTabby   PaymentMethod = "tabby"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodWallet,
	PaymentMethodMoyasar,
	PaymentMethodTabby,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsGateway reports whether the method routes money through an external provider.
func (p PaymentMethod) IsGateway() bool {
	return p == PaymentMethodMoyasar || p == PaymentMethodTabby
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
