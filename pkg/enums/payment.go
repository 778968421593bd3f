package enums

import "fmt"

// PaymentMethod distinguishes cash-on-delivery from gateway payments.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

// IsValid reports whether the value is a supported payment method.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

// ParsePaymentMethod converts raw input into PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	switch PaymentMethod(value) {
	case PaymentMethodCOD:
		return PaymentMethodCOD, nil
	case PaymentMethodOnline:
		return PaymentMethodOnline, nil
	default:
		return "", fmt.Errorf("invalid payment method %q", value)
	}
}

// PaymentStatus tracks how far payment collection has progressed.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusCODPending PaymentStatus = "cod_pending"
	PaymentStatusSettled    PaymentStatus = "settled"
)

// IsValid reports whether the value matches the canonical payment status enum.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusCODPending, PaymentStatusSettled:
		return true
	default:
		return false
	}
}

// SettlementStatus tracks whether seller funds for an order were settled.
type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "pending"
	SettlementStatusSettled SettlementStatus = "settled"
)
