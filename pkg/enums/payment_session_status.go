package enums

// PaymentSessionStatus tracks a hosted checkout session from creation until an
// order exists for it.
type PaymentSessionStatus string

const (
	PaymentSessionInitiated        PaymentSessionStatus = "INITIATED"
	PaymentSessionPaidUnreconciled PaymentSessionStatus = "PAID_UNRECONCILED"
	PaymentSessionReconciled       PaymentSessionStatus = "RECONCILED"
	PaymentSessionFailed           PaymentSessionStatus = "FAILED"
)

var validPaymentSessionStatuses = []PaymentSessionStatus{
	PaymentSessionInitiated,
	PaymentSessionPaidUnreconciled,
	PaymentSessionReconciled,
	PaymentSessionFailed,
}

func (s PaymentSessionStatus) String() string {
	return string(s)
}

func (s PaymentSessionStatus) IsValid() bool {
	return known(s, validPaymentSessionStatuses)
}

// IsTerminal is true once the session can no longer change.
func (s PaymentSessionStatus) IsTerminal() bool {
	return s == PaymentSessionReconciled || s == PaymentSessionFailed
}

func ParsePaymentSessionStatus(value string) (PaymentSessionStatus, error) {
	return parse("payment session status", value, validPaymentSessionStatuses, nil)
}
