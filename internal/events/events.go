package events

// Billing event types written to the outbox.
const (
	EventChargePaid            = "charge.paid"
	EventChargeRefunded        = "charge.refunded"
	EventPrescriptionDispensed = "prescription.dispensed"
)

// ChargePaidPayload captures the minimal data downstream consumers need to
// react to a collected payment.
type ChargePaidPayload struct {
	ChargeID       string  `json:"charge_id"`
	ChargeNo       string  `json:"charge_no"`
	ChargeType     string  `json:"charge_type"`
	RegistrationID string  `json:"registration_id"`
	PaymentMethod  string  `json:"payment_method"`
	ActualAmount   string  `json:"actual_amount"`
	TransactionNo  *string `json:"transaction_no,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p ChargePaidPayload) ToMap() map[string]any {
	payload := map[string]any{
		"charge_id":       p.ChargeID,
		"charge_no":       p.ChargeNo,
		"charge_type":     p.ChargeType,
		"registration_id": p.RegistrationID,
		"payment_method":  p.PaymentMethod,
		"actual_amount":   p.ActualAmount,
	}
	if p.TransactionNo != nil {
		payload["transaction_no"] = *p.TransactionNo
	}
	return payload
}

// ChargeRefundedPayload captures the minimal data downstream consumers need
// to react to a refund.
type ChargeRefundedPayload struct {
	ChargeID       string `json:"charge_id"`
	ChargeNo       string `json:"charge_no"`
	ChargeType     string `json:"charge_type"`
	RegistrationID string `json:"registration_id"`
	RefundAmount   string `json:"refund_amount"`
	RefundReason   string `json:"refund_reason,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p ChargeRefundedPayload) ToMap() map[string]any {
	payload := map[string]any{
		"charge_id":       p.ChargeID,
		"charge_no":       p.ChargeNo,
		"charge_type":     p.ChargeType,
		"registration_id": p.RegistrationID,
		"refund_amount":   p.RefundAmount,
	}
	if p.RefundReason != "" {
		payload["refund_reason"] = p.RefundReason
	}
	return payload
}
