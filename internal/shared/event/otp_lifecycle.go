package event

import "time"

const OTPLifecycleDestination string = "otp_lifecycle"

const (
	OTPLifecycleGenerated   string = "generated"
	OTPLifecycleDelivered   string = "delivered"
	OTPLifecycleVerified    string = "verified"
	OTPLifecycleRejected    string = "rejected"
	OTPLifecycleInvalidated string = "invalidated"
)

// OTPLifecycleMessage never carries the code.
type OTPLifecycleMessage struct {
	Type           string    `json:"type"`
	TransactionID  int64     `json:"transaction_id,omitempty"`
	Purpose        string    `json:"purpose"`
	Status         string    `json:"status,omitempty"`
	DeliveryMethod string    `json:"delivery_method,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Count          int64     `json:"count,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
