package event

const OTPDeliveryRequestedDestination string = "otp_delivery_requested"
const OTPDeliveryRequestedConsumerOTP string = "otp_delivery_requested_otp"

// OTPDeliveryRequestedMessage asks a worker to (re)send an existing transaction.
// Attempt distinguishes deliberate resends from broker redeliveries.
type OTPDeliveryRequestedMessage struct {
	TransactionID int64 `json:"transaction_id"`
	Attempt       int64 `json:"attempt"`
}
