package inbound

import (
	"net/http"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
)

type GenerateRequest struct {
	Purpose            string         `json:"purpose"`
	Email              string         `json:"email,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	UserID             *int64         `json:"user_id,omitempty"`
	Length             int            `json:"length,omitempty"`
	ExpiryMinutes      int            `json:"expiry_minutes,omitempty"`
	InvalidateExisting bool           `json:"invalidate_existing,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

type GenerateResponse struct {
	TransactionID  int64     `json:"transaction_id,string"`
	DeliveryMethod string    `json:"delivery_method"`
	Delivered      bool      `json:"delivered"`
	ExpiresAt      time.Time `json:"expires_at"`
	Code           string    `json:"code,omitempty"`
}

func (GenerateResponse) StatusCode() int { return http.StatusCreated }

func (GenerateResponse) Message() string {
	return "OTP has been generated"
}

type VerifyRequest struct {
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	UserID  *int64 `json:"user_id,omitempty"`
	// KeepVerified leaves the record VERIFIED instead of INVALIDATED.
	KeepVerified bool `json:"keep_verified,omitempty"`
}

type VerifyResponse struct {
	Verified bool `json:"verified"`
}

func (VerifyResponse) Message() string {
	return "OTP verified successfully"
}

type InvalidateRequest struct {
	Purpose string `json:"purpose"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	UserID  *int64 `json:"user_id,omitempty"`
}

type InvalidateResponse struct {
	Invalidated int64 `json:"invalidated"`
}

func (InvalidateResponse) Message() string {
	return "OTP transactions have been invalidated"
}

type DeliverResponse struct {
	Queued    bool `json:"queued"`
	Delivered bool `json:"delivered"`
}

func (r DeliverResponse) StatusCode() int {
	if r.Queued {
		return http.StatusAccepted
	}
	return http.StatusOK
}

func (r DeliverResponse) Message() string {
	switch {
	case r.Queued:
		return "OTP delivery has been queued"
	case r.Delivered:
		return "OTP has been delivered"
	default:
		return "OTP delivery failed on every channel"
	}
}

type TransactionResponse struct {
	ID             int64          `json:"id,string"`
	Code           string         `json:"code"`
	Recipient      string         `json:"recipient"`
	Purpose        string         `json:"purpose"`
	Status         string         `json:"status"`
	DeliveryMethod string         `json:"delivery_method"`
	Attempts       int            `json:"attempts"`
	IPAddress      string         `json:"ip_address,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty"`
	AdditionalInfo map[string]any `json:"additional_info,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	VerifiedAt     *time.Time     `json:"verified_at,omitempty"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

type ListRecentResponse []TransactionResponse

func (r ListRecentResponse) Meta() map[string]any {
	return map[string]any{"count": len(r)}
}

func toTransactionResponse(tx entity.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             tx.ID,
		Code:           maskCode(tx.Code),
		Recipient:      tx.Recipient(),
		Purpose:        tx.Purpose.String(),
		Status:         tx.Status.String(),
		DeliveryMethod: tx.DeliveryMethod.String(),
		Attempts:       tx.Attempts,
		IPAddress:      tx.IPAddress,
		UserAgent:      tx.UserAgent,
		AdditionalInfo: tx.AdditionalInfo,
		CreatedAt:      tx.CreatedAt,
		SentAt:         tx.SentAt,
		VerifiedAt:     tx.VerifiedAt,
		ExpiresAt:      tx.ExpiresAt,
	}
}

// maskCode keeps the last two digits.
func maskCode(code string) string {
	if len(code) <= 2 {
		return "****"
	}
	masked := make([]byte, len(code))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(code)-2:], code[len(code)-2:])
	return string(masked)
}
