package entity

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/pkg/valueobject"
)

var (
	// ErrRecipientRequired is returned when none of email, phone or user resolves to a recipient.
	ErrRecipientRequired = errors.New("otp: at least one of email, phone or user is required")
)

// Transaction is one issued code and its lifecycle.
type Transaction struct {
	ID             int64
	Code           string
	Email          string
	Phone          string
	UserID         *int64
	UserEmail      string // joined from otp_users, read only
	Purpose        Purpose
	Status         Status
	DeliveryMethod DeliveryMethod
	Attempts       int
	IPAddress      string
	UserAgent      string
	AdditionalInfo valueobject.JSONMap
	CreatedAt      time.Time
	SentAt         *time.Time
	VerifiedAt     *time.Time
	ExpiresAt      time.Time
}

// Recipient is the display recipient: user email, then email, then phone.
func (t *Transaction) Recipient() string {
	switch {
	case t.UserEmail != "":
		return t.UserEmail
	case t.Email != "":
		return t.Email
	case t.Phone != "":
		return t.Phone
	default:
		return "Unknown"
	}
}

// IsExpired reports whether now is at or past expires_at.
func (t *Transaction) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RecipientFilter narrows lookups; empty fields are ignored.
type RecipientFilter struct {
	Email  string
	Phone  string
	UserID *int64
}

func (f RecipientFilter) IsEmpty() bool {
	return f.Email == "" && f.Phone == "" && f.UserID == nil
}

// Matches reports whether every supplied field equals the transaction's.
func (f RecipientFilter) Matches(t *Transaction) bool {
	if f.Email != "" && f.Email != t.Email {
		return false
	}
	if f.Phone != "" && f.Phone != t.Phone {
		return false
	}
	if f.UserID != nil && (t.UserID == nil || *t.UserID != *f.UserID) {
		return false
	}
	return true
}

// VerifyAttempt is one submitted code plus the rules it is judged under.
type VerifyAttempt struct {
	Code                string
	Purpose             Purpose
	Filter              RecipientFilter
	MaxAttempts         int
	InvalidateOnSuccess bool
	Now                 time.Time
}

// VerifyOutcome tells why a verification ended the way it did. It is only
// used for logging and metrics; callers see a bool.
type VerifyOutcome string

const (
	VerifyOutcomeNoMatch   VerifyOutcome = "no_match"
	VerifyOutcomeVerified  VerifyOutcome = "verified"
	VerifyOutcomeExpired   VerifyOutcome = "expired"
	VerifyOutcomeExhausted VerifyOutcome = "attempts_exceeded"
	VerifyOutcomeMismatch  VerifyOutcome = "code_mismatch"
)

// VerifyResult is what a store reports after applying an attempt.
type VerifyResult struct {
	TransactionID int64
	Status        Status
	Attempts      int
	Outcome       VerifyOutcome
}

func (r VerifyResult) OK() bool { return r.Outcome == VerifyOutcomeVerified }

// ApplyVerifyAttempt mutates t according to the verification rules and
// reports the outcome. Expiry is checked before attempts are counted.
// Only DELIVERED transactions are eligible.
func ApplyVerifyAttempt(t *Transaction, in VerifyAttempt) VerifyOutcome {
	if t == nil || t.Status != StatusDelivered {
		return VerifyOutcomeNoMatch
	}

	if t.IsExpired(in.Now) {
		t.Status = StatusExpired
		return VerifyOutcomeExpired
	}

	t.Attempts++
	if t.Attempts > in.MaxAttempts {
		t.Status = StatusInvalidated
		return VerifyOutcomeExhausted
	}

	if subtle.ConstantTimeCompare([]byte(t.Code), []byte(in.Code)) != 1 {
		return VerifyOutcomeMismatch
	}

	now := in.Now
	t.VerifiedAt = &now
	t.Status = StatusVerified
	if in.InvalidateOnSuccess {
		t.Status = StatusInvalidated
	}
	return VerifyOutcomeVerified
}
