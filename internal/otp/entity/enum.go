package entity

import "strings"

// Purpose is why a code was issued. Stored as SMALLINT.
type Purpose int16

const (
	PurposeUnknown                 Purpose = 0
	PurposeLogin                   Purpose = 1
	PurposeSignup                  Purpose = 2
	PurposePasswordReset           Purpose = 3
	PurposeEmailVerification       Purpose = 4
	PurposeTransactionVerification Purpose = 5
	PurposeProfileUpdate           Purpose = 6
	PurposeOther                   Purpose = 7
)

var purposeNames = map[Purpose]string{
	PurposeLogin:                   "LOGIN",
	PurposeSignup:                  "SIGNUP",
	PurposePasswordReset:           "PASSWORD_RESET",
	PurposeEmailVerification:       "EMAIL_VERIFICATION",
	PurposeTransactionVerification: "TRANSACTION_VERIFICATION",
	PurposeProfileUpdate:           "PROFILE_UPDATE",
	PurposeOther:                   "OTHER",
}

var purposeDisplay = map[Purpose]string{
	PurposeLogin:                   "Login Authentication",
	PurposeSignup:                  "New Account Creation",
	PurposePasswordReset:           "Password Reset",
	PurposeEmailVerification:       "Email Verification",
	PurposeTransactionVerification: "Transaction Verification",
	PurposeProfileUpdate:           "Profile Update",
	PurposeOther:                   "Other Purpose",
}

func (p Purpose) String() string {
	if name, ok := purposeNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// Display is the human readable name used in messages.
func (p Purpose) Display() string {
	if name, ok := purposeDisplay[p]; ok {
		return name
	}
	return purposeDisplay[PurposeOther]
}

func (p Purpose) IsValid() bool {
	_, ok := purposeNames[p]
	return ok
}

// ParsePurpose accepts the wire name in any case, e.g. "login" or "PASSWORD_RESET".
func ParsePurpose(raw string) Purpose {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for p, name := range purposeNames {
		if name == raw {
			return p
		}
	}
	return PurposeUnknown
}

// Status is the lifecycle state of a transaction. Stored as SMALLINT.
type Status int16

const (
	StatusUnknown     Status = 0
	StatusCreated     Status = 1
	StatusDelivered   Status = 2
	StatusVerified    Status = 3
	StatusExpired     Status = 4
	StatusInvalidated Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusDelivered:
		return "DELIVERED"
	case StatusVerified:
		return "VERIFIED"
	case StatusExpired:
		return "EXPIRED"
	case StatusInvalidated:
		return "INVALIDATED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusVerified, StatusExpired, StatusInvalidated:
		return true
	default:
		return false
	}
}

// IsLive reports whether the record can still be delivered or invalidated.
func (s Status) IsLive() bool {
	return s == StatusCreated || s == StatusDelivered
}

// DeliveryMethod is the channel set used to send a code. Stored as SMALLINT.
type DeliveryMethod int16

const (
	DeliveryMethodUnknown DeliveryMethod = 0
	DeliveryMethodEmail   DeliveryMethod = 1
	DeliveryMethodSMS     DeliveryMethod = 2
	DeliveryMethodBoth    DeliveryMethod = 3
)

func (d DeliveryMethod) String() string {
	switch d {
	case DeliveryMethodEmail:
		return "EMAIL"
	case DeliveryMethodSMS:
		return "SMS"
	case DeliveryMethodBoth:
		return "BOTH"
	default:
		return "UNKNOWN"
	}
}

func (d DeliveryMethod) UsesEmail() bool { return d == DeliveryMethodEmail || d == DeliveryMethodBoth }

func (d DeliveryMethod) UsesSMS() bool { return d == DeliveryMethodSMS || d == DeliveryMethodBoth }

// DeliveryMethodFor derives the channel set from the recipient fields.
// A user-only recipient falls back to EMAIL.
func DeliveryMethodFor(email, phone string) DeliveryMethod {
	switch {
	case email != "" && phone != "":
		return DeliveryMethodBoth
	case phone != "":
		return DeliveryMethodSMS
	default:
		return DeliveryMethodEmail
	}
}
