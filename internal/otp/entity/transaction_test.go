package entity

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func delivered(now time.Time) *Transaction {
	return &Transaction{
		ID:        1,
		Code:      "483920",
		Email:     "a@x.com",
		Purpose:   PurposeLogin,
		Status:    StatusDelivered,
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
}

func TestApplyVerifyAttempt(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		mutate       func(tx *Transaction)
		attempt      VerifyAttempt
		wantOutcome  VerifyOutcome
		wantStatus   Status
		wantAttempts int
		wantVerified bool
	}{
		{
			name:         "correct code invalidates on success",
			attempt:      VerifyAttempt{Code: "483920", MaxAttempts: 3, InvalidateOnSuccess: true, Now: now},
			wantOutcome:  VerifyOutcomeVerified,
			wantStatus:   StatusInvalidated,
			wantAttempts: 1,
			wantVerified: true,
		},
		{
			name:         "correct code keeps verified",
			attempt:      VerifyAttempt{Code: "483920", MaxAttempts: 3, Now: now},
			wantOutcome:  VerifyOutcomeVerified,
			wantStatus:   StatusVerified,
			wantAttempts: 1,
			wantVerified: true,
		},
		{
			name:         "expired before counting",
			attempt:      VerifyAttempt{Code: "483920", MaxAttempts: 3, Now: now.Add(10 * time.Minute)},
			wantOutcome:  VerifyOutcomeExpired,
			wantStatus:   StatusExpired,
			wantAttempts: 0,
		},
		{
			name: "expired with wrong code and recipient filter",
			attempt: VerifyAttempt{
				Code:        "000000",
				Filter:      RecipientFilter{Email: "a@x.com"},
				MaxAttempts: 3,
				Now:         now.Add(11 * time.Minute),
			},
			wantOutcome:  VerifyOutcomeExpired,
			wantStatus:   StatusExpired,
			wantAttempts: 0,
		},
		{
			name:         "wrong code counts attempt",
			attempt:      VerifyAttempt{Code: "000000", MaxAttempts: 3, Now: now},
			wantOutcome:  VerifyOutcomeMismatch,
			wantStatus:   StatusDelivered,
			wantAttempts: 1,
		},
		{
			name:         "attempts exhausted even with correct code",
			mutate:       func(tx *Transaction) { tx.Attempts = 3 },
			attempt:      VerifyAttempt{Code: "483920", MaxAttempts: 3, Now: now},
			wantOutcome:  VerifyOutcomeExhausted,
			wantStatus:   StatusInvalidated,
			wantAttempts: 4,
		},
		{
			name:         "created is not eligible",
			mutate:       func(tx *Transaction) { tx.Status = StatusCreated },
			attempt:      VerifyAttempt{Code: "483920", MaxAttempts: 3, Now: now},
			wantOutcome:  VerifyOutcomeNoMatch,
			wantStatus:   StatusCreated,
			wantAttempts: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			tx := delivered(now)
			if tt.mutate != nil {
				tt.mutate(tx)
			}

			// Act
			got := ApplyVerifyAttempt(tx, tt.attempt)

			// Assert
			if got != tt.wantOutcome {
				t.Fatalf("outcome = %s, want %s", got, tt.wantOutcome)
			}
			if tx.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", tx.Status, tt.wantStatus)
			}
			if tx.Attempts != tt.wantAttempts {
				t.Fatalf("attempts = %d, want %d", tx.Attempts, tt.wantAttempts)
			}
			if (tx.VerifiedAt != nil) != tt.wantVerified {
				t.Fatalf("verified_at = %v, want set=%v", tx.VerifiedAt, tt.wantVerified)
			}
		})
	}
}

func TestFourthWrongAttemptInvalidates(t *testing.T) {
	// Arrange
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tx := delivered(now)
	in := VerifyAttempt{Code: "111111", MaxAttempts: 3, Now: now}

	// Act
	var outcomes []VerifyOutcome
	for range 4 {
		outcomes = append(outcomes, ApplyVerifyAttempt(tx, in))
	}

	// Assert
	for i, o := range outcomes[:3] {
		if o != VerifyOutcomeMismatch {
			t.Fatalf("attempt %d outcome = %s, want mismatch", i+1, o)
		}
	}
	if outcomes[3] != VerifyOutcomeExhausted || tx.Status != StatusInvalidated {
		t.Fatalf("4th attempt outcome = %s status = %s", outcomes[3], tx.Status)
	}
	if got := ApplyVerifyAttempt(tx, VerifyAttempt{Code: "483920", MaxAttempts: 3, Now: now}); got != VerifyOutcomeNoMatch {
		t.Fatalf("after invalidation outcome = %s", got)
	}
}

func TestRecipientFilterMatches(t *testing.T) {
	tx := &Transaction{Email: "a@x.com", Phone: "+15550001", UserID: ptr(int64(7))}

	tests := []struct {
		name   string
		filter RecipientFilter
		want   bool
	}{
		{name: "empty", filter: RecipientFilter{}, want: true},
		{name: "email", filter: RecipientFilter{Email: "a@x.com"}, want: true},
		{name: "email mismatch", filter: RecipientFilter{Email: "b@x.com"}, want: false},
		{name: "all", filter: RecipientFilter{Email: "a@x.com", Phone: "+15550001", UserID: ptr(int64(7))}, want: true},
		{name: "user mismatch", filter: RecipientFilter{UserID: ptr(int64(8))}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tx); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}

	if !(RecipientFilter{}).IsEmpty() {
		t.Fatalf("empty filter must report IsEmpty")
	}
}

func TestRecipientFallback(t *testing.T) {
	tests := []struct {
		tx   Transaction
		want string
	}{
		{tx: Transaction{UserEmail: "u@x.com", Email: "a@x.com"}, want: "u@x.com"},
		{tx: Transaction{Email: "a@x.com", Phone: "+1555"}, want: "a@x.com"},
		{tx: Transaction{Phone: "+1555"}, want: "+1555"},
		{tx: Transaction{}, want: "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.tx.Recipient(); got != tt.want {
			t.Fatalf("Recipient() = %q, want %q", got, tt.want)
		}
	}
}

func TestEnums(t *testing.T) {
	if ParsePurpose(" password_reset ") != PurposePasswordReset {
		t.Fatalf("ParsePurpose should be case insensitive")
	}
	if ParsePurpose("nope") != PurposeUnknown || PurposeUnknown.IsValid() {
		t.Fatalf("unknown purpose must not be valid")
	}
	if PurposeSignup.Display() != "New Account Creation" {
		t.Fatalf("Display() = %q", PurposeSignup.Display())
	}

	methods := map[[2]string]DeliveryMethod{
		{"a@x.com", ""}:      DeliveryMethodEmail,
		{"", "+1555"}:        DeliveryMethodSMS,
		{"a@x.com", "+1555"}: DeliveryMethodBoth,
		{"", ""}:             DeliveryMethodEmail,
	}
	for in, want := range methods {
		if got := DeliveryMethodFor(in[0], in[1]); got != want {
			t.Fatalf("DeliveryMethodFor(%q, %q) = %s, want %s", in[0], in[1], got, want)
		}
	}

	for _, s := range []Status{StatusVerified, StatusExpired, StatusInvalidated} {
		if !s.IsTerminal() || s.IsLive() {
			t.Fatalf("%s must be terminal", s)
		}
	}
}
