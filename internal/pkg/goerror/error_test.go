package goerror

import (
	"errors"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "server", err: NewServer(errors.New("boom")), want: http.StatusInternalServerError},
		{name: "too many", err: NewBusiness("slow down", CodeTooManyRequest), want: http.StatusTooManyRequests},
		{name: "unauthorized", err: NewBusiness("nope", CodeUnauthorized), want: http.StatusUnauthorized},
		{name: "forbidden", err: NewBusiness("nope", CodeForbidden), want: http.StatusForbidden},
		{name: "invalid input", err: NewInvalidInput(nil, "email", "bad"), want: http.StatusUnprocessableEntity},
		{name: "invalid format", err: NewInvalidFormat(), want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gerr *Error
			if !errors.As(tt.err, &gerr) {
				t.Fatalf("error is not *Error: %T", tt.err)
			}
			if got := gerr.StatusCode(); got != tt.want {
				t.Fatalf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewInvalidInputKeepsCauseAndFields(t *testing.T) {
	// Arrange
	cause := errors.New("recipient required")

	// Act
	err := NewInvalidInput(cause, "recipient", "is required")

	// Assert
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false")
	}
	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("error is not *Error")
	}
	if gerr.Fields()["recipient"] != "is required" {
		t.Fatalf("fields = %v", gerr.Fields())
	}
	if gerr.Msg() != "Validation error" {
		t.Fatalf("msg = %q", gerr.Msg())
	}
}

func TestNewInvalidInputOddPairs(t *testing.T) {
	var gerr *Error
	if !errors.As(NewInvalidInput(nil, "only-key"), &gerr) {
		t.Fatalf("error is not *Error")
	}
	if gerr.Code() != CodeInvalidFormat {
		t.Fatalf("code = %s, want %s", gerr.Code(), CodeInvalidFormat)
	}
}

func TestServerErrorHidesCause(t *testing.T) {
	var gerr *Error
	if !errors.As(NewServer(errors.New("pq: connection refused")), &gerr) {
		t.Fatalf("error is not *Error")
	}
	if gerr.Msg() != "Internal server error" {
		t.Fatalf("msg = %q", gerr.Msg())
	}
	if gerr.Type() != TypeServer {
		t.Fatalf("type = %s", gerr.Type())
	}
}
