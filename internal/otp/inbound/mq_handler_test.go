package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	"github.com/K-Santhoshkumar/GS/internal/pkg/messaging"
)

type fakeMessage struct {
	body    []byte
	headers []messaging.Header
}

func (m fakeMessage) Body() []byte                { return m.body }
func (m fakeMessage) Key() []byte                 { return nil }
func (m fakeMessage) Headers() []messaging.Header { return m.headers }
func (m fakeMessage) Header(string) []byte        { return nil }
func (m fakeMessage) ID() string                  { return "1" }
func (m fakeMessage) Topic() string               { return "otp_delivery_requested" }
func (m fakeMessage) Timestamp() time.Time        { return time.Time{} }

func TestMQHandlerDeliveryRequested(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		consumeErr   error
		wantErr      bool
		wantConsumed int
	}{
		{name: "valid", body: `{"transaction_id":12,"attempt":3}`, wantConsumed: 1},
		{name: "malformed body is dropped", body: `{`, wantConsumed: 0},
		{name: "missing id is dropped", body: `{"attempt":3}`, wantConsumed: 0},
		{name: "usecase error is returned", body: `{"transaction_id":12}`, consumeErr: errors.New("db down"), wantErr: true, wantConsumed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			uc := &fakeUC{consumeErr: tt.consumeErr}
			h := &MQHandler{uc: uc, uuid: fixedID("generated"), ins: instrument.NewNoop()}
			msg := fakeMessage{body: []byte(tt.body), headers: []messaging.Header{{Key: "cID", Value: []byte("cid-1")}}}

			// Act
			err := h.DeliveryRequested(context.Background(), msg)

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("DeliveryRequested() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(uc.consumed) != tt.wantConsumed {
				t.Fatalf("consumed = %d, want %d", len(uc.consumed), tt.wantConsumed)
			}
			if tt.wantConsumed == 1 && uc.consumed[0].TransactionID != 12 {
				t.Fatalf("consumed = %+v", uc.consumed[0])
			}
		})
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	h := &MQHandler{uuid: fixedID("generated")}

	ctx := h.ensureCorrelationID(context.Background(), []messaging.Header{{Key: "cID", Value: []byte("from-header")}})
	if got := instrument.GetCorrelationID(ctx); got != "from-header" {
		t.Fatalf("correlation id = %q, want from-header", got)
	}

	ctx = h.ensureCorrelationID(context.Background(), nil)
	if got := instrument.GetCorrelationID(ctx); got != "generated" {
		t.Fatalf("correlation id = %q, want generated", got)
	}
}
