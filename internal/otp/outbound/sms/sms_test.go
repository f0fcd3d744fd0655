package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/K-Santhoshkumar/GS/internal/pkg/instrument"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeCreator struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

func TestTwilioSend(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		err   error
		want  bool
	}{
		{name: "sent", phone: "+15550001111", want: true},
		{name: "provider error", phone: "+15550001111", err: errors.New("21211 invalid to"), want: false},
		{name: "missing phone", phone: " ", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			api := &fakeCreator{err: tt.err}
			s := &Twilio{api: api, from: "+15559990000", ins: instrument.NewNoop()}

			// Act
			got := s.Send(context.Background(), tt.phone, "Your code is 123456")

			// Assert
			if got != tt.want {
				t.Fatalf("Send() = %v, want %v", got, tt.want)
			}
			if tt.phone == "+15550001111" && (api.params == nil || *api.params.To != tt.phone || *api.params.From != "+15559990000") {
				t.Fatalf("params not forwarded: %+v", api.params)
			}
		})
	}
}

func TestSimulated(t *testing.T) {
	if !(Simulated{}).Send(context.Background(), "+15550001111", "x") {
		t.Fatalf("simulated send must succeed")
	}
	if (Simulated{}).Send(context.Background(), "", "x") {
		t.Fatalf("simulated send without phone must fail")
	}
}

func TestMaskPhone(t *testing.T) {
	if got := maskPhone("+15550001111"); got != "********1111" {
		t.Fatalf("maskPhone() = %q", got)
	}
	if got := maskPhone("12"); got != "****" {
		t.Fatalf("maskPhone(short) = %q", got)
	}
}

func TestTwilioConfigEnabled(t *testing.T) {
	if (TwilioConfig{AccountSID: "AC1", AuthToken: "t"}).Enabled() {
		t.Fatalf("config without from number must be disabled")
	}
	if !(TwilioConfig{AccountSID: "AC1", AuthToken: "t", From: "+1"}).Enabled() {
		t.Fatalf("complete config must be enabled")
	}
}
