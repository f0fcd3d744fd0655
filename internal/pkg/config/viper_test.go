package config

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

const sample = `
modules:
  otp:
    enabled: true
    expiry_minutes: 10
    max_attempts: 3
    consumer_names: "otp_delivery_requested_worker, otp_other"
    channels:
      - email
      - sms
app:
  server:
    read_timeout_seconds: 15
  labels: "team:auth,tier:core"
`

func TestViperFromBytes(t *testing.T) {
	// Arrange
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	// Act & Assert
	if !cfg.GetBool("modules.otp.enabled") {
		t.Fatalf("modules.otp.enabled = false, want true")
	}
	if got := cfg.GetMinute("modules.otp.expiry_minutes"); got != 10*time.Minute {
		t.Fatalf("GetMinute = %v, want 10m", got)
	}
	if got := cfg.GetSecond("app.server.read_timeout_seconds"); got != 15*time.Second {
		t.Fatalf("GetSecond = %v, want 15s", got)
	}
	if got := cfg.GetInt("modules.otp.max_attempts"); got != 3 {
		t.Fatalf("GetInt = %d, want 3", got)
	}
}

func TestViperGetArray(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	tests := []struct {
		name string
		key  string
		want []string
	}{
		{name: "comma separated", key: "modules.otp.consumer_names", want: []string{"otp_delivery_requested_worker", "otp_other"}},
		{name: "yaml list", key: "modules.otp.channels", want: []string{"email", "sms"}},
		{name: "missing", key: "modules.otp.nope", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.GetArray(tt.key); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("GetArray(%q) = %#v, want %#v", tt.key, got, tt.want)
			}
		})
	}
}

func TestViperGetMap(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	want := map[string]string{"team": "auth", "tier": "core"}
	if got := cfg.GetMap("app.labels"); !reflect.DeepEqual(got, want) {
		t.Fatalf("GetMap = %#v, want %#v", got, want)
	}
}

func TestViperEnvOverride(t *testing.T) {
	// Arrange
	t.Setenv("OTP_MODULES_OTP_MAX_ATTEMPTS", "5")
	cfg, err := NewViperFromBytes("yaml", []byte(sample))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	// Act
	got := cfg.GetInt("modules.otp.max_attempts")

	// Assert
	if got != 5 {
		t.Fatalf("GetInt = %d, want 5 from environment", got)
	}
}

func TestNewViperFromBytesRequiresType(t *testing.T) {
	if _, err := NewViperFromBytes(" ", nil); !errors.Is(err, ErrConfigTypeRequired) {
		t.Fatalf("err = %v, want ErrConfigTypeRequired", err)
	}
}
