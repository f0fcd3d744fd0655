package valueobject

import (
	"errors"
	"testing"
)

func TestJSONMapValueNil(t *testing.T) {
	// Act
	v, err := JSONMap(nil).Value()

	// Assert
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if string(v.([]byte)) != "{}" {
		t.Fatalf("Value() = %s, want {}", v)
	}
}

func TestJSONMapScan(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		wantKey string
		wantLen int
		wantErr error
	}{
		{name: "bytes", in: []byte(`{"channel":"web"}`), wantKey: "web", wantLen: 1},
		{name: "string", in: `{"channel":"web"}`, wantKey: "web", wantLen: 1},
		{name: "nil", in: nil, wantLen: 0},
		{name: "json null", in: []byte(`null`), wantLen: 0},
		{name: "unsupported", in: 42, wantErr: ErrScanValueNotBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var m JSONMap

			// Act
			err := m.Scan(tt.in)

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Scan() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if len(m) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(m), tt.wantLen)
			}
			if m.GetString("channel") != tt.wantKey {
				t.Fatalf("channel = %q, want %q", m.GetString("channel"), tt.wantKey)
			}
		})
	}
}

func TestJSONMapClone(t *testing.T) {
	// Arrange
	src := JSONMap{"a": "1"}

	// Act
	dst := src.Clone()
	dst["a"] = "2"

	// Assert
	if src.GetString("a") != "1" {
		t.Fatalf("source mutated: %v", src)
	}
	if JSONMap(nil).Clone() != nil {
		t.Fatalf("Clone(nil) != nil")
	}
}
