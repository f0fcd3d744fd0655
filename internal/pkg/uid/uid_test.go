package uid

import (
	"testing"

	"github.com/google/uuid"
)

func TestSnowflakeIsUniqueAndIncreasing(t *testing.T) {
	// Arrange
	gen, err := NewSnowflake(1)
	if err != nil {
		t.Fatalf("NewSnowflake() error = %v", err)
	}

	// Act
	prev := gen.Generate()
	for range 1000 {
		next := gen.Generate()

		// Assert
		if next <= prev {
			t.Fatalf("Generate() = %d, want > %d", next, prev)
		}
		prev = next
	}
}

func TestNewSnowflakeRejectsBadNode(t *testing.T) {
	if _, err := NewSnowflake(4096); err == nil {
		t.Fatalf("NewSnowflake(4096) error = nil, want error")
	}
}

func TestUUIDGenerate(t *testing.T) {
	// Act
	id := NewUUID().Generate()

	// Assert
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("uuid.Parse(%q) error = %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("version = %d, want 7", parsed.Version())
	}
}
