package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestManagerCollectsErrors(t *testing.T) {
	// Arrange
	m := NewManager(4)
	errBoom := errors.New("boom")
	var ran atomic.Int32

	// Act
	m.Go(context.Background(), func(context.Context) error {
		ran.Add(1)
		return errBoom
	})
	m.Go(context.Background(), func(context.Context) error {
		ran.Add(1)
		return nil
	})
	err := m.Wait()

	// Assert
	if ran.Load() != 2 {
		t.Fatalf("ran = %d, want 2", ran.Load())
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("Wait() = %v, want errBoom", err)
	}
}

func TestManagerRecoversPanic(t *testing.T) {
	// Arrange
	m := NewManager(1)

	// Act
	started := m.Go(context.Background(), func(context.Context) error {
		panic("kaboom")
	})
	err := m.Wait()

	// Assert
	if !started {
		t.Fatalf("Go() = false, want true")
	}
	if err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
}

func TestManagerRejectsAfterWait(t *testing.T) {
	// Arrange
	m := NewManager(1)
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}

	// Act
	started := m.Go(context.Background(), func(context.Context) error { return nil })

	// Assert
	if started {
		t.Fatalf("Go() after Wait = true, want false")
	}
}

func TestManagerSaturated(t *testing.T) {
	// Arrange
	m := NewManager(1)
	release := make(chan struct{})
	entered := make(chan struct{})
	m.Go(context.Background(), func(context.Context) error {
		close(entered)
		<-release
		return nil
	})
	<-entered

	// Act
	started := m.Go(context.Background(), func(context.Context) error { return nil })
	close(release)

	// Assert
	if started {
		t.Fatalf("Go() while saturated = true, want false")
	}
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
}
