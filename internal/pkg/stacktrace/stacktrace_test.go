package stacktrace

import (
	"reflect"
	"testing"
)

func TestInternalPaths(t *testing.T) {
	// Arrange
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/K-Santhoshkumar/GS/internal/otp/usecase.(*Usecase).Verify(0xc000)
	/src/app/internal/otp/usecase/verify.go:42 +0x1a5
net/http.HandlerFunc.ServeHTTP(0x0)
	/usr/local/go/src/net/http/server.go:2220 +0x29
	/src/app/internal/pkg/router/router.go:151
`)

	// Act
	got := InternalPaths(stack)

	// Assert
	want := []string{
		"internal/otp/usecase/verify.go:42",
		"internal/pkg/router/router.go:151",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("InternalPaths() = %#v, want %#v", got, want)
	}
}
