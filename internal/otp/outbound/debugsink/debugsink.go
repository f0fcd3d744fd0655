// Package debugsink exposes freshly generated codes to a developer: a banner
// on the console and a small file holding the latest code. It must only be
// wired when modules.otp.debug_sink.enabled is true.
package debugsink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/K-Santhoshkumar/GS/internal/otp/entity"
)

const DefaultPath = "LATEST_OTP.txt"

const timeLayout = "2006-01-02 15:04:05"

// Sink writes the plaintext code to the console and to path.
type Sink struct {
	mu   sync.Mutex
	out  io.Writer
	path string
}

func New(out io.Writer, path string) *Sink {
	if out == nil {
		out = os.Stdout
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	return &Sink{out: out, path: path}
}

func (s *Sink) Record(ctx context.Context, tx *entity.Transaction, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := tx.CreatedAt.Format(timeLayout)
	recipient := recipientOf(tx)
	border := strings.Repeat("!", 70)

	//nolint:errcheck // console output is best effort
	fmt.Fprintf(s.out, "\n%s\n!!! OTP GENERATED at %s !!!  Purpose: %s\n!!! RECIPIENT: %s\n!!! OTP CODE: %s\n%s\n\n",
		border, ts, tx.Purpose, recipient, code, border)

	content := fmt.Sprintf("OTP: %s\nEmail: %s\nPhone: %s\nType: %s\nTime: %s\n",
		code, orNA(tx.Email), orNA(tx.Phone), tx.Purpose, ts)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			slog.ErrorContext(ctx, "failed to create debug sink directory", "path", s.path, "error", err)
			return
		}
	}
	if err := os.WriteFile(s.path, []byte(content), 0o600); err != nil {
		slog.ErrorContext(ctx, "failed to write debug sink file", "path", s.path, "error", err)
	}
}

// Enabled reports true so callers may echo the code back in development responses.
func (s *Sink) Enabled() bool { return true }

// Noop is wired in every environment where the sink is disabled.
type Noop struct{}

func (Noop) Record(context.Context, *entity.Transaction, string) {}

func (Noop) Enabled() bool { return false }

func recipientOf(tx *entity.Transaction) string {
	switch {
	case tx.Email != "":
		return tx.Email
	case tx.Phone != "":
		return tx.Phone
	case tx.UserID != nil:
		return fmt.Sprintf("User #%d", *tx.UserID)
	default:
		return "Unknown"
	}
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
