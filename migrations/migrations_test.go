package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecer struct {
	scripts []string
	failOn  string
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if r.failOn != "" && strings.Contains(sql, r.failOn) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	r.scripts = append(r.scripts, sql)
	return pgconn.CommandTag{}, nil
}

func TestApplyRunsScriptsInOrder(t *testing.T) {
	// Arrange
	db := &recordingExecer{}

	// Act
	err := Apply(context.Background(), db)

	// Assert
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(db.scripts) != 2 {
		t.Fatalf("scripts = %d, want 2", len(db.scripts))
	}
	if !strings.Contains(db.scripts[0], "otp_transactions") || !strings.Contains(db.scripts[1], "otp_casbin_rules") {
		t.Fatalf("scripts applied out of order")
	}
}

func TestApplyStopsOnError(t *testing.T) {
	// Arrange
	db := &recordingExecer{failOn: "otp_transactions"}

	// Act
	err := Apply(context.Background(), db)

	// Assert
	if err == nil || !strings.Contains(err.Error(), "0001_otp_transactions.sql") {
		t.Fatalf("Apply() error = %v, want failing file name", err)
	}
	if len(db.scripts) != 0 {
		t.Fatalf("later scripts ran after failure")
	}
}
