package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	return out
}

func TestMaskHandlerMasksTopLevelAndJSONBody(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otp-service", "info", []string{"code", "Authorization"}, nil))

	// Act
	logger.Info("http request",
		"code", "123456",
		"authorization", "Bearer abc",
		"request_body", `{"email":"a@b.c","code":"654321"}`,
	)

	// Assert
	line := decodeLine(t, &buf)
	if line["code"] != maskedValue {
		t.Fatalf("code = %v, want masked", line["code"])
	}
	if line["authorization"] != maskedValue {
		t.Fatalf("authorization = %v, want masked", line["authorization"])
	}
	body, _ := line["request_body"].(string)
	if strings.Contains(body, "654321") || !strings.Contains(body, "a@b.c") {
		t.Fatalf("request_body = %q, want code masked and email kept", body)
	}
	if line["service"] != "otp-service" {
		t.Fatalf("service = %v", line["service"])
	}
}

func TestMaskHandlerMasksGroupsAndWithAttrs(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "svc", "info", []string{"code"}, nil)).With("code", "111111")

	// Act
	logger.Info("nested", slog.Group("otp", slog.String("code", "222222"), slog.String("purpose", "LOGIN")))

	// Assert
	out := buf.String()
	if strings.Contains(out, "111111") || strings.Contains(out, "222222") {
		t.Fatalf("log leaked code: %s", out)
	}
	if !strings.Contains(out, "LOGIN") {
		t.Fatalf("log dropped non-sensitive attr: %s", out)
	}
}

func TestContextHandlerAddsCorrelationID(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "svc", "debug", nil, nil))
	ctx := SetCorrelationID(context.Background(), "cid-1")

	// Act
	logger.DebugContext(ctx, "hello")

	// Assert
	line := decodeLine(t, &buf)
	if line["_cID"] != "cid-1" {
		t.Fatalf("_cID = %v, want cid-1", line["_cID"])
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("missing ts key: %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
