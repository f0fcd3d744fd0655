package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

const testConfig = `
app:
  tz: UTC
  node_id: 7
  server:
    max_goroutine: 16
    http:
      address: "127.0.0.1:0"
      read_timeout_seconds: 5
      read_header_timeout_seconds: 5
      write_timeout_seconds: 5
      idle_timeout_seconds: 5
instrument:
  enabled: false
  log_level: error
  log_mask_fields: [code]
jwt:
  secret: %s
  issuer: gs-otp-test
  ttl_minutes: 5
database:
  url: ""
redis:
  url: ""
mail:
  host: ""
  from: no-reply@gs.test
messaging:
  driver: memory
modules:
  otp:
    enabled: true
    store: memory
    company_name: GS
    consumer_names: []
    debug_sink:
      enabled: true
      path: %s
`

func newTestApp(t *testing.T) (*App, string, string) {
	t.Helper()

	dir := t.TempDir()
	sinkPath := filepath.Join(dir, "LATEST_OTP.txt")
	cfgPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(testConfig, strings.Repeat("k", 64), sinkPath)
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("CONFIG_PATH", cfgPath)

	a := New()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	a.Serve(l)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.Stop(ctx)
	})

	return a, "http://" + l.Addr().String(), sinkPath
}

func post(t *testing.T, url string, body any) (int, map[string]any) {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return resp.StatusCode, out
}

func TestAppGenerateAndVerify(t *testing.T) {
	// Arrange
	_, base, sinkPath := newTestApp(t)

	// Act
	status, body := post(t, base+"/api/v1/otp/generate", map[string]any{
		"purpose": "LOGIN",
		"email":   "Jane@Example.com",
	})

	// Assert
	if status != http.StatusCreated {
		t.Fatalf("generate status = %d body = %v", status, body)
	}
	data := body["data"].(map[string]any)
	code, _ := data["code"].(string)
	if len(code) != 6 {
		t.Fatalf("generate code = %q, want 6 digits", code)
	}
	if data["delivery_method"] != "EMAIL" || data["delivered"] != true {
		t.Fatalf("generate data = %v", data)
	}

	sink, err := os.ReadFile(sinkPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(sink), "OTP: "+code) || !strings.Contains(string(sink), "Email: jane@example.com") {
		t.Fatalf("debug sink = %q", sink)
	}

	verify := map[string]any{"code": code, "purpose": "LOGIN", "email": "jane@example.com"}

	status, body = post(t, base+"/api/v1/otp/verify", verify)
	if status != http.StatusOK || body["data"].(map[string]any)["verified"] != true {
		t.Fatalf("first verify status = %d body = %v", status, body)
	}

	status, _ = post(t, base+"/api/v1/otp/verify", verify)
	if status != http.StatusUnauthorized {
		t.Fatalf("second verify status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestAppOperatorRoutesNeedToken(t *testing.T) {
	// Arrange
	_, base, _ := newTestApp(t)

	// Act
	resp, err := http.Get(base + "/api/v1/otp/transactions")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	// Assert
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestSeedPolicies(t *testing.T) {
	// Arrange
	m, err := model.NewModelFromString(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && (p.act == "*" || r.act == p.act)
`)
	if err != nil {
		t.Fatalf("NewModelFromString() error = %v", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	// Act
	err = seedPolicies(e, []string{
		"p, admin, otp.transactions, *",
		"p, support, otp.transactions, read",
		"g, lead, admin",
		"broken",
		"x, a, b, c",
	})

	// Assert
	if err != nil {
		t.Fatalf("seedPolicies() error = %v", err)
	}
	tests := []struct {
		sub, act string
		want     bool
	}{
		{sub: "admin", act: "invalidate", want: true},
		{sub: "lead", act: "deliver", want: true},
		{sub: "support", act: "read", want: true},
		{sub: "support", act: "deliver", want: false},
		{sub: "guest", act: "read", want: false},
	}
	for _, tt := range tests {
		got, err := e.Enforce(tt.sub, "otp.transactions", tt.act)
		if err != nil || got != tt.want {
			t.Fatalf("Enforce(%s, %s) = %v, %v, want %v", tt.sub, tt.act, got, err, tt.want)
		}
	}
}
