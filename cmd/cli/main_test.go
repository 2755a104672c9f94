package main

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/auth"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	out := captureOutput(t, func() {
		printJSON(struct {
			A int `json:"a"`
		}{A: 1})
	})

	expected := "{\n  \"a\": 1\n}\n"
	if out != expected {
		t.Fatalf("unexpected json output:\n%s", out)
	}
}

const receipt = `{
  "participants": [
    {"email": "alice@example.com", "payed": "9"},
    {"email": "Bob@Example.com", "payed": "0"},
    {"email": "carol@example.com", "payed": "0"}
  ],
  "products": [
    {"product": {"name": "Pizza"}, "quantity": 3, "unit_price": "3",
     "participants": ["alice@example.com", "bob@example.com", "carol@example.com"]}
  ]
}`

func TestSettleReceipt(t *testing.T) {
	edges, err := settleReceipt(strings.NewReader(receipt))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 debts, got %d", len(edges))
	}
	for _, e := range edges {
		if e.OwedTo != "alice@example.com" || e.Amount.StringFixed(2) != "3.00" {
			t.Fatalf("unexpected debt %+v", e)
		}
	}
}

func TestSettleReceiptErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"payments do not cover cost", strings.Replace(receipt, `"9"`, `"8"`, 1), domain.ErrPaymentInvalid},
		{"product for a stranger", strings.Replace(receipt, `"carol@example.com"]`, `"dave@example.com"]`, 1), domain.ErrParticipantNotFound},
		{"no participants", `{"participants": [], "products": []}`, domain.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := settleReceipt(strings.NewReader(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := settleReceipt(strings.NewReader("{")); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestSettleCmdJSON(t *testing.T) {
	cmd := settleCmd()
	cmd.SetIn(strings.NewReader(receipt))
	cmd.SetArgs([]string{"--json"})

	out := captureOutput(t, func() {
		if err := cmd.Execute(); err != nil {
			t.Fatalf("command failed: %v", err)
		}
	})

	if !strings.Contains(out, `"owed_by": "bob@example.com"`) || !strings.Contains(out, `"amount": "3.00"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTokenCmd(t *testing.T) {
	cmd := tokenCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--email", "Alice@Example.com", "--secret", "dev-secret", "--ttl", "1h"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("command failed: %v", err)
	}

	claims, err := auth.NewJWTManager("dev-secret", time.Hour).Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Profile().Email != "alice@example.com" {
		t.Fatalf("unexpected identity %q", claims.Profile().Email)
	}
}

func TestTokenCmdRequiresSecret(t *testing.T) {
	cmd := tokenCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--email", "alice@example.com", "--secret", ""})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without a secret")
	}
}

func TestCheckHealth(t *testing.T) {
	ready := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ready" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"postgres unhealthy"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}))
	defer srv.Close()

	timeout = time.Second

	out := captureOutput(t, func() {
		if err := checkHealth(srv.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(out, "Status: ready") {
		t.Fatalf("unexpected output %q", out)
	}

	ready = false
	if err := checkHealth(srv.URL); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected failure with status, got %v", err)
	}
}
