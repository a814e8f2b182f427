package auth

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewTokenShape(t *testing.T) {
	token, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	if !strings.HasPrefix(token, "scribe_") {
		t.Errorf("expected scribe_ prefix, got %q", token)
	}
	if len(token) != len("scribe_")+48 {
		t.Errorf("unexpected token length %d", len(token))
	}
	if err := Validate(token); err != nil {
		t.Errorf("freshly issued token failed validation: %v", err)
	}
}

func TestNewTokenIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken failed: %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	a := HashToken("scribe_abc")
	b := HashToken("scribe_abc")
	if a != b {
		t.Errorf("same input hashed differently: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256 length 64, got %d", len(a))
	}
	if HashToken("scribe_xyz") == a {
		t.Error("different inputs produced the same hash")
	}
}

func TestDisplayPrefix(t *testing.T) {
	if got := DisplayPrefix("scribe_abcdefghij"); got != "scribe_abcde" {
		t.Errorf("expected scribe_abcde, got %q", got)
	}
	if got := DisplayPrefix("short"); got != "short" {
		t.Errorf("short values pass through, got %q", got)
	}
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	for _, raw := range []string{"", "bearer_abc", "sk-12345", "SCRIBE_abc"} {
		if err := Validate(raw); err == nil {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/drafts", nil)
	r.Header.Set("Authorization", "Bearer scribe_abc")
	if got := BearerToken(r); got != "scribe_abc" {
		t.Errorf("expected scribe_abc, got %q", got)
	}

	r = httptest.NewRequest("GET", "/api/drafts", nil)
	if got := BearerToken(r); got != "" {
		t.Errorf("expected empty token without header, got %q", got)
	}

	r = httptest.NewRequest("GET", "/api/drafts", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := BearerToken(r); got != "" {
		t.Errorf("expected empty token for non-bearer scheme, got %q", got)
	}
}

func TestLimiterPoolBurst(t *testing.T) {
	pool := NewLimiterPool(1, 3)

	for i := 0; i < 3; i++ {
		if !pool.Allow("key-1") {
			t.Fatalf("request %d within burst was denied", i+1)
		}
	}
	if pool.Allow("key-1") {
		t.Error("expected denial once the burst is spent")
	}
	// Other keys have their own budget.
	if !pool.Allow("key-2") {
		t.Error("expected a fresh key to be allowed")
	}
}
