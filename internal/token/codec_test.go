package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/tesfahiwot/portal/internal/authz"
)

const testSecret = "test-secret-key-0123456789abcdef!"

func mintTestToken(t *testing.T, c *Codec, ttl time.Duration) string {
	t.Helper()
	raw, err := c.Mint("acct-1", "alice@example.org", "Alice", authz.RoleAdmin, ttl)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	return raw
}

func TestMintVerify_RoundTrip(t *testing.T) {
	c := NewCodec(testSecret)
	raw := mintTestToken(t, c, time.Hour)

	claims, ok := c.Verify(raw)
	if !ok {
		t.Fatal("expected token to verify")
	}
	if claims.Subject != "acct-1" {
		t.Errorf("expected subject acct-1, got %s", claims.Subject)
	}
	if claims.Email != "alice@example.org" {
		t.Errorf("expected email alice@example.org, got %s", claims.Email)
	}
	if claims.Name != "Alice" {
		t.Errorf("expected name Alice, got %s", claims.Name)
	}
	if authz.ParseRole(claims.Role) != authz.RoleAdmin {
		t.Errorf("expected ADMIN role, got %s", claims.Role)
	}
}

func TestVerify_Expired(t *testing.T) {
	c := NewCodec(testSecret)
	raw := mintTestToken(t, c, time.Hour)

	// Move the codec clock past expiry.
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, ok := c.Verify(raw); ok {
		t.Error("expected expired token to fail verification")
	}
}

func TestVerify_DifferentSecret(t *testing.T) {
	raw := mintTestToken(t, NewCodec(testSecret), time.Hour)

	other := NewCodec("a-completely-different-secret-key!!")
	if _, ok := other.Verify(raw); ok {
		t.Error("expected token signed with a different secret to fail")
	}
}

func TestVerify_TamperedRole(t *testing.T) {
	c := NewCodec(testSecret)
	raw := mintTestToken(t, c, time.Hour)

	// Re-encode the payload segment with the role escalated, keeping the
	// original signature. Verification must reject it.
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	tampered := strings.Replace(string(payload), `"ADMIN"`, `"SUPERADMIN"`, 1)
	if tampered == string(payload) {
		t.Fatal("payload did not contain the role to tamper with")
	}
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(tampered))

	if _, ok := c.Verify(strings.Join(parts, ".")); ok {
		t.Error("expected tampered token to fail verification")
	}
}

func TestVerify_Malformed(t *testing.T) {
	c := NewCodec(testSecret)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not a token", "hello"},
		{"two segments", "aaaa.bbbb"},
		{"four segments", "a.b.c.d"},
		{"garbage base64", "!!!.???.###"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := c.Verify(tt.raw); ok {
				t.Error("expected malformed token to fail verification")
			}
		})
	}
}

func TestVerify_RejectsUnsignedAlg(t *testing.T) {
	c := NewCodec(testSecret)

	// A classic "alg":"none" token must never verify, whatever its payload.
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"acct-1","role":"SUPERADMIN","exp":4102444800}`))

	if _, ok := c.Verify(header + "." + payload + "."); ok {
		t.Error("expected alg=none token to fail verification")
	}
}

func TestMint_RejectsNonPositiveTTL(t *testing.T) {
	c := NewCodec(testSecret)
	if _, err := c.Mint("acct-1", "a@b.c", "A", authz.RoleAdmin, 0); err == nil {
		t.Error("expected error for zero ttl")
	}
	if _, err := c.Mint("acct-1", "a@b.c", "A", authz.RoleAdmin, -time.Hour); err == nil {
		t.Error("expected error for negative ttl")
	}
}
