package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("test-secret", 8*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	issuer.WithNow(fixedClock(now))

	token, expiresAt, err := issuer.Issue("acct-1", "pm@agency.gov.ph", []string{"admin", "viewer"}, true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := now.Add(8 * time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, expiresAt)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "acct-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Email != "pm@agency.gov.ph" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin" {
		t.Fatalf("roles not preserved: %v", claims.Roles)
	}
	if !claims.IsSuperAdmin {
		t.Fatalf("superadmin flag not preserved")
	}
	if !claims.ExpiresAt.Time.Equal(expiresAt) {
		t.Fatalf("claims expiry %v != %v", claims.ExpiresAt.Time, expiresAt)
	}
}

func TestTokenDefaultTTL(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	if issuer.TTL() != DefaultTokenTTL {
		t.Fatalf("expected 8h default ttl, got %v", issuer.TTL())
	}
}

func TestTokenRejectionsAreUniform(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	issuer, _ := NewTokenIssuer("test-secret", time.Hour)
	issuer.WithNow(fixedClock(now))

	token, _, err := issuer.Issue("acct-1", "pm@agency.gov.ph", nil, false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := token[:len(token)-4] + "AAAA"
	other, _ := NewTokenIssuer("other-secret", time.Hour)
	otherToken, _, _ := other.Issue("acct-1", "pm@agency.gov.ph", nil, false)

	expiredIssuer, _ := NewTokenIssuer("test-secret", time.Hour)
	expiredIssuer.WithNow(fixedClock(now.Add(2 * time.Hour)))

	cases := map[string]error{}
	if _, err := issuer.Validate(""); err != nil {
		cases["empty"] = err
	}
	if _, err := issuer.Validate("not.a.jwt"); err != nil {
		cases["malformed"] = err
	}
	if _, err := issuer.Validate(tampered); err != nil {
		cases["tampered"] = err
	}
	if _, err := issuer.Validate(otherToken); err != nil {
		cases["wrong_secret"] = err
	}
	if _, err := expiredIssuer.Validate(token); err != nil {
		cases["expired"] = err
	}

	if len(cases) != 5 {
		t.Fatalf("expected every case to fail, got %d failures", len(cases))
	}
	for name, err := range cases {
		if err != ErrInvalidToken {
			t.Fatalf("case %s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestTokenRequiresSecretAndSubject(t *testing.T) {
	if _, err := NewTokenIssuer("  ", time.Hour); err == nil {
		t.Fatalf("expected error for blank secret")
	}
	issuer, _ := NewTokenIssuer("test-secret", time.Hour)
	if _, _, err := issuer.Issue("", "x@y.z", nil, false); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
