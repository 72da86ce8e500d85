package security

import (
	"testing"
	"time"
)

func TestPairTokenProvider_IssueAndValidate(t *testing.T) {
	p, err := NewTestPairTokenProvider()
	if err != nil {
		t.Fatalf("NewTestPairTokenProvider: %v", err)
	}
	token, jti, expiresAt, err := p.Issue("WA_TEST1", "+15551234567", "primary")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" || jti == "" || expiresAt.IsZero() {
		t.Fatal("Issue returned empty token, jti, or expiry")
	}
	sessionID, phone, channel, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sessionID != "WA_TEST1" {
		t.Errorf("sessionID = %q, want %q", sessionID, "WA_TEST1")
	}
	if phone != "+15551234567" {
		t.Errorf("phone = %q, want %q", phone, "+15551234567")
	}
	if channel != "primary" {
		t.Errorf("channel = %q, want %q", channel, "primary")
	}
}

func TestPairTokenProvider_Validate_RejectsGarbage(t *testing.T) {
	p, err := NewTestPairTokenProvider()
	if err != nil {
		t.Fatalf("NewTestPairTokenProvider: %v", err)
	}
	if _, _, _, err := p.Validate("not-a-token"); err == nil {
		t.Error("Validate should reject a malformed token")
	}
}

func TestPairTokenProvider_Validate_RejectsWrongIssuer(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	issuerA := NewPairTokenProvider(signer, pub, "issuer-a", "aud", time.Hour)
	issuerB := NewPairTokenProvider(signer, pub, "issuer-b", "aud", time.Hour)
	token, _, _, err := issuerA.Issue("s", "p", "sms")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, _, err := issuerB.Validate(token); err == nil {
		t.Error("Validate should reject a token from a different issuer")
	}
}
