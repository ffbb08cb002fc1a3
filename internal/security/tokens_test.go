package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, exp, err := p.Issue("ops@example.com", RoleOperator)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "ops@example.com" {
		t.Errorf("Subject = %q, want ops@example.com", claims.Subject)
	}
	if !claims.HasRole(RoleOperator) || claims.HasRole(RoleService) {
		t.Errorf("Roles = %v, want [operator]", claims.Roles)
	}
}

func TestTokenProvider_ValidateRejects(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	signer, pub, err := LoadKeys(testPrivateKeyPEM, testPublicKeyPEM)
	if err != nil {
		t.Fatalf("LoadKeys: %v", err)
	}
	otherIssuer := NewTokenProvider(signer, pub, "someone-else", "test-audience", time.Minute)
	otherAudience := NewTokenProvider(signer, pub, "test-issuer", "other-api", time.Minute)
	expired := NewTokenProvider(signer, pub, "test-issuer", "test-audience", -time.Minute)

	testCases := []struct {
		name   string
		issuer *TokenProvider
	}{
		{"wrong issuer", otherIssuer},
		{"wrong audience", otherAudience},
		{"expired", expired},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, _, err := tc.issuer.Issue("svc", RoleService)
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}
			if _, err := p.Validate(token); err != ErrInvalidToken {
				t.Errorf("Validate err = %v, want ErrInvalidToken", err)
			}
		})
	}

	if _, err := p.Validate("invalid-token"); err != ErrInvalidToken {
		t.Errorf("Validate garbage err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_VerifyOnly(t *testing.T) {
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	verifier := NewTokenProvider(nil, pub, "test-issuer", "test-audience", time.Minute)
	if _, _, err := verifier.Issue("svc", RoleService); err != ErrSigningDisabled {
		t.Errorf("Issue err = %v, want ErrSigningDisabled", err)
	}

	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, _, err := p.Issue("svc", RoleService)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := verifier.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !claims.HasRole(RoleService) {
		t.Errorf("Roles = %v, want [service]", claims.Roles)
	}
}
