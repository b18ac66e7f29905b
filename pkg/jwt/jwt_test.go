package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	m := NewManager("secret", "playcoach-upload", time.Minute)

	token, err := m.GenerateServiceToken("upload-service", ScopeTriggerAnalysis)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.ValidateServiceToken(token, ScopeTriggerAnalysis)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Service != "upload-service" {
		t.Fatalf("expected service upload-service, got %q", claims.Service)
	}
}

func TestValidateServiceTokenRejects(t *testing.T) {
	m := NewManager("secret", "playcoach-upload", time.Minute)
	token, err := m.GenerateServiceToken("upload-service", ScopeReadReports)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := m.ValidateServiceToken(token, ScopeTriggerAnalysis); !errors.Is(err, ErrInsufficientScope) {
		t.Fatalf("expected ErrInsufficientScope, got %v", err)
	}

	other := NewManager("other-secret", "playcoach-upload", time.Minute)
	if _, err := other.ValidateServiceToken(token, ""); err == nil {
		t.Fatalf("expected signature error")
	}

	foreign := NewManager("secret", "someone-else", time.Minute)
	if _, err := foreign.ValidateServiceToken(token, ""); err == nil {
		t.Fatalf("expected issuer error")
	}

	if _, err := m.ValidateServiceToken("not-a-token", ""); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidateServiceTokenExpired(t *testing.T) {
	m := NewManager("secret", "playcoach-upload", time.Minute)
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateServiceToken("upload-service", ScopeTriggerAnalysis)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	m.now = time.Now
	if _, err := m.ValidateServiceToken(token, ScopeTriggerAnalysis); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestGenerateServiceTokenRequiresService(t *testing.T) {
	m := NewManager("secret", "playcoach-upload", 0)
	if m.GetExpiry() != DefaultServiceTokenExpiry {
		t.Fatalf("expected default expiry, got %s", m.GetExpiry())
	}
	if _, err := m.GenerateServiceToken("", ScopeTriggerAnalysis); err == nil {
		t.Fatalf("expected error for empty service")
	}
}
