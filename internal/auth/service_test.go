package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stock-decision-bot/internal/logging"
)

func TestPasswordManager(t *testing.T) {
	pm := NewPasswordManager(bcrypt.MinCost)

	hash, err := pm.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !pm.VerifyPassword("hunter2", hash) {
		t.Error("Correct password should verify")
	}
	if pm.VerifyPassword("wrong", hash) {
		t.Error("Wrong password should not verify")
	}

	if _, err := pm.HashPassword(strings.Repeat("x", MaxPasswordLength+1)); err == nil {
		t.Error("Over-length password should be rejected")
	}
}

func TestJWTRoundtrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("Expected admin role, got %s", claims.Role)
	}
	if claims.Subject != "admin" {
		t.Errorf("Expected admin subject, got %s", claims.Subject)
	}
	if claims.Issuer != "stock-decision-bot" {
		t.Errorf("Unexpected issuer: %s", claims.Issuer)
	}
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, err := m.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := m.ValidateToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-one", time.Hour).GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	other := NewJWTManager("secret-two", time.Hour)
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTGarbageToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	if _, err := m.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestServiceDisabledWithoutPassword(t *testing.T) {
	s, err := NewService("", "test-secret", time.Hour, logging.Nop())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if s.Enabled() {
		t.Error("Service without a password should be disabled")
	}
	if _, err := s.Login("anything"); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("Expected ErrAuthDisabled, got %v", err)
	}
}

func TestServiceLogin(t *testing.T) {
	s, err := NewService("hunter2", "test-secret", time.Hour, logging.Nop())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if !s.Enabled() {
		t.Fatal("Service with a password should be enabled")
	}

	if _, err := s.Login("wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}

	resp, err := s.Login("hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("Expected an access token")
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("Expected Bearer type, got %s", resp.TokenType)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("Expected 3600s expiry, got %d", resp.ExpiresIn)
	}
	if _, err := s.GetJWTManager().ValidateToken(resp.AccessToken); err != nil {
		t.Errorf("Issued token should validate: %v", err)
	}
}

func TestRandomSecret(t *testing.T) {
	a, err := RandomSecret()
	if err != nil {
		t.Fatalf("RandomSecret failed: %v", err)
	}
	b, err := RandomSecret()
	if err != nil {
		t.Fatalf("RandomSecret failed: %v", err)
	}
	if a == b {
		t.Error("Two secrets should differ")
	}
	if len(a) < 40 {
		t.Errorf("Secret looks too short: %d chars", len(a))
	}
}
