package security_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Rrens/rag-tutor/internal/security"
)

const testSecret = "test-secret-key-with-32-chars!!"

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 15*time.Minute)

	token, err := manager.GenerateServiceToken("line-gateway")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if token == "" {
		t.Error("token is empty")
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}

	if claims.Service != "line-gateway" {
		t.Errorf("service mismatch: got %v, want %v", claims.Service, "line-gateway")
	}

	if claims.ExpiresAt == nil {
		t.Error("expected expiry to be set")
	}
}

func TestJWTManager_NoExpiry(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 0)

	token, err := manager.GenerateServiceToken("line-gateway")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}

	if claims.ExpiresAt != nil {
		t.Errorf("expected no expiry, got %v", claims.ExpiresAt)
	}
}

func TestJWTManager_InvalidToken(t *testing.T) {
	manager := security.NewJWTManager(testSecret, 15*time.Minute)

	// Invalid token format
	if _, err := manager.ValidateToken("invalid-token"); err == nil {
		t.Error("expected error for invalid token, got nil")
	}

	// Empty token
	if _, err := manager.ValidateToken(""); err == nil {
		t.Error("expected error for empty token, got nil")
	}

	// Token signed with different secret
	other := security.NewJWTManager("different-secret-key-32-chars!!", 15*time.Minute)
	token, _ := other.GenerateServiceToken("line-gateway")
	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expected error for token signed with different secret, got nil")
	}

	// Expired token
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, security.Claims{
		Service: "line-gateway",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rag-tutor",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if _, err := manager.ValidateToken(signed); err == nil {
		t.Error("expected error for expired token, got nil")
	}

	// Foreign issuer
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, security.Claims{
		Service:          "line-gateway",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})
	signed, _ = foreign.SignedString([]byte(testSecret))
	if _, err := manager.ValidateToken(signed); err == nil {
		t.Error("expected error for foreign issuer, got nil")
	}
}

func TestJWTManager_RequiresService(t *testing.T) {
	manager := security.NewJWTManager(testSecret, time.Minute)

	if _, err := manager.GenerateServiceToken(""); err == nil {
		t.Error("expected error for empty service name, got nil")
	}

	if _, err := security.NewJWTManager("", time.Minute).GenerateServiceToken("line-gateway"); err == nil {
		t.Error("expected error for missing secret, got nil")
	}
}

func TestJWTManager_TokenTTL(t *testing.T) {
	ttl := 30 * time.Minute
	manager := security.NewJWTManager(testSecret, ttl)

	if manager.TokenTTL() != ttl {
		t.Errorf("token TTL mismatch: got %v, want %v", manager.TokenTTL(), ttl)
	}
}
