package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "segredo-de-teste-com-32-caracteres!"

func TestGenerateAndValidateAccessToken(t *testing.T) {
	mgr := NewJWTManager(testSecret, 15*time.Minute)
	subject := uuid.NewString()

	token, jti, err := mgr.GenerateAccessToken(subject, []string{"PROFESSOR"})
	if err != nil {
		t.Fatalf("gerar token: %v", err)
	}
	if jti == "" {
		t.Fatal("jti vazio")
	}

	claims, err := mgr.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("validar token: %v", err)
	}
	if claims.Subject != subject {
		t.Fatalf("subject inesperado: %s", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "PROFESSOR" {
		t.Fatalf("roles inesperadas: %v", claims.Roles)
	}
}

func TestParseRejectsWrongAudience(t *testing.T) {
	mgr := NewJWTManager(testSecret, 15*time.Minute)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Audience:  jwt.ClaimStrings{"outro-sistema"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("assinar token: %v", err)
	}

	if _, err := mgr.ParseAndValidate(token); err == nil {
		t.Fatal("token de outra audiência deveria ser rejeitado")
	}
}

func TestParseRejectsMissingExpiration(t *testing.T) {
	mgr := NewJWTManager(testSecret, 15*time.Minute)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  uuid.NewString(),
			Audience: jwt.ClaimStrings{Audience},
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("assinar token: %v", err)
	}

	if _, err := mgr.ParseAndValidate(token); err == nil {
		t.Fatal("token sem expiração deveria ser rejeitado")
	}
}

func TestParseRejectsWrongSigningMethod(t *testing.T) {
	mgr := NewJWTManager(testSecret, 15*time.Minute)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Audience:  jwt.ClaimStrings{Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("assinar token: %v", err)
	}

	if _, err := mgr.ParseAndValidate(token); err == nil {
		t.Fatal("algoritmo diferente de HS256 deveria ser rejeitado")
	}
}
