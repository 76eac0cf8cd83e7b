package hms_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frameline/meetups-backend/internal/hms"
)

func TestGenerateAppToken(t *testing.T) {
	svc := hms.NewTokenService("ak_test", "secret_test", 24)

	signed, err := svc.Generate("room-1", "user-1", "host")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte("secret_test"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !token.Valid {
		t.Fatal("token not valid")
	}
	if token.Method.Alg() != "HS256" {
		t.Fatalf("alg = %s, want HS256", token.Method.Alg())
	}

	for key, want := range map[string]string{
		"access_key": "ak_test",
		"room_id":    "room-1",
		"user_id":    "user-1",
		"role":       "host",
		"type":       "app",
	} {
		if got, _ := claims[key].(string); got != want {
			t.Fatalf("claim %s = %q, want %q", key, got, want)
		}
	}
	if got, _ := claims["version"].(float64); got != 2 {
		t.Fatalf("claim version = %v, want 2", claims["version"])
	}
	if jti, _ := claims["jti"].(string); jti == "" {
		t.Fatal("jti claim missing")
	}

	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)
	if got := time.Duration(exp-iat) * time.Second; got != 24*time.Hour {
		t.Fatalf("validity = %v, want 24h", got)
	}
}

func TestGenerateAppTokenDefaultValidity(t *testing.T) {
	svc := hms.NewTokenService("ak", "sec", 0)
	signed, err := svc.Generate("r", "u", "guest")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(signed, claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte("sec"), nil
	}); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)
	if got := time.Duration(exp-iat) * time.Second; got != 24*time.Hour {
		t.Fatalf("default validity = %v, want 24h", got)
	}
}
