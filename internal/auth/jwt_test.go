package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/frameline/meetups-backend/internal/auth"
	"github.com/frameline/meetups-backend/internal/models"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	svc := auth.NewJWTService("login-secret", 24)
	user := &models.User{
		ID:    uuid.New(),
		Email: "june@example.com",
		Name:  "June",
		Role:  models.RoleHost,
	}

	token, err := svc.Generate(user)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("user id = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Email != "june@example.com" || claims.Name != "June" {
		t.Fatalf("identity claims = %q/%q", claims.Email, claims.Name)
	}
	if claims.Role != models.RoleHost {
		t.Fatalf("role = %q, want host", claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("jti missing")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := auth.NewJWTService("secret-a", 24).Generate(&models.User{ID: uuid.New(), Role: models.RoleGuest})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := auth.NewJWTService("secret-b", 24).Validate(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	// An HS256 token signed with the same secret but minted for another
	// service (e.g. a video-provider app token) must not authenticate.
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    "host",
		"iss":     "some-other-service",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := foreign.SignedString([]byte("login-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.NewJWTService("login-secret", 24).Validate(signed); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsWrongMethod(t *testing.T) {
	other := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"iss": "meetups-backend",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := other.SignedString([]byte("login-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.NewJWTService("login-secret", 24).Validate(signed); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}
