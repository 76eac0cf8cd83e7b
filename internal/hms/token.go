// Package hms integrates with the 100ms video platform: app token signing,
// room provisioning over the management API and recording webhooks.
package hms

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService signs 100ms app tokens with the app secret (HS256).
type TokenService struct {
	accessKey string
	appSecret string
	validity  time.Duration
}

// NewTokenService creates a 100ms token service.
func NewTokenService(accessKey, appSecret string, validHours int) *TokenService {
	if validHours <= 0 {
		validHours = 24
	}
	return &TokenService{
		accessKey: accessKey,
		appSecret: appSecret,
		validity:  time.Duration(validHours) * time.Hour,
	}
}

// Generate signs an app token admitting userID into roomID with the given
// role. Claim names and the type/version pair follow the 100ms app token
// format.
func (s *TokenService) Generate(roomID, userID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"access_key": s.accessKey,
		"room_id":    roomID,
		"user_id":    userID,
		"role":       role,
		"type":       "app",
		"version":    2,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"nbf":        now.Unix(),
		"exp":        now.Add(s.validity).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.appSecret))
	if err != nil {
		return "", fmt.Errorf("sign app token: %w", err)
	}
	return signed, nil
}
