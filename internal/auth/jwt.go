package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenDuration  = 15 * time.Minute
	RefreshTokenDuration = 7 * 24 * time.Hour
	// Activation links expire after 24 hours, matching the activation email copy.
	ConfirmTokenDuration = 24 * time.Hour
)

type Claims struct {
	UserID    string `json:"userId"`
	TokenID   string `json:"jti"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(secret string, userID string) (string, error) {
	return generateToken(secret, userID, "access", AccessTokenDuration, "")
}

func GenerateRefreshToken(secret string, userID string, tokenID string) (string, error) {
	return generateToken(secret, userID, "refresh", RefreshTokenDuration, tokenID)
}

// GenerateConfirmToken signs the one-time account-activation token embedded
// in the activation email link.
func GenerateConfirmToken(secret string, userID string) (string, error) {
	return generateToken(secret, userID, "confirm", ConfirmTokenDuration, "")
}

func ValidateToken(secret string, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

func generateToken(secret string, userID string, tokenType string, duration time.Duration, tokenID string) (string, error) {
	claims := &Claims{
		UserID:    userID,
		TokenID:   tokenID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        tokenID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
