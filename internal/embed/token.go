package embed

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PlaybackTokenDuration bounds how long an issued embed token stays valid.
const PlaybackTokenDuration = 1 * time.Hour

// PlaybackClaims binds a playback grant to one viewer and one course.
type PlaybackClaims struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	VideoID  string `json:"video_id"`
	jwt.RegisteredClaims
}

func GeneratePlaybackToken(secret []byte, userID, courseID, videoID string) (string, error) {
	now := time.Now()
	claims := PlaybackClaims{
		UserID:   userID,
		CourseID: courseID,
		VideoID:  videoID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(PlaybackTokenDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidatePlaybackToken checks the signature and that the grant targets the
// given course.
func ValidatePlaybackToken(secret []byte, tokenString, courseID string) (*PlaybackClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PlaybackClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse playback token: %w", err)
	}
	claims, ok := token.Claims.(*PlaybackClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid playback token")
	}
	if claims.CourseID != courseID {
		return nil, fmt.Errorf("playback token is for another course")
	}
	return claims, nil
}
