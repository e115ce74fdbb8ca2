package utils

import (
	"errors"
	"time"

	"workshophub/config"

	"github.com/golang-jwt/jwt"
)

const attemptScope = "booking_attempt"

// secretKey falls back to a fixed key outside production; LoadConfig refuses
// to start production without JWT_SECRET.
func secretKey() []byte {
	secret := config.AppConfig.JWTSecret
	if secret == "" {
		secret = "workshophub-dev-secret"
	}
	return []byte(secret)
}

// GenerateAttemptToken signs a token that lets its bearer drive one booking
// attempt. The token expires after the given duration.
func GenerateAttemptToken(attemptID string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   attemptID,
		"scope": attemptScope,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
}

// ExtractAttemptID returns the attempt id (subject) carried by a valid attempt token.
func ExtractAttemptID(tokenString string) (string, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if scope, _ := claims["scope"].(string); scope != attemptScope {
		return "", errors.New("token is not an attempt token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token does not contain a valid 'sub' claim")
	}
	return sub, nil
}
