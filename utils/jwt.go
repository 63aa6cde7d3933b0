package utils

import (
	"errors"
	"time"

	"aiacard/config"

	"github.com/golang-jwt/jwt"
)

// DefaultSessionTTL applies when SESSION_TTL is not configured.
const DefaultSessionTTL = time.Hour

// SessionClaims is the identity carried by a session token.
type SessionClaims struct {
	AccountID string
	Email     string
	Mobile    string
}

func secretKey() []byte {
	if config.AppConfig.JWTSecret != "" {
		return []byte(config.AppConfig.JWTSecret)
	}
	return []byte("aiacard-dev-secret")
}

func sessionTTL() time.Duration {
	if config.AppConfig.SessionTTL > 0 {
		return config.AppConfig.SessionTTL
	}
	return DefaultSessionTTL
}

// MintSessionToken signs the account's current identity for SESSION_TTL.
func MintSessionToken(c SessionClaims) (string, error) {
	if c.AccountID == "" {
		return "", errors.New("session token requires an account id")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   c.AccountID,
		"id":    c.AccountID,
		"email": c.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(sessionTTL()).Unix(),
	}
	if c.Mobile != "" {
		claims["mobile"] = c.Mobile
	}
	return signClaims(claims)
}

func signClaims(claims jwt.MapClaims) (string, error) {
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

// ParseSessionToken validates tokenString and returns its identity claims.
func ParseSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("token does not contain a valid 'sub' claim")
	}
	email, _ := claims["email"].(string)
	mobile, _ := claims["mobile"].(string)

	return &SessionClaims{AccountID: sub, Email: email, Mobile: mobile}, nil
}
