package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prkovalenko/identity-link-service/internal/domain"
)

// SessionTokenManager verifies the HS256 access tokens presented on
// session-scoped endpoints. Token issuance belongs to the identity
// directory; Generate exists for wiring tests end to end.
type SessionTokenManager struct {
	secret []byte
	expiry time.Duration
}

// NewSessionTokenManager creates a new session token manager
func NewSessionTokenManager(secret string, expiry time.Duration) *SessionTokenManager {
	return &SessionTokenManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Generate mints a session token for the given subject.
func (m *SessionTokenManager) Generate(subject, username, email string, authTime time.Time) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       subject,
		"username":  username,
		"email":     email,
		"auth_time": authTime.Unix(),
		"exp":       now.Add(m.expiry).Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// Verify parses and validates a session token and returns its claims.
func (m *SessionTokenManager) Verify(tokenString string) (*domain.SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid session token claims")
	}

	subject, ok := mapClaims["sub"].(string)
	if !ok || subject == "" {
		return nil, fmt.Errorf("invalid sub in session token")
	}

	claims := &domain.SessionClaims{Subject: subject}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if authTime, ok := mapClaims["auth_time"].(float64); ok {
		claims.AuthTime = int64(authTime)
	}

	exp, ok := mapClaims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp in session token")
	}
	claims.Exp = int64(exp)
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.Iat = int64(iat)
	}

	if claims.IsExpired() {
		return nil, fmt.Errorf("session token is expired")
	}

	return claims, nil
}
