package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned when the token is past its expiry
	ErrTokenExpired = errors.New("token expired")
	// ErrInsufficientScope is returned when the token does not grant the required scope
	ErrInsufficientScope = errors.New("insufficient scope")
)

// DefaultServiceTokenExpiry is used when the manager is built with a zero expiry
const DefaultServiceTokenExpiry = 15 * time.Minute

// Manager issues and validates HMAC-signed service tokens
type Manager struct {
	secret string
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewManager creates a new JWT manager
func NewManager(secret, issuer string, expiry time.Duration) *Manager {
	if expiry <= 0 {
		expiry = DefaultServiceTokenExpiry
	}
	return &Manager{
		secret: secret,
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// GenerateServiceToken signs a token for the named service with the given scope
func (m *Manager) GenerateServiceToken(service, scope string) (string, error) {
	if service == "" {
		return "", fmt.Errorf("service name is empty")
	}
	now := m.now()
	claims := &Claims{
		Service: service,
		Scope:   scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   service,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.secret))
}

// ValidateServiceToken parses the token and checks it grants the required scope
func (m *Manager) ValidateServiceToken(tokenString, requiredScope string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if requiredScope != "" && claims.Scope != requiredScope {
		return nil, ErrInsufficientScope
	}

	return claims, nil
}

// GetExpiry returns the service token lifetime
func (m *Manager) GetExpiry() time.Duration {
	return m.expiry
}
