package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/ai-helper/internal"
)

func init() {
	// Lifetimes are configured in milliseconds, so claims keep millisecond precision.
	jwt.TimePrecision = time.Millisecond
}

// JWTTokenManager signs HS256 tokens whose subject is the username.
type JWTTokenManager struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewJWTTokenManager(secret string, lifetime time.Duration) *JWTTokenManager {
	return &JWTTokenManager{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (m *JWTTokenManager) WithClock(now func() time.Time) *JWTTokenManager {
	m.now = now
	return m
}

func (m *JWTTokenManager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue creates a token with sub=subject, iat=now and exp=iat+lifetime.
func (m *JWTTokenManager) Issue(subject string) (string, error) {
	issuedAt := m.now().Truncate(time.Millisecond)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.lifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// SubjectOf verifies the signature and returns the subject. Expiry is not checked.
func (m *JWTTokenManager) SubjectOf(tokenString string) (string, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", internal.ErrInvalidToken.WithCause(errors.New("token has no subject"))
	}
	return claims.Subject, nil
}

// IsExpired reports whether now is at or past the token's exp claim.
func (m *JWTTokenManager) IsExpired(tokenString string) (bool, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return false, err
	}
	if claims.ExpiresAt == nil {
		return false, internal.ErrInvalidToken.WithCause(errors.New("token has no expiry"))
	}
	return !m.now().Before(claims.ExpiresAt.Time), nil
}

// Validate is true only for a well-signed, unexpired token issued to expectedSubject.
func (m *JWTTokenManager) Validate(tokenString, expectedSubject string) bool {
	claims, err := m.parse(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	if claims.Subject == "" || claims.Subject != expectedSubject {
		return false
	}
	return m.now().Before(claims.ExpiresAt.Time)
}

// parse checks the signature and algorithm only. Time based claims are evaluated by the
// callers against the injected clock.
func (m *JWTTokenManager) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, internal.ErrInvalidToken.WithCause(err)
	}
	return claims, nil
}
