package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "trackbot-service"

var (
	ErrMissingToken = errors.New("authorization token missing")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// IssueToken signs an HS256 JWT for an API client.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
		"iss": tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates an HS256 JWT and returns its subject.
func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return subject, nil
}

// APIAuthenticator accepts the static API_TOKEN or a JWT signed with JWT_SECRET.
type APIAuthenticator struct {
	staticToken string
	jwtSecret   []byte
}

func NewAPIAuthenticator(staticToken, jwtSecret string) *APIAuthenticator {
	return &APIAuthenticator{staticToken: staticToken, jwtSecret: []byte(jwtSecret)}
}

// Enabled reports whether any credential is configured. Without one every request is rejected.
func (a *APIAuthenticator) Enabled() bool {
	return a.staticToken != "" || len(a.jwtSecret) > 0
}

// Authenticate returns the caller identity for a bearer token.
func (a *APIAuthenticator) Authenticate(token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	if a.staticToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.staticToken)) == 1 {
		return "api-token", nil
	}
	if len(a.jwtSecret) > 0 {
		return ParseToken(a.jwtSecret, token)
	}
	return "", ErrInvalidToken
}
