package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer  = "bill-service"
	tokenSubject = "admin"
)

// Claims is the payload of an admin session token.
type Claims struct {
	Role string `json:"role"`
	// PINVersion fingerprints the PIN the session was issued under.
	PINVersion string `json:"pinv"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 admin session tokens.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

// NewTokenService returns configured token service.
func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	if expiresIn <= 0 {
		expiresIn = 30 * time.Minute
	}
	return &TokenService{secret: []byte(secret), expiresIn: expiresIn, now: time.Now}
}

// GenerateToken issues a new token with a unique ID bound to pinVersion.
func (t *TokenService) GenerateToken(pinVersion string) (string, *Claims, error) {
	if len(t.secret) == 0 {
		return "", nil, errors.New("token: signing secret is empty")
	}

	now := t.now().UTC()
	claims := &Claims{
		Role:       tokenSubject,
		PINVersion: pinVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   tokenSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiresIn)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ValidateToken verifies signature, issuer and expiry and decodes the claims.
func (t *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" || claims.Role != tokenSubject {
		return nil, errors.New("token: invalid claims")
	}
	return claims, nil
}
