package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired marks a well-formed, correctly signed token past its
	// expiry window.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid marks any structural or signature failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims are the identity payload embedded in issued tokens. They are a
// cache: every authorization decision re-reads the user from the store.
type Claims struct {
	jwt.RegisteredClaims
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// TokenService issues and verifies signed, expiring bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token carrying the given identity.
func (s *TokenService) Issue(userID int, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the embedded claims.
// Expired and invalid tokens are distinguished so callers can surface
// different messages.
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID < 1 {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}
