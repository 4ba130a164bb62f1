package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"memberbase/internal/middleware"
)

// bcrypt work factor; matches the cost the rest of the stored hashes were
// produced with.
const bcryptCost = 10

// Session tokens are deliberately long-lived: the cookie is the only
// session state we keep.
const sessionTokenTTL = 365 * 24 * time.Hour

var (
	ErrInvalidDigest = errors.New("malformed password digest")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("invalid token")
)

type AuthService interface {
	HashPassword(plain string) (string, error)
	CheckPassword(plain, digest string) (bool, error)
	IssueToken(userID int) (string, error)
	ParseToken(token string) (int, error)
}

type authService struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthService(secret string) AuthService {
	return &authService{secret: []byte(secret), tokenTTL: sessionTokenTTL}
}

// NewAuthServiceWithTTL is used by tests to exercise expiry without waiting.
func NewAuthServiceWithTTL(secret string, ttl time.Duration) AuthService {
	return &authService{secret: []byte(secret), tokenTTL: ttl}
}

func (s *authService) HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches digest. A mismatch is not an
// error; only a digest bcrypt cannot parse is.
func (s *authService) CheckPassword(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, ErrInvalidDigest
}

func (s *authService) IssueToken(userID int) (string, error) {
	claims := &middleware.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *authService) ParseToken(tokenStr string) (int, error) {
	claims := &middleware.Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	if !token.Valid {
		return 0, ErrTokenInvalid
	}
	return claims.UserID, nil
}
