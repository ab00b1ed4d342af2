package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"patient-management/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MockSignature is appended in place of a real signature. Tokens issued here carry no
// integrity guarantee: they are decoded, never verified.
const MockSignature = "mock_signature"

// DefaultExpiry of an issued token
const DefaultExpiry = time.Hour

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token has expired")
)

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the token.
func (c *Claims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}

// ExpiredAt reports whether the token is expired at now. A token without expiry is expired.
func (c *Claims) ExpiredAt(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !c.ExpiresAt.Time.After(now)
}

type TokenService struct {
	expiry time.Duration
	now    func() time.Time
}

func NewTokenService(expiry time.Duration) *TokenService {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &TokenService{expiry: expiry, now: time.Now}
}

// WithClock returns a copy of the service using now as its time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	return &TokenService{expiry: s.expiry, now: now}
}

// GenerateToken issues a mock token for user and returns it with its token id.
func (s *TokenService) GenerateToken(user *entity.User) (string, string, error) {
	issuedAt := s.now()
	tokenID := uuid.New().String()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	unsigned, err := token.SigningString()
	if err != nil {
		return "", "", err
	}

	return unsigned + "." + MockSignature, tokenID, nil
}

// Decode reads the claims of a token without checking its signature or expiry.
func (s *TokenService) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

// ValidateToken decodes a token and rejects it once its expiry has passed.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.ExpiredAt(s.now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func (s *TokenService) GetExpiry() time.Duration {
	return s.expiry
}

// AccessTokenKey is the allow-list key of an issued token.
func AccessTokenKey(userID, tokenID string) string {
	return fmt.Sprintf("access_token:%s:%s", userID, tokenID)
}
