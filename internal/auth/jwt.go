// Package auth issues and verifies the bearer tokens that identify callers.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type constants for the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Defaults for JWTConfig.
const (
	DefaultAccessTTL  = 1 * time.Hour
	DefaultRefreshTTL = 14 * 24 * time.Hour
	DefaultLeeway     = 30 * time.Second
	DefaultIssuer     = "compare-api"
)

var (
	// ErrInvalidToken is returned when token validation fails.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrWrongTokenType is returned when a refresh token is presented as an access token.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrEmptyUserID is returned when userID is empty.
	ErrEmptyUserID = errors.New("userID cannot be empty")
	// ErrEmptySecret is returned when no signing secret is configured.
	ErrEmptySecret = errors.New("jwt secret cannot be empty")
)

// Claims are the JWT claims issued by this service.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Type     string `json:"typ"`
}

// JWTConfig configures a JWTService.
type JWTConfig struct {
	// Secret signs new tokens.
	Secret string
	// PreviousSecret still verifies tokens during a key rotation. Optional.
	PreviousSecret string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	Leeway         time.Duration
	Issuer         string
}

// JWTService signs tokens with the current secret and accepts tokens signed
// with the current or the previous one.
type JWTService struct {
	keys   [][]byte
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a JWTService. Zero durations and issuer take defaults.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Leeway <= 0 {
		cfg.Leeway = DefaultLeeway
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	keys := [][]byte{[]byte(cfg.Secret)}
	if cfg.PreviousSecret != "" && cfg.PreviousSecret != cfg.Secret {
		keys = append(keys, []byte(cfg.PreviousSecret))
	}
	return &JWTService{keys: keys, config: cfg, now: time.Now}, nil
}

// GenerateAccessToken issues an access token for userID.
func (s *JWTService) GenerateAccessToken(userID, username string) (string, error) {
	return s.sign(userID, username, TokenTypeAccess, s.config.AccessTTL)
}

// GenerateRefreshToken issues a refresh token for userID.
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	return s.sign(userID, "", TokenTypeRefresh, s.config.RefreshTTL)
}

func (s *JWTService) sign(userID, username, typ string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
		Type:     typ,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.keys[0])
}

// ValidateToken parses a token of any type and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	var lastErr error
	for _, key := range s.keys {
		claims, err := s.parse(tokenString, key)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}

	if errors.Is(lastErr, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

func (s *JWTService) parse(tokenString string, key []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.config.Leeway),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken validates tokenString and requires an access token.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ResolveIdentity returns the user id carried by an access token.
func (s *JWTService) ResolveIdentity(ctx context.Context, token string) (string, error) {
	claims, err := s.ValidateAccessToken(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
