package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/booklog/booklog-server/internal/id"
)

const (
	tokenIssuer   = "booklog-server"
	tokenAudience = "booklog-client"
)

// ErrInvalidToken is returned for tokens that fail decryption or a claim rule.
var ErrInvalidToken = errors.New("invalid access token")

// AccessClaims are the claims of a v4.local access token. The token is
// encrypted, so clients cannot read them.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// TokenService issues and verifies PASETO access tokens.
type TokenService struct {
	key      paseto.V4SymmetricKey
	duration time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from a KeySize-byte key.
func NewTokenService(key []byte, duration time.Duration) (*TokenService, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("PASETO v4 key must be %d bytes, got %d", KeySize, len(key))
	}
	if duration <= 0 {
		return nil, fmt.Errorf("token duration must be positive, got %s", duration)
	}
	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("create PASETO key: %w", err)
	}
	return &TokenService{key: k, duration: duration, now: time.Now}, nil
}

// GenerateAccessToken returns an encrypted token for the user and its expiry.
func (s *TokenService) GenerateAccessToken(userID, email string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.duration)

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token id: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)
	token.SetJti(tokenID)
	//nolint:errcheck // Set fails only for values that cannot be marshalled
	_ = token.Set("user_id", userID)
	//nolint:errcheck
	_ = token.Set("email", email)

	return token.V4Encrypt(s.key, nil), expires, nil
}

// VerifyAccessToken decrypts a token and checks issuer, audience and validity window.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return &claims, nil
}

// Duration returns the access token lifetime.
func (s *TokenService) Duration() time.Duration {
	return s.duration
}
