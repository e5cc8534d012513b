// Package auth provides stateless access tokens using JWT.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/artpar/crudgate/adapters/clock"
	"github.com/artpar/crudgate/adapters/idgen"
	"github.com/artpar/crudgate/domain/user"
	"github.com/artpar/crudgate/ports"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid token")

// claims is the JWT payload.
type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Config configures a TokenService.
type Config struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
	Clock      ports.Clock       // optional
	IDs        ports.IDGenerator // optional, token ids
}

// TokenService issues HS256 access tokens. Safe for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	clock      ports.Clock
	ids        ports.IDGenerator
}

// NewTokenService creates a token service.
// If the secret is empty, a random 32-byte secret is generated, so tokens do not
// survive a restart.
func NewTokenService(cfg Config) *TokenService {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		rand.Read(secret)
	}
	s := &TokenService{
		secret:     secret,
		issuer:     cfg.Issuer,
		expiration: cfg.Expiration,
		clock:      cfg.Clock,
		ids:        cfg.IDs,
	}
	if s.issuer == "" {
		s.issuer = "crudgate"
	}
	if s.expiration <= 0 {
		s.expiration = 24 * time.Hour
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.ids == nil {
		s.ids = idgen.UUID{}
	}
	return s
}

// Issue creates a signed token for u.
func (s *TokenService) Issue(u user.User) (string, time.Time, error) {
	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.expiration)

	c := claims{
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ids.New(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates a token and returns its claims.
func (s *TokenService) Verify(token string) (ports.Claims, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return ports.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ports.Claims{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return ports.Claims{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return ports.Claims{
		UserID:    id,
		Email:     c.Email,
		Role:      user.Role(c.Role),
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

var _ ports.TokenService = (*TokenService)(nil)

// GenerateSecret generates a random secret suitable for JWT signing.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
