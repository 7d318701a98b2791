package security

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/liftline/platform-auth/internal/core/domain"
)

// TokenKind discriminates access and refresh payloads. The kind is carried as
// a claim and checked on every parse, so a refresh token can never pass
// through an access-token code path.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	// ErrTokenExpired indicates the token's expiry claim has elapsed.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrTokenNotYetValid indicates the token's nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("jwt: token not yet valid")
	// ErrTokenMalformed indicates the token failed structural or signature validation.
	ErrTokenMalformed = errors.New("jwt: token malformed or signature invalid")
	// ErrWrongTokenKind indicates a token of one kind was presented where the other is required.
	ErrWrongTokenKind = errors.New("jwt: wrong token kind")
)

// AccessTokenClaims carries the identity and authorization snapshot minted at login.
type AccessTokenClaims struct {
	Kind        TokenKind               `json:"token_kind"`
	UserID      string                  `json:"uid"`
	Username    string                  `json:"username"`
	Role        domain.Role             `json:"role"`
	Permissions domain.PermissionMatrix `json:"permissions"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims carries the minimal refresh payload.
type RefreshTokenClaims struct {
	Kind   TokenKind `json:"token_kind"`
	UserID string    `json:"uid"`
	jwt.RegisteredClaims
}

// TokenCodecConfig configures the HMAC token codec.
type TokenCodecConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

const (
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenCodec signs and verifies access and refresh tokens with distinct
// secrets. Secrets are immutable for the process lifetime; rotating them
// invalidates every outstanding token.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenCodec validates the configuration and builds a codec.
func NewTokenCodec(cfg TokenCodecConfig) (*TokenCodec, error) {
	access := strings.TrimSpace(cfg.AccessSecret)
	refresh := strings.TrimSpace(cfg.RefreshSecret)
	if access == "" {
		return nil, fmt.Errorf("jwt: access secret is required")
	}
	if refresh == "" {
		return nil, fmt.Errorf("jwt: refresh secret is required")
	}
	if subtle.ConstantTimeCompare([]byte(access), []byte(refresh)) == 1 {
		return nil, fmt.Errorf("jwt: access and refresh secrets must differ")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}

	return &TokenCodec{
		accessSecret:  []byte(access),
		refreshSecret: []byte(refresh),
		issuer:        strings.TrimSpace(cfg.Issuer),
		audience:      strings.TrimSpace(cfg.Audience),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the internal clock for deterministic tests.
func (c *TokenCodec) WithClock(clock func() time.Time) *TokenCodec {
	if clock != nil {
		c.now = clock
	}
	return c
}

// AccessTTL returns the configured access-token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// SignAccess mints an access token carrying the user's identity, role, and
// permissions snapshot.
func (c *TokenCodec) SignAccess(user domain.User) (string, *AccessTokenClaims, error) {
	if user.ID == "" {
		return "", nil, fmt.Errorf("jwt: user id is required")
	}

	now := c.now()
	claims := &AccessTokenClaims{
		Kind:        TokenKindAccess,
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    c.issuer,
			Audience:  c.audienceClaim(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.accessSecret)
	if err != nil {
		return "", nil, fmt.Errorf("jwt: sign access token: %w", err)
	}

	return signed, claims, nil
}

// SignRefresh mints a refresh token for the supplied user id.
func (c *TokenCodec) SignRefresh(userID string) (string, *RefreshTokenClaims, error) {
	if userID == "" {
		return "", nil, fmt.Errorf("jwt: user id is required")
	}

	now := c.now()
	claims := &RefreshTokenClaims{
		Kind:   TokenKindRefresh,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  c.audienceClaim(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.refreshSecret)
	if err != nil {
		return "", nil, fmt.Errorf("jwt: sign refresh token: %w", err)
	}

	return signed, claims, nil
}

// ParseAccess verifies an access token against the access secret and rejects
// refresh-kind payloads.
func (c *TokenCodec) ParseAccess(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := c.parse(token, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.Kind != TokenKindAccess {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenKind, claims.Kind, TokenKindAccess)
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token against the refresh secret and rejects
// access-kind payloads.
func (c *TokenCodec) ParseRefresh(token string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	if err := c.parse(token, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Kind != TokenKindRefresh {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenKind, claims.Kind, TokenKindRefresh)
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func (c *TokenCodec) parse(token string, claims jwt.Claims, secret []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenMalformed
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return ErrTokenNotYetValid
		default:
			return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}

	if parsed == nil || !parsed.Valid {
		return ErrTokenMalformed
	}

	return nil
}

func (c *TokenCodec) audienceClaim() jwt.ClaimStrings {
	if c.audience == "" {
		return nil
	}
	return jwt.ClaimStrings{c.audience}
}
