package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/core/port"
	"github.com/liftline/platform-auth/internal/infra/security"
	"github.com/liftline/platform-auth/internal/repository"
)

const (
	// ClaimsKey is the context key carrying the verified access claims.
	ClaimsKey = "claims"
	// CurrentUserKey is the context key carrying the loaded user record.
	CurrentUserKey = "current_user"
	// AccessTokenKey is the context key carrying the raw bearer token.
	AccessTokenKey = "access_token"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID.
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// Authenticator verifies bearer tokens and loads the account behind them.
//
// Verification is ordered: signature and lifetime first, then token kind,
// then the live account checks (existence, active flag, derived lock,
// password-change staleness). Each step can only reject; claims are attached
// after the full pipeline passes.
type Authenticator struct {
	codec *security.TokenCodec
	users port.UserRepository
	now   func() time.Time
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(codec *security.TokenCodec, users port.UserRepository) *Authenticator {
	return &Authenticator{
		codec: codec,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the authenticator clock for deterministic tests.
func (a *Authenticator) WithClock(clock func() time.Time) *Authenticator {
	if clock != nil {
		a.now = clock
	}
	return a
}

type authFailure struct {
	status  int
	message string
}

// authenticate runs the verification pipeline and returns the claims and user
// on success.
func (a *Authenticator) authenticate(c *gin.Context) (*security.AccessTokenClaims, *domain.User, string, *authFailure) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, nil, "", &authFailure{http.StatusUnauthorized, "missing authorization header"}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, nil, "", &authFailure{http.StatusUnauthorized, "invalid authorization format: expected 'Bearer <token>'"}
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return nil, nil, "", &authFailure{http.StatusUnauthorized, "missing access token"}
	}

	claims, err := a.codec.ParseAccess(token)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrTokenExpired):
			return nil, nil, "", &authFailure{http.StatusUnauthorized, "access token expired"}
		case errors.Is(err, security.ErrTokenNotYetValid):
			return nil, nil, "", &authFailure{http.StatusUnauthorized, "access token not yet valid"}
		case errors.Is(err, security.ErrWrongTokenKind):
			return nil, nil, "", &authFailure{http.StatusUnauthorized, "wrong token type"}
		default:
			return nil, nil, "", &authFailure{http.StatusUnauthorized, "invalid access token"}
		}
	}

	user, err := a.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A deleted account reads the same as a forged token.
			return nil, nil, "", &authFailure{http.StatusUnauthorized, "invalid access token"}
		}
		return nil, nil, "", &authFailure{http.StatusInternalServerError, "authentication failed"}
	}

	now := a.now()
	if !user.IsActive {
		return nil, nil, "", &authFailure{http.StatusUnauthorized, "account is not active"}
	}
	if user.IsLocked(now) {
		return nil, nil, "", &authFailure{http.StatusUnauthorized, "account locked"}
	}
	if claims.IssuedAt != nil && user.PasswordChangedAfter(claims.IssuedAt.Time) {
		return nil, nil, "", &authFailure{http.StatusUnauthorized, "password changed, please log in again"}
	}

	return claims, user, token, nil
}

// RequireAuth rejects the request unless a valid access token identifies a
// live account.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, user, token, failure := a.authenticate(c)
		if failure != nil {
			c.AbortWithStatusJSON(failure.status, newErrorResponse(c, failure.message))
			return
		}

		attachIdentity(c, claims, user, token)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is presented and
// proceeds anonymously otherwise. It never rejects.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, user, token, failure := a.authenticate(c); failure == nil {
			attachIdentity(c, claims, user, token)
		}
		c.Next()
	}
}

func attachIdentity(c *gin.Context, claims *security.AccessTokenClaims, user *domain.User, token string) {
	c.Set(UserIDKey, claims.UserID)
	c.Set(ClaimsKey, claims)
	c.Set(CurrentUserKey, user)
	c.Set(AccessTokenKey, token)

	if reqCtx := GetRequestContext(c); reqCtx != nil {
		reqCtx.UserID = claims.UserID
	}
}

// RequirePermission checks the token's permission snapshot for the grant.
// Authorization uses the matrix minted into the token, not the current
// database state. A request with no attached identity is denied, not
// challenged: re-authenticating cannot grant the permission.
func RequirePermission(resource domain.Resource, action domain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "insufficient permissions"))
			return
		}

		if !claims.Permissions.Allows(resource, action) {
			c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// RequireRole checks whether the authenticated user holds any of the listed roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "insufficient permissions"))
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "insufficient permissions"))
	}
}

// GetClaims retrieves the verified access claims from the context.
func GetClaims(c *gin.Context) (*security.AccessTokenClaims, bool) {
	val, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := val.(*security.AccessTokenClaims)
	return claims, ok
}

// GetCurrentUser retrieves the loaded user record from the context.
func GetCurrentUser(c *gin.Context) (*domain.User, bool) {
	val, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

// GetAuthenticatedUserID retrieves the user ID from context (helper for handlers).
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok {
		return id, true
	}

	return "", false
}
