package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/liftline/platform-auth/internal/core/domain"
	"github.com/liftline/platform-auth/internal/infra/config"
	"github.com/liftline/platform-auth/internal/infra/redis"
	"github.com/liftline/platform-auth/internal/transport/http/handlers"
	"github.com/liftline/platform-auth/internal/transport/http/middleware"
	"github.com/liftline/platform-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth      *usecase.AuthService
	Tokens    *usecase.TokenService
	Passwords *usecase.PasswordService
	Sessions  *usecase.SessionService
	Users     *usecase.UserService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config        *config.AppConfig
	Logger        *zap.Logger
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Metrics       *middleware.HTTPMetrics
	Services      ServiceSet
	Database      *pgxpool.Pool
	Cache         *redis.Client
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	r.Use(deps.Metrics.Handler())

	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Cache)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := deps.Authenticator.RequireAuth()

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(
			deps.Services.Auth,
			deps.Services.Tokens,
			deps.Services.Passwords,
			deps.Services.Sessions,
			deps.Config.App.IsProduction(),
		)

		loginHandlers := append(buildLoginMiddlewares(deps), authHandler.Login)
		authGroup.POST("/login", loginHandlers...)
		authGroup.POST("/refresh", authHandler.Refresh)

		authGroup.POST("/logout", requireAuth, authHandler.Logout)
		authGroup.POST("/logout-all", requireAuth, authHandler.LogoutAll)
		authGroup.GET("/me", requireAuth, authHandler.Me)
		authGroup.POST("/change-password", requireAuth, authHandler.ChangePassword)

		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions)
		authGroup.GET("/sessions", requireAuth, sessionHandler.List)
		authGroup.DELETE("/sessions/:sessionId", requireAuth, sessionHandler.Revoke)

		userHandler := handlers.NewUserHandler(deps.Services.Users)
		adminOnly := middleware.RequireRole(domain.RoleSuperAdmin)
		authGroup.POST("/users", requireAuth, adminOnly, userHandler.Create)
		authGroup.PUT("/users/:id/permissions", requireAuth, adminOnly, userHandler.UpdatePermissions)
	}

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "auth_login_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
