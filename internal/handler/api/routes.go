package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardiansr/mediqueue/internal/domain"
	authpkg "github.com/ardiansr/mediqueue/pkg/auth"
	"github.com/ardiansr/mediqueue/pkg/logger"
	"github.com/ardiansr/mediqueue/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	router *gin.Engine,
	receiptHandler *ReceiptHandler,
	hospitalHandler *HospitalHandler,
	authHandler *AuthHandler,
	authService domain.AuthService,
) {
	router.Use(recoveryMiddleware())

	v1 := router.Group("/api/v1")
	{
		configureAuthRoutes(v1, authHandler)
		configureReceiptRoutes(v1, receiptHandler, authService)
		configureHospitalRoutes(v1, hospitalHandler, receiptHandler, authService)
	}

	logger.Info("API routes configured successfully")
}

func configureAuthRoutes(group *gin.RouterGroup, authHandler *AuthHandler) {
	routes := group.Group("/auth")
	{
		routes.POST("/register", authHandler.Register)
		routes.POST("/login", authHandler.Login)
	}
}

func configureReceiptRoutes(group *gin.RouterGroup, receiptHandler *ReceiptHandler, authService domain.AuthService) {
	routes := group.Group("/receipts")
	routes.Use(authMiddleware(authService))
	{
		routes.POST("", receiptHandler.UploadReceipt)
		routes.GET("", receiptHandler.ListReceipts)
		routes.GET("/:id", receiptHandler.GetReceipt)
		routes.DELETE("", receiptHandler.ClearReceipts)
		routes.PATCH("/:id/status", queueManagerMiddleware(), receiptHandler.UpdateStatus)
	}
}

func configureHospitalRoutes(group *gin.RouterGroup, hospitalHandler *HospitalHandler, receiptHandler *ReceiptHandler, authService domain.AuthService) {
	routes := group.Group("/hospitals")
	routes.Use(authMiddleware(authService))
	{
		routes.GET("", hospitalHandler.ListHospitals)
		routes.GET("/:id", hospitalHandler.GetHospital)
		routes.POST("", adminMiddleware(), hospitalHandler.CreateHospital)
		routes.GET("/:id/doctors", hospitalHandler.ListDoctors)
		routes.GET("/:id/queue", queueManagerMiddleware(), receiptHandler.GetHospitalQueue)
	}
}

// authMiddleware validates JWT token and sets user context
func authMiddleware(authService domain.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			xresponse.InternalServerError(c, "Auth service not available")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			xresponse.Unauthorized(c, "Authorization header with Bearer token required")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			xresponse.Unauthorized(c, "Token is empty")
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, authpkg.ErrExpiredToken):
				xresponse.Unauthorized(c, "Token expired")
			case errors.Is(err, authpkg.ErrInvalidToken):
				xresponse.Unauthorized(c, "Invalid token")
			default:
				xresponse.InternalServerError(c, "Failed to validate token")
			}
			c.Abort()
			return
		}

		userID := strings.TrimSpace(claims.UserID)
		if userID == "" {
			xresponse.Unauthorized(c, "Invalid token payload")
			c.Abort()
			return
		}

		role := strings.ToUpper(strings.TrimSpace(claims.Role))
		if !domain.IsValidRole(role) {
			xresponse.Unauthorized(c, "Invalid token payload")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Set("token_issued_at", claims.IssuedAt)
		c.Set("token_expires_at", claims.ExpiresAt)

		ttl := time.Until(claims.ExpiresAt)
		logger.Debug("User authenticated via middleware",
			logger.String("user_id", userID),
			logger.String("role", role),
			logger.String("token_ttl", ttl.String()),
		)

		c.Next()
	}
}

// adminMiddleware restricts access to admin users only
func adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("user_role")
		if !exists {
			xresponse.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}

		role, _ := roleVal.(string)
		if strings.ToUpper(role) != domain.RoleAdmin {
			logger.Warn("Admin access denied",
				logger.String("user_role", role),
				logger.String("ip", c.ClientIP()),
			)
			xresponse.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// queueManagerMiddleware restricts hospital-side workflow routes to roles
// that may manage queues
func queueManagerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("user_role")
		if !exists {
			xresponse.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}

		role, _ := roleVal.(string)
		if !domain.CanManageQueues(strings.ToUpper(role)) {
			logger.Warn("Queue management access denied",
				logger.String("user_role", role),
				logger.String("ip", c.ClientIP()),
			)
			xresponse.Forbidden(c, "Hospital or admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			logger.String("error", fmt.Sprintf("%v", recovered)),
			logger.String("path", c.Request.URL.Path),
			logger.String("method", c.Request.Method),
		)

		xresponse.InternalServerError(c, "Internal server error")
		c.Abort()
	})
}
