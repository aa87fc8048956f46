package api

import (
	"errors"
	"strings"
	"time"

	"github.com/ardiansr/mediqueue/internal/domain"
	"github.com/ardiansr/mediqueue/pkg/logger"
	"github.com/ardiansr/mediqueue/pkg/metrics"
	"github.com/ardiansr/mediqueue/pkg/utils"
	"github.com/ardiansr/mediqueue/pkg/xresponse"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	userRepo    domain.UserRepository
	authService domain.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userRepo domain.UserRepository, authService domain.AuthService) *AuthHandler {
	return &AuthHandler{
		userRepo:    userRepo,
		authService: authService,
	}
}

// registerRequest is the POST /auth/register payload. Registration always
// creates a patient account; staff accounts are provisioned by admins.
type registerRequest struct {
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xresponse.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !utils.ValidateEmail(email) {
		xresponse.BadRequest(c, "Invalid email address")
		return
	}
	if !utils.ValidatePassword(req.Password) {
		xresponse.BadRequest(c, "Password must be at least 8 characters with upper, lower, and digit")
		return
	}

	existing, err := h.userRepo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		logger.Error("Failed to check existing user", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Registration failed")
		return
	}
	if existing != nil {
		xresponse.Conflict(c, "Email already registered")
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Registration failed")
		return
	}

	user := &domain.User{
		ID:           utils.GenerateUUID(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         domain.RolePatient,
		IsActive:     true,
	}

	if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			xresponse.Conflict(c, "Email already registered")
			return
		}
		logger.Error("Failed to create user", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Registration failed")
		return
	}

	token, err := h.authService.GenerateAccessToken(user)
	if err != nil {
		logger.Error("Failed to generate token", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Registration failed")
		return
	}

	metrics.RecordAuthAttempt("register", "success")
	xresponse.Created(c, "Account created", &authResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        user,
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		xresponse.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.userRepo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		logger.Error("Failed to look up user", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Login failed")
		return
	}
	if user == nil || !user.IsActive || !utils.VerifyPassword(req.Password, user.PasswordHash) {
		metrics.RecordAuthAttempt("login", "failure")
		xresponse.InvalidCredentials(c, "Invalid email or password")
		return
	}

	token, err := h.authService.GenerateAccessToken(user)
	if err != nil {
		logger.Error("Failed to generate token", logger.ErrorField(err))
		xresponse.InternalServerError(c, "Login failed")
		return
	}

	now := time.Now()
	if err := h.userRepo.UpdateLastLogin(c.Request.Context(), user.ID, now); err != nil {
		logger.Warn("Failed to record last login",
			logger.String("user_id", user.ID),
			logger.ErrorField(err),
		)
	}
	user.LastLoginAt = &now

	metrics.RecordAuthAttempt("login", "success")
	xresponse.Success(c, "Login successful", &authResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        user,
	})
}
