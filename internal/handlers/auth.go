package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/services"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	tokens      TokenIssuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
	}
}

// Register creates an account and returns a session token for it.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login authenticates by email or username and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Login and password are required")
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateProfile applies a partial profile edit.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	type UpdateProfileRequest struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Email     *string `json:"email"`
		Username  *string `json:"username"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": dto.ToUserDTO(*user)})
}

// ChangePassword replaces the password after checking the current one.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	type ChangePasswordRequest struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Current password and new password are required")
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// Deactivate disables the current account.
func (h *AuthHandler) Deactivate(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.authService.Deactivate(c.Request.Context(), userID); err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deactivated successfully"})
}

// ListUsers returns active users in the minimal projection.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListActive(c.Request.Context())
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserSummaryDTOs(users))
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		respondInternalError(c, err)
		return
	}

	c.JSON(status, dto.AuthResponse{
		Token: token,
		User:  dto.ToUserDTO(*user),
	})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserAlreadyExists),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrEmailTaken):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrWrongPassword):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidCredentials, err.Error())
	case errors.Is(err, services.ErrAccountDeactivated):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeAccountDeactivated, err.Error())
	case errors.Is(err, services.ErrMissingCredentials),
		errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, services.ErrEmailRequired),
		errors.Is(err, services.ErrInvalidUsernameLength),
		errors.Is(err, services.ErrInvalidUsernameChars),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrNameTooLong),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrPasswordTooWeak),
		errors.Is(err, services.ErrPasswordTooLong):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		respondInternalError(c, err)
	}
}

// respondInternalError logs the cause and answers with a generic 500.
func respondInternalError(c *gin.Context, err error) {
	log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	apierrors.InternalError(c, "")
}
