package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/capitalcompass/tradedesk/internal/auth"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
	"github.com/capitalcompass/tradedesk/pkg/response"
)

// AuthHandler exposes the account lifecycle behind a single dispatch endpoint.
// Terminals and the dashboard frontend call POST /auth?action=... with a JSON
// body per action.
type AuthHandler struct {
	auth     *iauth.AuthService
	sessions *iauth.SessionService
}

func NewAuthHandler(auth *iauth.AuthService, sessions *iauth.SessionService) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

// POST /auth?action=...
func (h *AuthHandler) Dispatch(c *gin.Context) {
	action := strings.TrimSpace(c.Query("action"))

	switch action {
	case "register":
		h.register(c)
	case "login":
		h.login(c)
	case "verify-session":
		h.verifySession(c)
	case "logout":
		h.logout(c)
	case "verify-email":
		h.verifyEmail(c)
	case "request-password-reset":
		h.requestPasswordReset(c)
	case "reset-password":
		h.resetPassword(c)
	default:
		response.Error(c, apperrors.NewBadRequest("unknown auth action"))
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone"`
	MT5Name  string `json:"mt5_name"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.Register(requestContext(c), iauth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		MT5Name:  req.MT5Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Login(requestContext(c), req.Email, req.Password, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":       result.User,
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
	})
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *AuthHandler) verifySession(c *gin.Context) {
	var req tokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.sessions.Verify(requestContext(c), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	sanitized := user.Sanitized()
	response.Success(c, http.StatusOK, gin.H{"valid": true, "user": sanitized})
}

func (h *AuthHandler) logout(c *gin.Context) {
	var req tokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.sessions.Logout(requestContext(c), req.Token); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

func (h *AuthHandler) verifyEmail(c *gin.Context) {
	var req tokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.VerifyEmail(requestContext(c), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true, "user": user})
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) requestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.RequestPasswordReset(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	// Identical response whether or not the account exists.
	response.Success(c, http.StatusOK, gin.H{"requested": true})
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (h *AuthHandler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(requestContext(c), req.Token, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
