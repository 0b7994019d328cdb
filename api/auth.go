package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/accounts"
	"github.com/gin-gonic/gin"
)

type SessionIssuer interface {
	Issue(user *domain.User) (string, auth.Identity, error)
}

type SessionRevoker interface {
	RevokeSession(ctx context.Context, tokenID string, until time.Time) error
	RevokeUserSessions(ctx context.Context, userID int64, before time.Time) error
}

type CookieConfig struct {
	Name   string
	Secure bool
}

// sessionWriter issues and withdraws session tokens and keeps the cookie in
// step with them.
type sessionWriter struct {
	issuer  SessionIssuer
	revoker SessionRevoker
	cookie  CookieConfig
}

func (w sessionWriter) start(c *gin.Context, user *domain.User) (string, auth.Identity, error) {
	token, identity, err := w.issuer.Issue(user)
	if err != nil {
		return "", auth.Identity{}, err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(w.cookie.Name, token, int(time.Until(identity.ExpiresAt).Seconds()), "/", "", w.cookie.Secure, true)
	return token, identity, nil
}

func (w sessionWriter) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(w.cookie.Name, "", -1, "/", "", w.cookie.Secure, true)
}

func (w sessionWriter) revoke(ctx context.Context, identity auth.Identity) {
	if w.revoker == nil || identity.TokenID == "" {
		return
	}
	if err := w.revoker.RevokeSession(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		log.Printf("WARNING: failed to revoke session for user %d: %v", identity.UserID, err)
	}
}

// revokeAll drops every session of the user minted before the current second.
func (w sessionWriter) revokeAll(ctx context.Context, userID int64) {
	if w.revoker == nil {
		return
	}
	if err := w.revoker.RevokeUserSessions(ctx, userID, time.Now().Truncate(time.Second)); err != nil {
		log.Printf("WARNING: failed to revoke sessions for user %d: %v", userID, err)
	}
}

func sessionResponse(message, token string, identity auth.Identity, user *domain.User) gin.H {
	return gin.H{
		"message":    message,
		"token":      token,
		"expires_at": identity.ExpiresAt.UTC().Format(time.RFC3339),
		"user":       newUserResponse(user),
	}
}

type AuthHandler struct {
	accounts accounts.AccountUseCase
	sessions sessionWriter
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type userResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Contact string `json:"contact,omitempty"`
}

func NewAuthHandler(accounts accounts.AccountUseCase, sessions SessionIssuer, revoker SessionRevoker, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessionWriter{issuer: sessions, revoker: revoker, cookie: cookie}}
}

func (h *AuthHandler) Register(router *gin.RouterGroup) {
	router.POST("/register", h.register)
	router.POST("/login", h.login)
	router.POST("/logout", RequireLogin(), h.logout)
	router.POST("/forgot-password", h.forgotPassword)
	router.POST("/reset-password", h.resetPassword)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req accounts.RegisterInput
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": "Invalid registration details."})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Account created! You can now log in.", "user": newUserResponse(user)})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": "Invalid email or password."})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, identity, err := h.sessions.start(c, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(fmt.Sprintf("Welcome, %s!", user.Name), token, identity, user))
}

func (h *AuthHandler) logout(c *gin.Context) {
	identity, _ := IdentityFrom(c)
	h.sessions.revoke(c.Request.Context(), identity)
	h.sessions.clear(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully."})
}

func (h *AuthHandler) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": "Email is required."})
		return
	}
	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a reset link has been sent."})
}

func (h *AuthHandler) resetPassword(c *gin.Context) {
	var req accounts.ResetPasswordInput
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": "Invalid or expired reset token."})
		return
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	user, err := h.accounts.ResetPassword(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.sessions.revokeAll(c.Request.Context(), user.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset. You can now log in."})
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), Contact: u.Contact}
}
