package api

import (
	"net/http"

	"github.com/Domenick1991/busbooking/internal/service/accounts"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	accounts accounts.AccountUseCase
	sessions sessionWriter
}

func NewProfileHandler(accounts accounts.AccountUseCase, sessions SessionIssuer, revoker SessionRevoker, cookie CookieConfig) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, sessions: sessionWriter{issuer: sessions, revoker: revoker, cookie: cookie}}
}

func (h *ProfileHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.get)
	router.PUT("", h.update)
	router.PUT("/password", h.changePassword)
}

func (h *ProfileHandler) get(c *gin.Context) {
	identity, _ := IdentityFrom(c)
	user, err := h.accounts.Profile(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h *ProfileHandler) update(c *gin.Context) {
	identity, _ := IdentityFrom(c)

	var req accounts.ProfileInput
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": "Invalid profile details."})
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}

	// The token carries name and email, so it is swapped for one that matches.
	token, fresh, err := h.sessions.start(c, user)
	if err != nil {
		respondError(c, err)
		return
	}
	h.sessions.revoke(c.Request.Context(), identity)
	c.JSON(http.StatusOK, sessionResponse("Profile updated successfully.", token, fresh, user))
}

func (h *ProfileHandler) changePassword(c *gin.Context) {
	identity, _ := IdentityFrom(c)

	var req accounts.ChangePasswordInput
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": "Invalid password details."})
		return
	}

	user, err := h.accounts.ChangePassword(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.sessions.revokeAll(c.Request.Context(), user.ID)
	h.sessions.revoke(c.Request.Context(), identity)
	token, fresh, err := h.sessions.start(c, user)
	if err != nil {
		h.sessions.clear(c)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse("Password changed successfully.", token, fresh, user))
}
