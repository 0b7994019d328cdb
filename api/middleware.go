package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "request_id"
	identityKey  = "identity"

	requestIDHeader = "X-Request-ID"
)

type SessionParser interface {
	Parse(token string) (auth.Identity, error)
}

type RevocationChecker interface {
	IsSessionRevoked(ctx context.Context, tokenID string) (bool, error)
	SessionsRevokedBefore(ctx context.Context, userID int64) (time.Time, error)
}

// RequestID reuses an incoming X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		userID := int64(0)
		if id, ok := IdentityFrom(c); ok {
			userID = id.UserID
		}
		log.Printf("[HTTP] request_id=%s method=%s path=%s status=%d user_id=%d duration=%s",
			c.GetString(requestIDKey), c.Request.Method, c.Request.URL.Path, c.Writer.Status(), userID, time.Since(start))
	}
}

// Authenticate resolves the session from the cookie or an Authorization:
// Bearer header. Requests without a valid session continue anonymously.
func Authenticate(sessions SessionParser, revocations RevocationChecker, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		identity, err := sessions.Parse(token)
		if err != nil {
			c.Next()
			return
		}

		if revocations != nil && isRevoked(c, revocations, identity) {
			c.Next()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// isRevoked reports whether the token was logged out or predates the user's
// last password change. Store errors fail open.
func isRevoked(c *gin.Context, revocations RevocationChecker, identity auth.Identity) bool {
	ctx := c.Request.Context()
	revoked, err := revocations.IsSessionRevoked(ctx, identity.TokenID)
	if err != nil {
		log.Printf("WARNING: session revocation check failed request_id=%s: %v", c.GetString(requestIDKey), err)
	}
	if revoked {
		return true
	}

	before, err := revocations.SessionsRevokedBefore(ctx, identity.UserID)
	if err != nil {
		log.Printf("WARNING: session cutoff check failed request_id=%s: %v", c.GetString(requestIDKey), err)
		return false
	}
	return !before.IsZero() && identity.IssuedAt.Before(before)
}

func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFrom(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "message": "Please log in first."})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "message": "Please log in first."})
			return
		}
		if !identity.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "Admins only."})
			return
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}

func sessionToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookieName == "" {
		return ""
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}
