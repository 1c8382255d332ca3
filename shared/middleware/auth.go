package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fintrack/fintrack/shared/token"
	"github.com/gin-gonic/gin"
)

const (
	emailKey          = "email"
	tokenIDKey        = "tokenId"
	tokenExpiresAtKey = "tokenExpiresAt"
)

// TokenParser verifies a raw bearer token.
type TokenParser interface {
	Parse(tokenString string) (*token.Claims, error)
}

// RevocationChecker reports whether a token ID has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware requires a valid, unrevoked bearer token and stores its
// identity claim in the gin context.
func AuthMiddleware(parser TokenParser, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Missing Authorization Header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abortWithError(c, http.StatusUnprocessableEntity, "Bad Authorization header. Expected 'Authorization: Bearer <JWT>'")
			return
		}

		claims, err := parser.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			RespondWithAppError(c, err)
			c.Abort()
			return
		}

		revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			log.Printf("AuthMiddleware: revocation lookup failed: %v", err)
			abortWithError(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		if revoked {
			abortWithError(c, http.StatusUnauthorized, "Token has been revoked")
			return
		}

		c.Set(emailKey, claims.Email())
		c.Set(tokenIDKey, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(tokenExpiresAtKey, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

// GetEmail returns the caller's identity claim set by AuthMiddleware.
func GetEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(emailKey)
	if !exists {
		return "", false
	}
	s, ok := email.(string)
	return s, ok && s != ""
}

// GetToken returns the ID and expiry of the token that authenticated the request.
func GetToken(c *gin.Context) (string, time.Time, bool) {
	id := c.GetString(tokenIDKey)
	expiresAt := c.GetTime(tokenExpiresAtKey)
	return id, expiresAt, id != ""
}

func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"message": message})
}
