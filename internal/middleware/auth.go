package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/snapdish/backend/internal/types"
)

// Authenticate validates the bearer token issued by the identity provider:
// HS256 signature with the project JWT secret, pinned issuer, expiry check.
// On success the user's id, email and role are stored in the gin context.
func Authenticate(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			// Misconfigured deployment, never a caller problem.
			abortWithError(c, http.StatusInternalServerError, "CONFIG_ERROR", "authentication is not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "AUTH_MISSING", "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, http.StatusUnauthorized, "AUTH_INVALID", "invalid authorization header format")
			return
		}

		opts := []jwt.ParserOption{
			jwt.WithValidMethods([]string{"HS256"}),
			jwt.WithExpirationRequired(),
		}
		if issuer != "" {
			opts = append(opts, jwt.WithIssuer(issuer))
		}

		claims := &types.TokenClaims{}
		_, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		}, opts...)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "AUTH_EXPIRED", "token has expired")
				return
			}
			abortWithError(c, http.StatusUnauthorized, "AUTH_INVALID", "invalid token")
			return
		}
		if claims.Subject == "" {
			abortWithError(c, http.StatusUnauthorized, "AUTH_INVALID", "token has no subject")
			return
		}

		c.Set("user_id", claims.UserID())
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// AdminKey guards admin endpoints with a shared secret carried in the
// x-admin-key header.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.GetHeader("x-admin-key") != key {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "admin key mismatch")
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}
