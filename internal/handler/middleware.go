package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prkovalenko/identity-link-service/internal/domain"
	"github.com/prkovalenko/identity-link-service/internal/dto"
	"github.com/prkovalenko/identity-link-service/internal/utils"
)

const claimsContextKey = "session_claims"

// AuthMiddleware verifies the bearer session token and stores the claims on
// the request context.
func AuthMiddleware(tokens *utils.SessionTokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// SessionClaims returns the verified claims set by AuthMiddleware, or nil
// when the route was reached without it.
func SessionClaims(c *gin.Context) *domain.SessionClaims {
	value, exists := c.Get(claimsContextKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*domain.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
