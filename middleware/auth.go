package middleware

import (
	"net/http"
	"strings"

	"aiacard/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	CtxAccountID = "accountID"
	CtxEmail     = "email"
	CtxMobile    = "mobile"
)

// JWTAuthMiddleware requires a valid Bearer session token and exposes its
// identity on the gin context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Authorization token is required."})
			return
		}

		claims, err := utils.ParseSessionToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token."})
			return
		}

		c.Set(CtxAccountID, claims.AccountID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxMobile, claims.Mobile)
		c.Next()
	}
}
