package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/uploadhub/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

// IsAuthenticated rejects requests without a valid bearer JWT before any handler runs.
func IsAuthenticated() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(ctx, "authorization header missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(ctx, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			unauthorized(ctx, "empty bearer token")
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			unauthorized(ctx, "token revoked")
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			unauthorized(ctx, "invalid token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

func unauthorized(ctx *gin.Context, msg string) {
	utils.Message(ctx, http.StatusUnauthorized, msg)
	ctx.Abort()
}
