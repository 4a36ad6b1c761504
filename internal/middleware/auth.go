package middleware

import (
	"strings"

	"kidquest_backend/internal/config"
	"kidquest_backend/internal/model"
	"kidquest_backend/internal/util"
	"kidquest_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return c.Query("token")
}

// AuthMiddleware resolves the bearer token into an Identity.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			util.Fail(c, util.NotAuthenticated("auth"))
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT解析错误", zap.Error(err))
			util.Fail(c, util.NotAuthenticated("auth"))
			c.Abort()
			return
		}

		util.SetIdentity(c, util.Identity{UserID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := util.GetIdentity(c)
		if id.IsZero() {
			util.Fail(c, util.NotAuthenticated("auth"))
			c.Abort()
			return
		}

		for _, role := range roles {
			if id.Role == role {
				c.Next()
				return
			}
		}

		util.Fail(c, util.Unauthorized("auth", "insufficient role"))
		c.Abort()
	}
}
