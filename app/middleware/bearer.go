package middleware

import (
	"net/http"

	"mtglog/app/auth"
	"mtglog/app/logger"

	"github.com/gin-gonic/gin"
)

// BearerAuth 共享密钥认证中间件
func BearerAuth(secret string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			log.Errorf("共享密钥未配置，拒绝请求 %s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}

		if !auth.CheckBearer(c.GetHeader("Authorization"), secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
