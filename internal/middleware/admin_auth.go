package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"bangumi-calendar-service/internal/model"

	"github.com/gin-gonic/gin"
)

// AdminAuth guards the analytics routes with ADMIN_API_KEY.
// If apiKey is empty, authentication is disabled.
func AdminAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		token := adminToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.APIResponse{
				Code:  http.StatusUnauthorized,
				Error: "未授权：缺少 API Key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, model.APIResponse{
				Code:  http.StatusForbidden,
				Error: "禁止访问：API Key 无效",
			})
			return
		}

		c.Next()
	}
}

// adminToken reads "Bearer <token>", "ApiKey <token>" or ?api_key=
func adminToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if auth == "" {
		return strings.TrimSpace(c.Query("api_key"))
	}
	for _, prefix := range []string{"Bearer ", "ApiKey "} {
		if strings.HasPrefix(auth, prefix) {
			return strings.TrimSpace(auth[len(prefix):])
		}
	}
	return auth
}
