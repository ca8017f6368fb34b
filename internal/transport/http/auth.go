package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"magic-mirror-server/internal/platform/logging"
)

const clientIDKey = "client_id"

// TokenVerifier 校验 bearer token 并返回 client_id
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// AuthMiddleware 要求 Authorization: Bearer <jwt>
func AuthMiddleware(verifier TokenVerifier, logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			logger.WarnTag("认证", "缺少 bearer token path=%s rid=%s", c.Request.URL.Path, RequestID(c))
			RespondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		clientID, err := verifier.VerifyToken(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			logger.WarnTag("认证", "token 校验失败 rid=%s: %v", RequestID(c), err)
			RespondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Set(clientIDKey, clientID)
		c.Next()
	}
}

// ClientID 返回认证通过的客户端 ID，未启用认证时为空
func ClientID(c *gin.Context) string {
	return c.GetString(clientIDKey)
}
