package middleware

import (
	"net/http"
	"strings"

	"carebot-http-service/config"
	"carebot-http-service/services"

	"github.com/gin-gonic/gin"
)

var jwtService services.InterfaceJWTService

// InitAuthMiddleware 初始化认证中间件
func InitAuthMiddleware(cfg *config.Config) {
	jwtService = services.NewJWTService(cfg)
}

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	// 检查并移除 "Bearer " 前缀
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// authenticate 校验令牌并将身份写入上下文，roles为空表示任何角色均可
func authenticate(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Authorization header is required",
				"data":    nil,
			})
			c.Abort()
			return
		}

		// 提取并校验token
		tokenString := extractToken(authHeader)
		claims, err := jwtService.ExtractClaims(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Invalid token: " + err.Error(),
				"data":    nil,
			})
			c.Abort()
			return
		}

		// 角色校验
		if len(roles) > 0 {
			allowed := false
			for _, role := range roles {
				if claims.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				c.JSON(http.StatusForbidden, gin.H{
					"code":    403,
					"message": "Insufficient permissions",
					"data":    nil,
				})
				c.Abort()
				return
			}
		}

		// 存储身份到上下文
		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// AuthenticateSystemAdmin 验证系统管理员权限
func AuthenticateSystemAdmin() gin.HandlerFunc {
	return authenticate(services.RoleAdmin)
}

// AuthenticateUser 验证看护类用户权限（管理员或监护人）
func AuthenticateUser() gin.HandlerFunc {
	return authenticate(services.RoleAdmin, services.RoleGuardian)
}

// AuthenticateRobot 验证机器人设备权限
func AuthenticateRobot() gin.HandlerFunc {
	return authenticate(services.RoleRobot)
}

// AuthenticateAny 验证任意已登录身份
func AuthenticateAny() gin.HandlerFunc {
	return authenticate()
}
