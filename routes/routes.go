package routes

import (
	"carebot-http-service/config"
	"carebot-http-service/controllers"
	"carebot-http-service/middleware"
	"carebot-http-service/services/container"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter 初始化并返回配置好的路由与服务容器
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *container.ServiceContainer) {
	// 初始化 Gin
	r := gin.Default()

	// 添加 CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
	// 设置正确的Content-Type，确保UTF-8编码
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.Next()
	})
	// 创建服务容器
	serviceContainer := container.NewServiceContainer(db, cfg)
	// 初始化中间件
	middleware.InitAuthMiddleware(cfg)

	// 注册路由
	registerRoutes(r, serviceContainer)
	return r, serviceContainer
}

// registerRoutes 配置所有API路由
func registerRoutes(
	r *gin.Engine,
	container *container.ServiceContainer,
) {
	// API 路由根路径
	api := r.Group("/api")
	// 注册公共路由
	registerPublicRoutes(api, container)
	// 注册需要认证的路由
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	// 健康检查
	healthController := controllers.NewHealthCheckController()
	api.GET("/ping", healthController.Ping)

	// 认证路由
	api.POST("/auth/login", controllers.HandleJWTFunc(container, "login"))

	// 消息代理回调路由：CONNECT认证、订阅ACL、连接断开
	api.POST("/broker/auth", controllers.HandleBrokerAuthFunc(container, "auth"))
	api.POST("/broker/acl", controllers.HandleBrokerAuthFunc(container, "acl"))
	api.POST("/broker/disconnected", controllers.HandleBrokerAuthFunc(container, "disconnected"))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(
	api *gin.RouterGroup,
	container *container.ServiceContainer,
) {
	cache := middleware.Cache(container.GetRedisService())

	// 管理员路由
	admin := api.Group("/")
	admin.Use(middleware.AuthenticateSystemAdmin())
	admin.Group("/auth").POST("/robot-token", controllers.HandleJWTFunc(container, "robotToken"))
	admin.Group("/robots").POST("", controllers.HandleRobotFunc(container, "create"))
	admin.Group("/robots").PUT("/:id", controllers.HandleRobotFunc(container, "update"))
	admin.Group("/robots").DELETE("/:id", controllers.HandleRobotFunc(container, "delete"))
	admin.Group("/guardians").GET("", cache, controllers.HandleGuardianFunc(container, "list"))
	admin.Group("/guardians").POST("", controllers.HandleGuardianFunc(container, "create"))
	admin.Group("/guardians").DELETE("/:id", controllers.HandleGuardianFunc(container, "delete"))

	// 看护类用户路由（管理员或监护人）
	user := api.Group("/")
	user.Use(middleware.AuthenticateUser())
	user.Group("/robots").GET("", cache, controllers.HandleRobotFunc(container, "list"))
	user.Group("/robots").GET("/:id", controllers.HandleRobotFunc(container, "get"))
	user.Group("/robots").POST("/:id/lcd", controllers.HandleRobotFunc(container, "lcd"))
	user.Group("/elders").GET("", cache, controllers.HandleElderFunc(container, "list"))
	user.Group("/elders").GET("/:id", controllers.HandleElderFunc(container, "get"))
	user.Group("/elders").POST("", controllers.HandleElderFunc(container, "create"))
	user.Group("/elders").PUT("/:id", controllers.HandleElderFunc(container, "update"))
	user.Group("/elders").DELETE("/:id", controllers.HandleElderFunc(container, "delete"))
	user.Group("/guardians").GET("/:id", controllers.HandleGuardianFunc(container, "get"))
	user.Group("/guardians").PUT("/:id", controllers.HandleGuardianFunc(container, "update"))
	user.Group("/emergencies").PUT("/:id/resolve", controllers.HandleEmergencyFunc(container, "resolve"))
	user.Group("/emergencies").GET("/:id", controllers.HandleEmergencyFunc(container, "get"))
	user.Group("/emergencies").GET("", controllers.HandleEmergencyFunc(container, "list"))

	// 紧急事件上报：机器人与看护类用户均可触发
	reporter := api.Group("/")
	reporter.Use(middleware.AuthenticateAny())
	reporter.Group("/emergencies").POST("", controllers.HandleEmergencyFunc(container, "report"))

	// 机器人设备路由（设备凭自身令牌上报，路径中不带ID）
	robot := api.Group("/")
	robot.Use(middleware.AuthenticateRobot())
	robot.Group("/robot").POST("/heartbeat", controllers.HandleRobotFunc(container, "heartbeat"))
}
