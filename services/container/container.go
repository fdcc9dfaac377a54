package container

import (
	"sync"

	"carebot-http-service/config"
	"carebot-http-service/services"

	"gorm.io/gorm"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	db     *gorm.DB
	config *config.Config

	// 持久化协作方（同一实例满足机器人/老人/紧急事件三个接口）
	store *services.GormStore

	// 实体锁：心跳与巡检共享机器人锁，上报与处理共享老人锁
	robotLocks *services.KeyedMutex
	elderLocks *services.KeyedMutex

	// 基础服务
	jwtService   services.InterfaceJWTService
	redisService services.InterfaceRedisService

	// MQTT传输与通知推送
	mqttService         services.InterfaceMQTTService
	notificationService services.InterfaceNotificationService

	// 实时安全状态子系统
	connectionMonitorService *services.ConnectionMonitorService
	emergencyService         services.InterfaceEmergencyService
	subscriptionAuthService  services.InterfaceSubscriptionAuthService

	// 业务服务
	robotService    services.InterfaceRobotService
	elderService    services.InterfaceElderService
	guardianService services.InterfaceGuardianService
	adminService    services.InterfaceAdminService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器
func NewServiceContainer(db *gorm.DB, cfg *config.Config) *ServiceContainer {
	if db == nil {
		panic("数据库连接为空")
	}
	if cfg == nil {
		panic("配置为空")
	}

	container := &ServiceContainer{
		db:     db,
		config: cfg,
	}
	container.initializeServices()
	return container
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = services.NewGormStore(c.db)
	c.robotLocks = services.NewKeyedMutex()
	c.elderLocks = services.NewKeyedMutex()

	// 初始化基础服务
	c.jwtService = services.NewJWTService(c.config)
	c.redisService = services.NewRedisService(c.config)

	// 测试Redis连接
	if err := c.redisService.Ping(); err != nil {
		config.Warning("Redis连接测试失败: %v，将不使用Redis缓存", err)
	}

	// 初始化MQTT传输与通知推送
	c.mqttService = services.NewMQTTService(c.config)
	c.notificationService = services.NewNotificationService(c.mqttService)

	// 连接MQTT服务器
	if err := c.mqttService.Connect(); err != nil {
		config.Warning("MQTT服务连接失败: %v", err)
	}

	// 初始化实时安全状态子系统
	c.connectionMonitorService = services.NewConnectionMonitorService(
		c.store, c.store, c.notificationService, c.config, c.robotLocks)
	c.emergencyService = services.NewEmergencyService(
		c.store, c.store, c.store, c.notificationService, c.elderLocks)
	c.subscriptionAuthService = services.NewSubscriptionAuthService(
		c.jwtService, c.store, c.store)

	// 初始化业务服务
	c.robotService = services.NewRobotService(c.store, c.store, c.notificationService, c.config, c.robotLocks)
	c.elderService = services.NewElderService(c.store, c.elderLocks)
	c.guardianService = services.NewGuardianService(c.db)
	c.adminService = services.NewAdminService(c.db)
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// GetConfig 获取配置
func (c *ServiceContainer) GetConfig() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// GetJWTService 获取JWT服务
func (c *ServiceContainer) GetJWTService() services.InterfaceJWTService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtService
}

// GetRedisService 获取Redis服务
func (c *ServiceContainer) GetRedisService() services.InterfaceRedisService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redisService
}

// GetMQTTService 获取MQTT传输服务
func (c *ServiceContainer) GetMQTTService() services.InterfaceMQTTService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttService
}

// GetNotificationService 获取通知推送服务
func (c *ServiceContainer) GetNotificationService() services.InterfaceNotificationService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notificationService
}

// GetConnectionMonitorService 获取连接监控服务
func (c *ServiceContainer) GetConnectionMonitorService() *services.ConnectionMonitorService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectionMonitorService
}

// GetEmergencyService 获取紧急事件服务
func (c *ServiceContainer) GetEmergencyService() services.InterfaceEmergencyService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emergencyService
}

// GetSubscriptionAuthService 获取订阅授权服务
func (c *ServiceContainer) GetSubscriptionAuthService() services.InterfaceSubscriptionAuthService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptionAuthService
}

// GetRobotService 获取机器人服务
func (c *ServiceContainer) GetRobotService() services.InterfaceRobotService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.robotService
}

// GetElderService 获取老人档案服务
func (c *ServiceContainer) GetElderService() services.InterfaceElderService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elderService
}

// GetGuardianService 获取监护人服务
func (c *ServiceContainer) GetGuardianService() services.InterfaceGuardianService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.guardianService
}

// GetAdminService 获取管理员服务
func (c *ServiceContainer) GetAdminService() services.InterfaceAdminService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adminService
}
