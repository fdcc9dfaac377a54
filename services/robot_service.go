package services

import (
	"errors"
	"time"

	"carebot-http-service/config"
	"carebot-http-service/models"
	"carebot-http-service/utils"
)

// HeartbeatRequest 机器人心跳上报参数
type HeartbeatRequest struct {
	BatteryLevel    int    `json:"battery_level"`
	CurrentLocation string `json:"current_location"`
	FirmwareVersion string `json:"firmware_version"`
	LCDMode         string `json:"lcd_mode"`
}

// InterfaceRobotService 定义机器人服务接口
type InterfaceRobotService interface {
	GetAllRobots() ([]models.Robot, error)
	GetRobotsByGuardian(guardianID uint) ([]models.Robot, error)
	GetRobotByID(callerID uint, callerRole string, id uint) (*models.Robot, error)
	CreateRobot(robot *models.Robot) error
	UpdateRobot(id uint, updates map[string]interface{}) (*models.Robot, error)
	DeleteRobot(id uint) error
	Heartbeat(robotID uint, req HeartbeatRequest) (*models.Robot, error)
	UpdateLCD(callerID uint, callerRole string, robotID uint, payload RobotLCDPayload) error
}

// RobotService 提供机器人相关的服务
type RobotService struct {
	Robots   RobotStore
	Elders   ElderStore
	Notifier InterfaceNotificationService
	Config   *config.Config

	// 与连接监控巡检共用的机器人锁
	RobotLocks *KeyedMutex

	// Now 可注入的时钟，默认time.Now
	Now func() time.Time
}

// NewRobotService 创建一个新的机器人服务
func NewRobotService(robots RobotStore, elders ElderStore, notifier InterfaceNotificationService, cfg *config.Config, robotLocks *KeyedMutex) InterfaceRobotService {
	return &RobotService{
		Robots:     robots,
		Elders:     elders,
		Notifier:   notifier,
		Config:     cfg,
		RobotLocks: robotLocks,
		Now:        time.Now,
	}
}

// 1 GetAllRobots 获取所有机器人列表
func (s *RobotService) GetAllRobots() ([]models.Robot, error) {
	return s.Robots.ListRobots()
}

// 2 GetRobotsByGuardian 获取某监护人名下的机器人列表
func (s *RobotService) GetRobotsByGuardian(guardianID uint) ([]models.Robot, error) {
	return s.Robots.ListRobotsByGuardian(guardianID)
}

// 3 GetRobotByID 根据ID获取机器人，监护人只能查看名下老人的机器人
func (s *RobotService) GetRobotByID(callerID uint, callerRole string, id uint) (*models.Robot, error) {
	robot, err := s.Robots.GetRobotByID(id)
	if err != nil {
		return nil, err
	}

	switch callerRole {
	case RoleAdmin:
		return robot, nil
	case RoleRobot:
		if callerID == robot.ID {
			return robot, nil
		}
	case RoleGuardian:
		elder, err := s.Elders.GetElderByID(robot.ElderID)
		if err != nil {
			return nil, err
		}
		if elder.GuardianID == callerID {
			return robot, nil
		}
	}
	return nil, ErrAccessDenied
}

// 4 CreateRobot 创建新机器人
func (s *RobotService) CreateRobot(robot *models.Robot) error {
	// 未提供序列号时自动生成
	if robot.SerialNumber == "" {
		robot.SerialNumber = utils.RandomSerialNumber()
	}

	// 验证序列号唯一性
	count, err := s.Robots.CountRobotsBySerial(robot.SerialNumber, 0)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("机器人序列号已存在")
	}

	// 归属的老人必须存在
	if _, err := s.Elders.GetElderByID(robot.ElderID); err != nil {
		return err
	}

	// 新机器人在收到首次心跳前视为离线
	if robot.ConnectivityState == "" {
		robot.ConnectivityState = models.ConnectivityDisconnected
	}
	return s.Robots.CreateRobot(robot)
}

// 5 UpdateRobot 更新机器人信息
func (s *RobotService) UpdateRobot(id uint, updates map[string]interface{}) (*models.Robot, error) {
	unlock := s.RobotLocks.Lock(id)
	defer unlock()

	robot, err := s.Robots.GetRobotByID(id)
	if err != nil {
		return nil, err
	}

	// 如果更新序列号，需要检查唯一性
	if serialNumber, ok := updates["serial_number"].(string); ok && serialNumber != robot.SerialNumber {
		count, err := s.Robots.CountRobotsBySerial(serialNumber, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New("机器人序列号已存在")
		}
		robot.SerialNumber = serialNumber
	}

	if name, ok := updates["name"].(string); ok {
		robot.Name = name
	}
	if model, ok := updates["model"].(string); ok {
		robot.Model = model
	}

	if err := s.Robots.SaveRobot(robot); err != nil {
		return nil, err
	}
	return robot, nil
}

// 6 DeleteRobot 删除机器人
func (s *RobotService) DeleteRobot(id uint) error {
	if _, err := s.Robots.GetRobotByID(id); err != nil {
		return err
	}
	return s.Robots.DeleteRobot(id)
}

// 7 Heartbeat 心跳上报
// 刷新心跳时间与运行信息；若此前已判定离线，立即迁移回connected并重置告警节流
func (s *RobotService) Heartbeat(robotID uint, req HeartbeatRequest) (*models.Robot, error) {
	unlock := s.RobotLocks.Lock(robotID)
	defer unlock()

	robot, err := s.Robots.GetRobotByID(robotID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	robot.LastHeartbeatAt = &now
	if req.BatteryLevel > 0 {
		robot.BatteryLevel = req.BatteryLevel
	}
	if req.CurrentLocation != "" {
		robot.CurrentLocation = req.CurrentLocation
	}
	if req.FirmwareVersion != "" {
		robot.FirmwareVersion = req.FirmwareVersion
	}
	if req.LCDMode != "" {
		robot.LCDModeState = models.LCDMode(req.LCDMode)
	}

	reconnected := robot.ConnectivityState == models.ConnectivityDisconnected
	if reconnected {
		robot.ConnectivityState = models.ConnectivityConnected
		robot.LastOfflineNotifiedAt = nil
	}

	if err := s.Robots.SaveRobot(robot); err != nil {
		return nil, err
	}

	if reconnected {
		config.Info("[心跳] 机器人 %d 恢复连接", robot.ID)
		s.Notifier.PublishRobotStatus(robot.ID, RobotStatusPayload{
			RobotID:         robot.ID,
			ElderID:         robot.ElderID,
			BatteryLevel:    robot.BatteryLevel,
			NetworkStatus:   string(robot.ConnectivityState),
			CurrentLocation: robot.CurrentLocation,
			LCDMode:         string(robot.LCDModeState),
		})
	}
	return robot, nil
}

// 8 UpdateLCD 下发机器人屏幕显示内容
// 先加锁再读取，确保不会用过期快照覆盖并发提交的心跳写入
func (s *RobotService) UpdateLCD(callerID uint, callerRole string, robotID uint, payload RobotLCDPayload) error {
	unlock := s.RobotLocks.Lock(robotID)
	defer unlock()

	// 锁内读取并校验权限
	robot, err := s.GetRobotByID(callerID, callerRole, robotID)
	if err != nil {
		return err
	}

	if payload.Mode != "" {
		robot.LCDModeState = models.LCDMode(payload.Mode)
		if err := s.Robots.SaveRobot(robot); err != nil {
			return err
		}
	}

	payload.RobotID = robot.ID
	s.Notifier.PublishRobotLCD(robot.ID, payload)
	return nil
}
