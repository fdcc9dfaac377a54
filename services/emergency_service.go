package services

import (
	"encoding/json"
	"fmt"
	"time"

	"carebot-http-service/config"
	"carebot-http-service/models"

	"github.com/google/uuid"
)

// ReportEmergencyRequest 紧急事件上报参数
type ReportEmergencyRequest struct {
	RobotID    uint
	Type       models.EmergencyType
	Location   string
	DetectedAt *time.Time // 为空时取当前时间
	Confidence float64
	SensorData json.RawMessage
}

// InterfaceEmergencyService 定义紧急事件生命周期服务接口
// 状态机: pending → resolved | false_alarm，终态不可再迁移
type InterfaceEmergencyService interface {
	ReportEmergency(callerID uint, callerRole string, req ReportEmergencyRequest) (*models.Emergency, error)
	ResolveEmergency(callerID uint, callerRole string, emergencyID uint, resolution models.EmergencyResolution, note string) (*models.Emergency, error)
	GetEmergency(callerID uint, callerRole string, emergencyID uint) (*models.Emergency, error)
	ListEmergencies(callerID uint, callerRole string, page, pageSize int) ([]models.Emergency, int64, error)
}

// EmergencyService 维护紧急事件状态机，并保证老人聚合安全状态与事件集合一致
type EmergencyService struct {
	Robots      RobotStore
	Elders      ElderStore
	Emergencies EmergencyStore
	Notifier    InterfaceNotificationService

	// 按老人ID串行化上报与处理路径，聚合状态在临界区内实时重算
	ElderLocks *KeyedMutex

	// Now 可注入的时钟，默认time.Now
	Now func() time.Time
}

// NewEmergencyService 创建一个新的紧急事件服务
func NewEmergencyService(robots RobotStore, elders ElderStore, emergencies EmergencyStore, notifier InterfaceNotificationService, elderLocks *KeyedMutex) InterfaceEmergencyService {
	return &EmergencyService{
		Robots:      robots,
		Elders:      elders,
		Emergencies: emergencies,
		Notifier:    notifier,
		ElderLocks:  elderLocks,
		Now:         time.Now,
	}
}

// 1 ReportEmergency 上报紧急事件
// 无条件将老人安全状态提升为danger并刷新最近活动信息，随后发出紧急广播
func (s *EmergencyService) ReportEmergency(callerID uint, callerRole string, req ReportEmergencyRequest) (*models.Emergency, error) {
	robot, err := s.Robots.GetRobotByID(req.RobotID)
	if err != nil {
		return nil, err
	}

	elder, err := s.Elders.GetElderByID(robot.ElderID)
	if err != nil {
		return nil, err
	}

	// 权限：机器人只能为自己上报，监护人只能为名下老人上报
	if err := s.authorizeForElder(callerID, callerRole, robot, elder); err != nil {
		return nil, err
	}

	detectedAt := s.Now()
	if req.DetectedAt != nil {
		detectedAt = *req.DetectedAt
	}

	unlock := s.ElderLocks.Lock(elder.ID)
	defer unlock()

	robotID := robot.ID
	emergency := &models.Emergency{
		ElderID:    elder.ID,
		RobotID:    &robotID,
		Type:       req.Type,
		Location:   req.Location,
		Resolution: models.ResolutionPending,
		DetectedAt: detectedAt,
		Confidence: req.Confidence,
		SensorData: req.SensorData,
	}
	if err := s.Emergencies.CreateEmergency(emergency); err != nil {
		return nil, err
	}

	// 锁内重读老人，在最新状态上做提升
	elder, err = s.Elders.GetElderByID(elder.ID)
	if err != nil {
		return nil, err
	}
	elder.SafetyStatus = models.SafetyStatusDanger
	elder.LastActivityAt = &detectedAt
	if req.Location != "" {
		elder.LastLocation = req.Location
	}
	if err := s.Elders.SaveElder(elder); err != nil {
		return nil, err
	}

	config.Warning("[紧急] 老人 %d 发生 %s 事件（机器人 %d 上报）", elder.ID, emergency.Type, robot.ID)

	// 紧急广播 + 老人状态 + 监护人通知
	s.Notifier.PublishEmergencyAlert(EmergencyAlertPayload{
		EmergencyID: emergency.ID,
		ElderID:     elder.ID,
		ElderName:   elder.Name,
		Type:        string(emergency.Type),
		Location:    emergency.Location,
		DetectedAt:  emergency.DetectedAt,
	})
	s.Notifier.PublishElderStatus(elder.ID, ElderStatusPayload{
		ElderID:      elder.ID,
		Status:       elder.SafetyStatus,
		LastActivity: elder.LastActivityAt,
		Location:     elder.LastLocation,
	})
	s.Notifier.PublishUserNotification(elder.GuardianID, UserNotificationPayload{
		ID:      uuid.New().String(),
		Type:    NotifyTypeEmergency,
		Title:   "紧急事件告警",
		Message: fmt.Sprintf("%s 发生紧急事件（%s），请立即确认", elder.Name, emergency.Type),
		ElderID: elder.ID,
	})

	return emergency, nil
}

// 2 ResolveEmergency 处理紧急事件
// 已处于终态的事件拒绝重复处理；成功后在临界区内重新查询pending事件数来回落老人状态
func (s *EmergencyService) ResolveEmergency(callerID uint, callerRole string, emergencyID uint, resolution models.EmergencyResolution, note string) (*models.Emergency, error) {
	if resolution != models.ResolutionResolved && resolution != models.ResolutionFalseAlarm {
		return nil, ErrInvalidResolution
	}

	emergency, err := s.Emergencies.GetEmergencyByID(emergencyID)
	if err != nil {
		return nil, err
	}

	elder, err := s.Elders.GetElderByID(emergency.ElderID)
	if err != nil {
		return nil, err
	}

	// 机器人不能处理事件，只有监护人和管理员可以
	if callerRole != RoleAdmin && !(callerRole == RoleGuardian && elder.GuardianID == callerID) {
		return nil, ErrAccessDenied
	}

	unlock := s.ElderLocks.Lock(elder.ID)
	defer unlock()

	// 锁内重读事件，两个并发处理只有一个能通过终态检查
	emergency, err = s.Emergencies.GetEmergencyByID(emergencyID)
	if err != nil {
		return nil, err
	}
	if emergency.IsTerminal() {
		return nil, ErrEmergencyAlreadyResolved
	}

	now := s.Now()
	emergency.Resolution = resolution
	emergency.ResolutionNote = note
	emergency.ResolvedAt = &now
	if err := s.Emergencies.SaveEmergency(emergency); err != nil {
		return nil, err
	}

	// 重新查询而不是沿用早先的计数：期间可能又有新事件上报
	pending, err := s.Emergencies.HasPendingEmergency(elder.ID)
	if err != nil {
		return nil, err
	}

	if !pending {
		elder, err = s.Elders.GetElderByID(elder.ID)
		if err != nil {
			return nil, err
		}
		// 只做danger→safe的回落；warning由外部协作方维护，这里不覆盖
		if elder.SafetyStatus == models.SafetyStatusDanger {
			elder.SafetyStatus = models.SafetyStatusSafe
			if err := s.Elders.SaveElder(elder); err != nil {
				return nil, err
			}
			s.Notifier.PublishElderStatus(elder.ID, ElderStatusPayload{
				ElderID:      elder.ID,
				Status:       elder.SafetyStatus,
				LastActivity: elder.LastActivityAt,
				Location:     elder.LastLocation,
			})
		}
	}

	config.Info("[紧急] 事件 %d 已处理为 %s", emergency.ID, resolution)
	return emergency, nil
}

// 3 GetEmergency 获取单个紧急事件，仅限管理员或所属监护人
func (s *EmergencyService) GetEmergency(callerID uint, callerRole string, emergencyID uint) (*models.Emergency, error) {
	emergency, err := s.Emergencies.GetEmergencyByID(emergencyID)
	if err != nil {
		return nil, err
	}

	if callerRole == RoleAdmin {
		return emergency, nil
	}

	elder, err := s.Elders.GetElderByID(emergency.ElderID)
	if err != nil {
		return nil, err
	}
	if callerRole == RoleGuardian && elder.GuardianID == callerID {
		return emergency, nil
	}
	return nil, ErrAccessDenied
}

// 4 ListEmergencies 分页列出紧急事件，最近的在前
// 管理员可见全部，监护人仅可见名下老人的事件
func (s *EmergencyService) ListEmergencies(callerID uint, callerRole string, page, pageSize int) ([]models.Emergency, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	switch callerRole {
	case RoleAdmin:
		return s.Emergencies.ListEmergencies(page, pageSize)
	case RoleGuardian:
		return s.Emergencies.ListEmergenciesByGuardian(callerID, page, pageSize)
	default:
		return nil, 0, ErrAccessDenied
	}
}

// authorizeForElder 校验调用者对该老人的操作权限
func (s *EmergencyService) authorizeForElder(callerID uint, callerRole string, robot *models.Robot, elder *models.Elder) error {
	switch callerRole {
	case RoleAdmin:
		return nil
	case RoleRobot:
		if callerID == robot.ID {
			return nil
		}
	case RoleGuardian:
		if elder.GuardianID == callerID {
			return nil
		}
	}
	return ErrAccessDenied
}
