package services

import (
	"fmt"
	"sync"
	"time"

	"carebot-http-service/config"
	"carebot-http-service/models"

	"github.com/google/uuid"
)

// InterfaceConnectionMonitorService 定义连接监控服务接口
type InterfaceConnectionMonitorService interface {
	Start()
	Stop()
	SweepOnce()
}

// ConnectionMonitorService 周期巡检机器人心跳，驱动连接状态迁移并发出节流后的离线告警
// 每台机器人的读-改-发布是独立的工作单元：单台失败不影响其余机器人
type ConnectionMonitorService struct {
	Robots   RobotStore
	Elders   ElderStore
	Notifier InterfaceNotificationService
	Config   *config.Config

	// 与心跳上报共用的机器人锁，防止巡检与上报互相覆盖
	RobotLocks *KeyedMutex

	// Now 可注入的时钟，默认time.Now
	Now func() time.Time

	sweepMu sync.Mutex // 保证巡检不自我重叠
	stopCh  chan struct{}
	doneCh  chan struct{}
	startMu sync.Mutex
	started bool
}

// NewConnectionMonitorService 创建一个新的连接监控服务
func NewConnectionMonitorService(robots RobotStore, elders ElderStore, notifier InterfaceNotificationService, cfg *config.Config, robotLocks *KeyedMutex) *ConnectionMonitorService {
	return &ConnectionMonitorService{
		Robots:     robots,
		Elders:     elders,
		Notifier:   notifier,
		Config:     cfg,
		RobotLocks: robotLocks,
		Now:        time.Now,
	}
}

// Start 启动周期巡检任务
func (s *ConnectionMonitorService) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run()
	config.Info("[监控] 连接监控已启动，巡检周期 %v，离线阈值 %v，告警节流窗口 %v",
		s.Config.MonitorSweepInterval, s.Config.DisconnectThreshold, s.Config.OfflineNotifyThreshold)
}

// Stop 停止巡检任务，等待当前机器人处理完毕后返回
// 巡检在机器人之间响应停止信号，不会把一台机器人留在迁移中途
func (s *ConnectionMonitorService) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if !s.started {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.started = false
	config.Info("[监控] 连接监控已停止")
}

// run 巡检主循环。单协程顺序消费ticker，巡检天然不会自我重叠；
// 巡检耗时超过周期时，多余的tick被丢弃
func (s *ConnectionMonitorService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Config.MonitorSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce 对全部机器人执行一轮巡检
// 上一轮未结束时再次调用会被直接跳过
func (s *ConnectionMonitorService) SweepOnce() {
	if !s.sweepMu.TryLock() {
		return
	}
	defer s.sweepMu.Unlock()

	robots, err := s.Robots.ListRobots()
	if err != nil {
		config.Error("[监控] 获取机器人列表失败: %v", err)
		return
	}

	for _, robot := range robots {
		// 停机信号在机器人之间检查：已提交的迁移保留，后续的留给下一轮
		if s.stopCh != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
		}

		if err := s.checkRobot(robot.ID); err != nil {
			// 单台失败只记日志，该机器人保持原状态等待下一轮
			config.Error("[监控] 巡检机器人 %d 失败: %v", robot.ID, err)
		}
	}
}

// checkRobot 单台机器人的工作单元：加锁后重读状态再判定迁移
func (s *ConnectionMonitorService) checkRobot(robotID uint) error {
	unlock := s.RobotLocks.Lock(robotID)
	defer unlock()

	// 锁内重读，避免依据过期快照做迁移
	robot, err := s.Robots.GetRobotByID(robotID)
	if err != nil {
		return err
	}

	now := s.Now()

	// 从未上报过心跳的机器人视为无限久离线
	if robot.LastHeartbeatAt == nil {
		if robot.ConnectivityState != models.ConnectivityDisconnected {
			robot.ConnectivityState = models.ConnectivityDisconnected
			if err := s.Robots.SaveRobot(robot); err != nil {
				return err
			}
			s.publishStatus(robot)
		}
		return s.maybeNotifyOffline(robot, now)
	}

	offline := now.Sub(*robot.LastHeartbeatAt)

	// 断开迁移
	if offline >= s.Config.DisconnectThreshold && robot.ConnectivityState == models.ConnectivityConnected {
		robot.ConnectivityState = models.ConnectivityDisconnected
		if err := s.Robots.SaveRobot(robot); err != nil {
			return err
		}
		config.Warning("[监控] 机器人 %d 已离线，最后心跳 %v 前", robot.ID, offline.Round(time.Second))
		s.publishStatus(robot)
	}

	// 重连迁移：清空告警节流戳，下一次离线可以再次告警
	if offline < s.Config.DisconnectThreshold && robot.ConnectivityState == models.ConnectivityDisconnected {
		robot.ConnectivityState = models.ConnectivityConnected
		robot.LastOfflineNotifiedAt = nil
		if err := s.Robots.SaveRobot(robot); err != nil {
			return err
		}
		config.Info("[监控] 机器人 %d 已重新连接", robot.ID)
		s.publishStatus(robot)
		return nil
	}

	if robot.ConnectivityState == models.ConnectivityDisconnected && offline >= s.Config.OfflineNotifyThreshold {
		return s.maybeNotifyOffline(robot, now)
	}
	return nil
}

// maybeNotifyOffline 在节流窗口内至多发出一次离线告警
// 每个持续离线期、每个窗口一条，而不是每轮巡检一条
func (s *ConnectionMonitorService) maybeNotifyOffline(robot *models.Robot, now time.Time) error {
	if robot.LastOfflineNotifiedAt != nil && now.Sub(*robot.LastOfflineNotifiedAt) < s.Config.OfflineNotifyThreshold {
		return nil
	}

	elder, err := s.Elders.GetElderByID(robot.ElderID)
	if err != nil {
		return err
	}

	robot.LastOfflineNotifiedAt = &now
	if err := s.Robots.SaveRobot(robot); err != nil {
		return err
	}

	s.Notifier.PublishUserNotification(elder.GuardianID, UserNotificationPayload{
		ID:      uuid.New().String(),
		Type:    NotifyTypeRobotOffline,
		Title:   "机器人离线提醒",
		Message: fmt.Sprintf("%s 的陪伴机器人 %s 已长时间失去连接，请检查设备", elder.Name, robot.Name),
		ElderID: elder.ID,
	})
	config.Warning("[监控] 已发送机器人 %d 离线告警", robot.ID)
	return nil
}

// publishStatus 推送机器人连接状态变化
func (s *ConnectionMonitorService) publishStatus(robot *models.Robot) {
	s.Notifier.PublishRobotStatus(robot.ID, RobotStatusPayload{
		RobotID:         robot.ID,
		ElderID:         robot.ElderID,
		BatteryLevel:    robot.BatteryLevel,
		NetworkStatus:   string(robot.ConnectivityState),
		CurrentLocation: robot.CurrentLocation,
		LCDMode:         string(robot.LCDModeState),
	})
}
