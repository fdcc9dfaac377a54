package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"carebot-http-service/models"
)

func newTestRobotService(store *memoryStore, notifier *recordingNotifier, now time.Time) *RobotService {
	svc := NewRobotService(store, store, notifier, monitorTestConfig(), NewKeyedMutex()).(*RobotService)
	svc.Now = func() time.Time { return now }
	return svc
}

func TestHeartbeatRefreshesRuntimeInfo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	store.putElder(models.Elder{ID: 5, GuardianID: 7})
	store.putRobot(models.Robot{
		ID:                1,
		ElderID:           5,
		ConnectivityState: models.ConnectivityConnected,
		BatteryLevel:      80,
	})
	notifier := &recordingNotifier{}
	svc := newTestRobotService(store, notifier, now)

	robot, err := svc.Heartbeat(1, HeartbeatRequest{
		BatteryLevel:    62,
		CurrentLocation: "客厅",
		LCDMode:         string(models.LCDModeTalking),
	})
	if err != nil {
		t.Fatalf("心跳上报失败: %v", err)
	}
	if robot.LastHeartbeatAt == nil || !robot.LastHeartbeatAt.Equal(now) {
		t.Errorf("应刷新心跳时间")
	}
	if robot.BatteryLevel != 62 || robot.CurrentLocation != "客厅" {
		t.Errorf("应更新运行信息: %+v", robot)
	}
	// 在线机器人的普通心跳不产生状态推送
	if len(notifier.robotStatus) != 0 {
		t.Errorf("未发生迁移时不应推送状态")
	}
}

func TestHeartbeatReconnectsOfflineRobot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	store.putElder(models.Elder{ID: 5, GuardianID: 7})
	store.putRobot(models.Robot{
		ID:                    1,
		ElderID:               5,
		ConnectivityState:     models.ConnectivityDisconnected,
		LastOfflineNotifiedAt: timePtr(now.Add(-1 * time.Hour)),
	})
	notifier := &recordingNotifier{}
	svc := newTestRobotService(store, notifier, now)

	robot, err := svc.Heartbeat(1, HeartbeatRequest{BatteryLevel: 50})
	if err != nil {
		t.Fatalf("心跳上报失败: %v", err)
	}
	if robot.ConnectivityState != models.ConnectivityConnected {
		t.Fatalf("离线机器人收到心跳应立即迁移回在线")
	}
	if robot.LastOfflineNotifiedAt != nil {
		t.Errorf("重连应清空告警节流戳")
	}
	if len(notifier.robotStatus) != 1 || notifier.robotStatus[0].NetworkStatus != string(models.ConnectivityConnected) {
		t.Errorf("重连应推送1条在线状态")
	}
}

func TestHeartbeatUnknownRobot(t *testing.T) {
	store := newMemoryStore()
	svc := newTestRobotService(store, &recordingNotifier{}, time.Now())

	if _, err := svc.Heartbeat(42, HeartbeatRequest{}); !errors.Is(err, ErrRobotNotFound) {
		t.Fatalf("期望ErrRobotNotFound,实际 %v", err)
	}
}

func TestCreateRobotRejectsDuplicateSerial(t *testing.T) {
	store := newMemoryStore()
	store.putElder(models.Elder{ID: 5, GuardianID: 7})
	store.putRobot(models.Robot{ID: 1, ElderID: 5, SerialNumber: "CB-0001"})
	svc := newTestRobotService(store, &recordingNotifier{}, time.Now())

	err := svc.CreateRobot(&models.Robot{SerialNumber: "CB-0001", ElderID: 5})
	if err == nil {
		t.Fatalf("重复序列号应被拒绝")
	}
}

func TestCreateRobotDefaultsToDisconnected(t *testing.T) {
	store := newMemoryStore()
	store.putElder(models.Elder{ID: 5, GuardianID: 7})
	svc := newTestRobotService(store, &recordingNotifier{}, time.Now())

	robot := &models.Robot{SerialNumber: "CB-0002", ElderID: 5}
	if err := svc.CreateRobot(robot); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if robot.ConnectivityState != models.ConnectivityDisconnected {
		t.Errorf("新机器人收到首次心跳前应为离线状态")
	}
}

func TestUpdateLCDDoesNotEraseConcurrentHeartbeat(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	store.putElder(models.Elder{ID: 5, GuardianID: 7})
	store.putRobot(models.Robot{ID: 1, ElderID: 5, BatteryLevel: 80})
	notifier := &recordingNotifier{}
	svc := newTestRobotService(store, notifier, now)

	// 持有机器人锁，让UpdateLCD在读取前阻塞在加锁点
	unlock := svc.RobotLocks.Lock(1)
	done := make(chan error, 1)
	go func() {
		done <- svc.UpdateLCD(7, RoleGuardian, 1, RobotLCDPayload{Mode: string(models.LCDModeAlert)})
	}()
	time.Sleep(20 * time.Millisecond)

	// 持锁期间提交一次心跳写入
	robot := store.robot(1)
	robot.LastHeartbeatAt = timePtr(now)
	robot.BatteryLevel = 55
	store.putRobot(robot)

	unlock()
	if err := <-done; err != nil {
		t.Fatalf("下发屏幕显示失败: %v", err)
	}

	// UpdateLCD必须在锁内读取最新状态，不得用过期快照覆盖心跳
	robot = store.robot(1)
	if robot.LastHeartbeatAt == nil || !robot.LastHeartbeatAt.Equal(now) {
		t.Fatalf("心跳时间被过期快照覆盖: %+v", robot.LastHeartbeatAt)
	}
	if robot.BatteryLevel != 55 {
		t.Errorf("电量被过期快照覆盖: %d", robot.BatteryLevel)
	}
	if robot.LCDModeState != models.LCDModeAlert {
		t.Errorf("屏幕模式应已更新，实际 %s", robot.LCDModeState)
	}
}

func TestCreateRobotGeneratesSerialWhenEmpty(t *testing.T) {
	store := newMemoryStore()
	store.putElder(models.Elder{ID: 5, GuardianID: 7})
	svc := newTestRobotService(store, &recordingNotifier{}, time.Now())

	robot := &models.Robot{ElderID: 5, Name: "小伴"}
	if err := svc.CreateRobot(robot); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if !strings.HasPrefix(robot.SerialNumber, "CB-") || len(robot.SerialNumber) != len("CB-")+8 {
		t.Errorf("应自动生成序列号，实际 %q", robot.SerialNumber)
	}
}

func TestUpdateLCDPublishesAndAuthorizes(t *testing.T) {
	store := newMemoryStore()
	store.putElder(models.Elder{ID: 5, GuardianID: 7})
	store.putRobot(models.Robot{ID: 1, ElderID: 5})
	notifier := &recordingNotifier{}
	svc := newTestRobotService(store, notifier, time.Now())

	err := svc.UpdateLCD(7, RoleGuardian, 1, RobotLCDPayload{
		Mode:    string(models.LCDModeAlert),
		Message: "请确认安全",
	})
	if err != nil {
		t.Fatalf("下发屏幕显示失败: %v", err)
	}
	if got := store.robot(1).LCDModeState; got != models.LCDModeAlert {
		t.Errorf("应持久化屏幕模式，实际 %s", got)
	}
	if len(notifier.robotLCD) != 1 || notifier.robotLCD[0].RobotID != 1 {
		t.Errorf("应推送1条屏幕显示消息")
	}

	// 无关监护人不能下发
	if err := svc.UpdateLCD(8, RoleGuardian, 1, RobotLCDPayload{Mode: string(models.LCDModeIdle)}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("无关监护人下发应被拒绝，实际 %v", err)
	}
}
