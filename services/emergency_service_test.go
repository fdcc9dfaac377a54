package services

import (
	"errors"
	"testing"
	"time"

	"carebot-http-service/models"
)

func newTestEmergencyService(store *memoryStore, notifier *recordingNotifier, now time.Time) *EmergencyService {
	svc := NewEmergencyService(store, store, store, notifier, NewKeyedMutex()).(*EmergencyService)
	svc.Now = func() time.Time { return now }
	return svc
}

func seedElderWithRobot(store *memoryStore) {
	store.putElder(models.Elder{ID: 5, GuardianID: 7, Name: "王奶奶", SafetyStatus: models.SafetyStatusSafe})
	store.putRobot(models.Robot{ID: 1, ElderID: 5, Name: "小伴"})
}

func TestReportEmergencyEscalatesElderToDanger(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedElderWithRobot(store)
	notifier := &recordingNotifier{}
	svc := newTestEmergencyService(store, notifier, now)

	emergency, err := svc.ReportEmergency(1, RoleRobot, ReportEmergencyRequest{
		RobotID:  1,
		Type:     models.EmergencyTypeFall,
		Location: "卧室",
	})
	if err != nil {
		t.Fatalf("上报失败: %v", err)
	}
	if emergency.Resolution != models.ResolutionPending {
		t.Errorf("新事件应为pending,实际 %s", emergency.Resolution)
	}
	if !emergency.DetectedAt.Equal(now) {
		t.Errorf("未指定检测时间时应取当前时间")
	}

	elder := store.elder(5)
	if elder.SafetyStatus != models.SafetyStatusDanger {
		t.Fatalf("上报后老人应为danger,实际 %s", elder.SafetyStatus)
	}
	if elder.LastLocation != "卧室" {
		t.Errorf("应记录事发位置")
	}

	if len(notifier.alerts) != 1 {
		t.Fatalf("应发出1条紧急广播，实际 %d", len(notifier.alerts))
	}
	if notifier.alerts[0].ElderName != "王奶奶" || notifier.alerts[0].Type != string(models.EmergencyTypeFall) {
		t.Errorf("紧急广播载荷错误: %+v", notifier.alerts[0])
	}
	if len(notifier.elderStatus) != 1 || notifier.elderStatus[0].Status != models.SafetyStatusDanger {
		t.Errorf("应推送老人danger状态")
	}
	if len(notifier.userNotes) != 1 || notifier.userNotes[0].Type != NotifyTypeEmergency {
		t.Errorf("应向监护人推送紧急通知")
	}
	if notifier.userNoteTo[0] != 7 {
		t.Errorf("紧急通知应发给监护人7，实际 %d", notifier.userNoteTo[0])
	}
}

func TestResolveLastPendingEmergencyRestoresSafe(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedElderWithRobot(store)
	notifier := &recordingNotifier{}
	svc := newTestEmergencyService(store, notifier, now)

	first, _ := svc.ReportEmergency(1, RoleRobot, ReportEmergencyRequest{RobotID: 1, Type: models.EmergencyTypeFall})
	second, _ := svc.ReportEmergency(1, RoleRobot, ReportEmergencyRequest{RobotID: 1, Type: models.EmergencyTypeSOS})

	// 只处理第一条：还有pending事件，老人必须保持danger
	resolved, err := svc.ResolveEmergency(7, RoleGuardian, first.ID, models.ResolutionFalseAlarm, "误触")
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(now) {
		t.Errorf("进入终态时应记录处理时间")
	}
	if store.elder(5).SafetyStatus != models.SafetyStatusDanger {
		t.Fatalf("仍有pending事件时老人应保持danger")
	}

	// 处理最后一条：老人回落safe并推送状态
	statusBefore := len(notifier.elderStatus)
	if _, err := svc.ResolveEmergency(7, RoleGuardian, second.ID, models.ResolutionResolved, "已到场处理"); err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	elder := store.elder(5)
	if elder.SafetyStatus != models.SafetyStatusSafe {
		t.Fatalf("全部事件解除后老人应回落safe,实际 %s", elder.SafetyStatus)
	}
	if len(notifier.elderStatus) != statusBefore+1 {
		t.Fatalf("回落safe时应推送1条老人状态")
	}
	if notifier.elderStatus[len(notifier.elderStatus)-1].Status != models.SafetyStatusSafe {
		t.Errorf("回落推送应为safe状态")
	}
}

func TestResolvePreservesWarningStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedElderWithRobot(store)
	notifier := &recordingNotifier{}
	svc := newTestEmergencyService(store, notifier, now)

	emergency, _ := svc.ReportEmergency(1, RoleRobot, ReportEmergencyRequest{RobotID: 1, Type: models.EmergencyTypeNoMotion})

	// 外部协作方在事件期间把老人降为warning
	elder := store.elder(5)
	elder.SafetyStatus = models.SafetyStatusWarning
	store.putElder(elder)

	statusBefore := len(notifier.elderStatus)
	if _, err := svc.ResolveEmergency(7, RoleGuardian, emergency.ID, models.ResolutionResolved, ""); err != nil {
		t.Fatalf("处理失败: %v", err)
	}

	// warning不归本服务管理，只做danger→safe的回落
	if got := store.elder(5).SafetyStatus; got != models.SafetyStatusWarning {
		t.Fatalf("warning状态不应被覆盖，实际 %s", got)
	}
	if len(notifier.elderStatus) != statusBefore {
		t.Errorf("未发生回落时不应推送老人状态")
	}
}

func TestResolveTerminalEmergencyRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedElderWithRobot(store)
	notifier := &recordingNotifier{}
	svc := newTestEmergencyService(store, notifier, now)

	emergency, _ := svc.ReportEmergency(1, RoleRobot, ReportEmergencyRequest{RobotID: 1, Type: models.EmergencyTypeFall})
	if _, err := svc.ResolveEmergency(7, RoleGuardian, emergency.ID, models.ResolutionResolved, "已处理"); err != nil {
		t.Fatalf("首次处理失败: %v", err)
	}

	// 重复处理是硬冲突，且不得改写已有终态
	_, err := svc.ResolveEmergency(7, RoleGuardian, emergency.ID, models.ResolutionFalseAlarm, "想改口")
	if !errors.Is(err, ErrEmergencyAlreadyResolved) {
		t.Fatalf("期望ErrEmergencyAlreadyResolved,实际 %v", err)
	}
	stored := store.emergency(emergency.ID)
	if stored.Resolution != models.ResolutionResolved || stored.ResolutionNote != "已处理" {
		t.Errorf("终态事件不应被改写: %+v", stored)
	}
}

func TestResolveRejectsInvalidResolution(t *testing.T) {
	store := newMemoryStore()
	seedElderWithRobot(store)
	svc := newTestEmergencyService(store, &recordingNotifier{}, time.Now())

	_, err := svc.ResolveEmergency(7, RoleGuardian, 1, models.ResolutionPending, "")
	if !errors.Is(err, ErrInvalidResolution) {
		t.Fatalf("期望ErrInvalidResolution,实际 %v", err)
	}
}

func TestEmergencyAuthorization(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedElderWithRobot(store)
	notifier := &recordingNotifier{}
	svc := newTestEmergencyService(store, notifier, now)

	// 机器人只能为自己上报
	if _, err := svc.ReportEmergency(2, RoleRobot, ReportEmergencyRequest{RobotID: 1, Type: models.EmergencyTypeFall}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("其他机器人上报应被拒绝，实际 %v", err)
	}
	// 非所属监护人不能上报
	if _, err := svc.ReportEmergency(99, RoleGuardian, ReportEmergencyRequest{RobotID: 1, Type: models.EmergencyTypeFall}); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("无关监护人上报应被拒绝，实际 %v", err)
	}
	if len(notifier.alerts) != 0 {
		t.Fatalf("被拒绝的上报不应产生广播")
	}

	emergency, err := svc.ReportEmergency(7, RoleGuardian, ReportEmergencyRequest{RobotID: 1, Type: models.EmergencyTypeSOS})
	if err != nil {
		t.Fatalf("所属监护人上报失败: %v", err)
	}

	// 机器人不能处理事件
	if _, err := svc.ResolveEmergency(1, RoleRobot, emergency.ID, models.ResolutionResolved, ""); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("机器人处理事件应被拒绝，实际 %v", err)
	}
	// 无关监护人不能查看
	if _, err := svc.GetEmergency(99, RoleGuardian, emergency.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("无关监护人查看应被拒绝，实际 %v", err)
	}
	// 管理员可以处理
	if _, err := svc.ResolveEmergency(100, RoleAdmin, emergency.ID, models.ResolutionResolved, ""); err != nil {
		t.Errorf("管理员处理失败: %v", err)
	}
}

func TestReportEmergencyUnknownRobot(t *testing.T) {
	store := newMemoryStore()
	svc := newTestEmergencyService(store, &recordingNotifier{}, time.Now())

	_, err := svc.ReportEmergency(1, RoleAdmin, ReportEmergencyRequest{RobotID: 42, Type: models.EmergencyTypeFall})
	if !errors.Is(err, ErrRobotNotFound) {
		t.Fatalf("期望ErrRobotNotFound,实际 %v", err)
	}
}

func TestListEmergenciesScopedByGuardian(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore()
	seedElderWithRobot(store)
	store.putElder(models.Elder{ID: 6, GuardianID: 8, Name: "李爷爷"})
	store.putRobot(models.Robot{ID: 2, ElderID: 6})
	svc := newTestEmergencyService(store, &recordingNotifier{}, now)

	if _, err := svc.ReportEmergency(1, RoleRobot, ReportEmergencyRequest{RobotID: 1, Type: models.EmergencyTypeFall}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ReportEmergency(2, RoleRobot, ReportEmergencyRequest{RobotID: 2, Type: models.EmergencyTypeSOS}); err != nil {
		t.Fatal(err)
	}

	all, total, err := svc.ListEmergencies(100, RoleAdmin, 1, 20)
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("管理员应看到全部事件: total=%d err=%v", total, err)
	}

	scoped, total, err := svc.ListEmergencies(7, RoleGuardian, 1, 20)
	if err != nil || total != 1 || len(scoped) != 1 {
		t.Fatalf("监护人只应看到名下老人的事件: total=%d err=%v", total, err)
	}
	if scoped[0].ElderID != 5 {
		t.Errorf("事件归属错误: %+v", scoped[0])
	}

	if _, _, err := svc.ListEmergencies(1, RoleRobot, 1, 20); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("机器人不应能列出事件，实际 %v", err)
	}
}
