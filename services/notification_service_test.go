package services

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"carebot-http-service/models"
)

func TestTopicNaming(t *testing.T) {
	if got := TopicRobotStatus(3); got != "/topic/robot/3/status" {
		t.Errorf("机器人状态主题错误: %s", got)
	}
	if got := TopicRobotLCD(3); got != "/topic/robot/3/lcd" {
		t.Errorf("机器人屏幕主题错误: %s", got)
	}
	if got := TopicElderStatus(5); got != "/topic/elder/5/status" {
		t.Errorf("老人状态主题错误: %s", got)
	}
	if got := TopicUserNotifications(7); got != "/topic/user/7/notifications" {
		t.Errorf("用户通知主题错误: %s", got)
	}
	if TopicEmergency != "/topic/emergency" {
		t.Errorf("紧急广播主题错误: %s", TopicEmergency)
	}
}

func TestPublishWrapsEnvelope(t *testing.T) {
	mqtt := &fakeMQTT{}
	svc := NewNotificationService(mqtt)

	before := time.Now().UnixMilli()
	svc.PublishElderStatus(5, ElderStatusPayload{
		ElderID:  5,
		Status:   models.SafetyStatusDanger,
		Location: "卧室",
	})
	after := time.Now().UnixMilli()

	if len(mqtt.published) != 1 {
		t.Fatalf("期望1次发布，实际 %d", len(mqtt.published))
	}
	msg := mqtt.published[0]
	if msg.topic != "/topic/elder/5/status" {
		t.Errorf("发布主题错误: %s", msg.topic)
	}

	var envelope struct {
		Type      string             `json:"type"`
		Payload   ElderStatusPayload `json:"payload"`
		Timestamp int64              `json:"timestamp"`
	}
	if err := json.Unmarshal(msg.payload, &envelope); err != nil {
		t.Fatalf("信封反序列化失败: %v", err)
	}
	if envelope.Type != EventElderStatus {
		t.Errorf("信封type错误: %s", envelope.Type)
	}
	if envelope.Payload.ElderID != 5 || envelope.Payload.Status != models.SafetyStatusDanger {
		t.Errorf("信封payload错误: %+v", envelope.Payload)
	}
	if envelope.Timestamp < before || envelope.Timestamp > after {
		t.Errorf("信封时间戳应为发布时刻的Unix毫秒: %d", envelope.Timestamp)
	}
}

func TestPublishEventTypes(t *testing.T) {
	mqtt := &fakeMQTT{}
	svc := NewNotificationService(mqtt)

	svc.PublishRobotStatus(3, RobotStatusPayload{RobotID: 3})
	svc.PublishRobotLCD(3, RobotLCDPayload{RobotID: 3, Mode: string(models.LCDModeAlert)})
	svc.PublishUserNotification(7, UserNotificationPayload{ID: "n1", Type: NotifyTypeRobotOffline})
	svc.PublishEmergencyAlert(EmergencyAlertPayload{EmergencyID: 9, ElderID: 5})

	want := []struct {
		topic     string
		eventType string
	}{
		{"/topic/robot/3/status", EventRobotStatus},
		{"/topic/robot/3/lcd", EventRobotLCD},
		{"/topic/user/7/notifications", EventUserNotification},
		{"/topic/emergency", EventEmergencyAlert},
	}
	if len(mqtt.published) != len(want) {
		t.Fatalf("期望 %d 次发布，实际 %d", len(want), len(mqtt.published))
	}
	for i, w := range want {
		if mqtt.published[i].topic != w.topic {
			t.Errorf("第%d条主题错误: %s", i, mqtt.published[i].topic)
		}
		var envelope NotificationMessage
		if err := json.Unmarshal(mqtt.published[i].payload, &envelope); err != nil {
			t.Fatalf("第%d条信封反序列化失败: %v", i, err)
		}
		if envelope.Type != w.eventType {
			t.Errorf("第%d条type错误: %s", i, envelope.Type)
		}
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	mqtt := &fakeMQTT{publishErr: errors.New("broker unavailable")}
	svc := NewNotificationService(mqtt)

	// at-most-once：发布失败只记日志，调用方不受影响
	svc.PublishEmergencyAlert(EmergencyAlertPayload{EmergencyID: 1})
	if len(mqtt.published) != 0 {
		t.Fatalf("失败的发布不应被记录")
	}
}
