package services

import (
	"encoding/json"
	"fmt"
	"time"

	"carebot-http-service/config"
	"carebot-http-service/models"
)

// 事件类型常量，写入消息信封的type字段
const (
	EventRobotStatus      = "robot_status"
	EventRobotLCD         = "robot_lcd"
	EventElderStatus      = "elder_status"
	EventUserNotification = "user_notification"
	EventEmergencyAlert   = "emergency_alert"
)

// 通知类型（per-user通知的细分类型）
const (
	NotifyTypeRobotOffline   = "robot_offline"
	NotifyTypeEmergency      = "emergency"
	NotifyTypeEmergencyEnded = "emergency_ended"
)

// 主题命名：实体ID与事件族的纯函数
// 谁能订阅由SubscriptionAuthService在订阅时判定，这里不做任何权限判断

// TopicRobotStatus 机器人状态主题
func TopicRobotStatus(robotID uint) string {
	return fmt.Sprintf("/topic/robot/%d/status", robotID)
}

// TopicRobotLCD 机器人屏幕显示主题
func TopicRobotLCD(robotID uint) string {
	return fmt.Sprintf("/topic/robot/%d/lcd", robotID)
}

// TopicElderStatus 老人安全状态主题
func TopicElderStatus(elderID uint) string {
	return fmt.Sprintf("/topic/elder/%d/status", elderID)
}

// TopicUserNotifications 用户个人通知主题
func TopicUserNotifications(userID uint) string {
	return fmt.Sprintf("/topic/user/%d/notifications", userID)
}

// TopicEmergency 全局紧急广播主题
const TopicEmergency = "/topic/emergency"

// NotificationMessage 消息信封：所有推送消息的统一结构
// 本结构不落库，at-most-once投递，错过即丢
type NotificationMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"` // Unix毫秒
}

// RobotStatusPayload 机器人状态载荷
type RobotStatusPayload struct {
	RobotID         uint   `json:"robot_id"`
	ElderID         uint   `json:"elder_id"`
	BatteryLevel    int    `json:"battery_level"`
	NetworkStatus   string `json:"network_status"`
	CurrentLocation string `json:"current_location"`
	LCDMode         string `json:"lcd_mode"`
}

// RobotLCDPayload 机器人屏幕显示载荷
type RobotLCDPayload struct {
	RobotID    uint   `json:"robot_id"`
	Mode       string `json:"mode"`
	Emotion    string `json:"emotion"`
	Message    string `json:"message"`
	SubMessage string `json:"sub_message"`
}

// ElderStatusPayload 老人安全状态载荷
type ElderStatusPayload struct {
	ElderID      uint                `json:"elder_id"`
	Status       models.SafetyStatus `json:"status"`
	LastActivity *time.Time          `json:"last_activity,omitempty"`
	Location     string              `json:"location"`
}

// UserNotificationPayload 用户个人通知载荷
type UserNotificationPayload struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	ElderID uint   `json:"elder_id"`
}

// EmergencyAlertPayload 全局紧急广播载荷
type EmergencyAlertPayload struct {
	EmergencyID uint      `json:"emergency_id"`
	ElderID     uint      `json:"elder_id"`
	ElderName   string    `json:"elder_name"`
	Type        string    `json:"type"`
	Location    string    `json:"location"`
	DetectedAt  time.Time `json:"detected_at"`
}

// InterfaceNotificationService 定义通知推送服务接口
// 每个事件族一个方法，每次调用恰好执行一次发布
type InterfaceNotificationService interface {
	PublishRobotStatus(robotID uint, payload RobotStatusPayload)
	PublishRobotLCD(robotID uint, payload RobotLCDPayload)
	PublishElderStatus(elderID uint, payload ElderStatusPayload)
	PublishUserNotification(userID uint, payload UserNotificationPayload)
	PublishEmergencyAlert(payload EmergencyAlertPayload)
}

// NotificationService 将领域事件封装成信封消息并交给MQTT传输
type NotificationService struct {
	MQTT InterfaceMQTTService
}

// NewNotificationService 创建一个新的通知推送服务
func NewNotificationService(mqttService InterfaceMQTTService) InterfaceNotificationService {
	return &NotificationService{
		MQTT: mqttService,
	}
}

// publish 构造信封并发布，发布失败只记日志不重试
// 仪表盘总能通过读接口拿到权威状态，丢一条实时提示是可接受的
func (s *NotificationService) publish(topic, eventType string, payload interface{}) {
	message := NotificationMessage{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		config.Error("[通知] 序列化消息失败 topic=%s: %v", topic, err)
		return
	}

	if err := s.MQTT.Publish(topic, data); err != nil {
		config.Warning("[通知] 发布失败 topic=%s: %v", topic, err)
	}
}

// PublishRobotStatus 推送机器人状态变化
func (s *NotificationService) PublishRobotStatus(robotID uint, payload RobotStatusPayload) {
	s.publish(TopicRobotStatus(robotID), EventRobotStatus, payload)
}

// PublishRobotLCD 推送机器人屏幕显示变化
func (s *NotificationService) PublishRobotLCD(robotID uint, payload RobotLCDPayload) {
	s.publish(TopicRobotLCD(robotID), EventRobotLCD, payload)
}

// PublishElderStatus 推送老人安全状态变化
func (s *NotificationService) PublishElderStatus(elderID uint, payload ElderStatusPayload) {
	s.publish(TopicElderStatus(elderID), EventElderStatus, payload)
}

// PublishUserNotification 推送用户个人通知
func (s *NotificationService) PublishUserNotification(userID uint, payload UserNotificationPayload) {
	s.publish(TopicUserNotifications(userID), EventUserNotification, payload)
}

// PublishEmergencyAlert 推送全局紧急广播
func (s *NotificationService) PublishEmergencyAlert(payload EmergencyAlertPayload) {
	s.publish(TopicEmergency, EventEmergencyAlert, payload)
}
