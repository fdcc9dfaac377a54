package models

import (
	"time"
)

// ConnectivityState 表示机器人的连接状态
type ConnectivityState string

const (
	ConnectivityConnected    ConnectivityState = "connected"
	ConnectivityDisconnected ConnectivityState = "disconnected"
)

// LCDMode 表示机器人屏幕的显示模式
type LCDMode string

const (
	LCDModeIdle      LCDMode = "idle"
	LCDModeTalking   LCDMode = "talking"
	LCDModeAlert     LCDMode = "alert"
	LCDModeSleeping  LCDMode = "sleeping"
	LCDModeCharging  LCDMode = "charging"
)

// Robot 表示陪伴老人的机器人设备
type Robot struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SerialNumber string            `gorm:"type:varchar(50);unique;not null" json:"serial_number"`
	Name         string            `gorm:"type:varchar(50)" json:"name"`
	Model        string            `gorm:"type:varchar(50)" json:"model"`
	ElderID      uint              `gorm:"not null;index" json:"elder_id"` // 所属老人ID

	// 连接状态：仅由心跳上报和连接监控巡检两条路径修改
	ConnectivityState ConnectivityState `gorm:"type:varchar(20);default:'disconnected'" json:"connectivity_state"`
	LastHeartbeatAt   *time.Time        `json:"last_heartbeat_at,omitempty"`
	// 离线告警节流时间戳，重连后清空以便下一次离线可再次告警
	LastOfflineNotifiedAt *time.Time `json:"last_offline_notified_at,omitempty"`

	// 设备运行信息（随心跳更新）
	BatteryLevel    int     `gorm:"default:0" json:"battery_level"`
	FirmwareVersion string  `gorm:"type:varchar(30)" json:"firmware_version"`
	CurrentLocation string  `gorm:"type:varchar(100)" json:"current_location"`
	LCDModeState    LCDMode `gorm:"column:lcd_mode;type:varchar(20);default:'idle'" json:"lcd_mode"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Elder       *Elder      `gorm:"foreignKey:ElderID" json:"elder,omitempty"`
	Emergencies []Emergency `gorm:"foreignKey:RobotID" json:"emergencies,omitempty"`
}
