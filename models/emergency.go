package models

import (
	"encoding/json"
	"time"
)

// EmergencyResolution 表示紧急事件的处理状态
// 状态机: pending → resolved | false_alarm，两个终态均不可再迁移
type EmergencyResolution string

const (
	ResolutionPending    EmergencyResolution = "pending"
	ResolutionResolved   EmergencyResolution = "resolved"
	ResolutionFalseAlarm EmergencyResolution = "false_alarm"
)

// EmergencyType 表示紧急事件类型
type EmergencyType string

const (
	EmergencyTypeFall      EmergencyType = "fall"       // 跌倒
	EmergencyTypeSOS       EmergencyType = "sos"        // 主动呼救
	EmergencyTypeNoMotion  EmergencyType = "no_motion"  // 长时间无活动
	EmergencyTypeAbnormal  EmergencyType = "abnormal"   // 生命体征异常
)

// Emergency 表示机器人上报的紧急事件
type Emergency struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	ElderID uint  `gorm:"not null;index" json:"elder_id"`
	RobotID *uint `gorm:"index" json:"robot_id,omitempty"` // 上报的机器人，可为空（人工录入）

	Type     EmergencyType `gorm:"type:varchar(30);not null" json:"type"`
	Location string        `gorm:"type:varchar(100)" json:"location"`

	Resolution     EmergencyResolution `gorm:"type:varchar(20);default:'pending';index" json:"resolution"`
	ResolutionNote string              `gorm:"type:text" json:"resolution_note,omitempty"`

	DetectedAt time.Time  `gorm:"not null" json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"` // 非空当且仅当已脱离pending

	// 检测附加信息
	Confidence float64         `json:"confidence,omitempty"`
	SensorData json.RawMessage `gorm:"type:json" json:"sensor_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Elder *Elder `gorm:"foreignKey:ElderID" json:"elder,omitempty"`
	Robot *Robot `gorm:"foreignKey:RobotID" json:"robot,omitempty"`
}

// IsTerminal 判断事件是否已处于终态
func (e *Emergency) IsTerminal() bool {
	return e.Resolution != ResolutionPending
}
