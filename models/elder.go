package models

import (
	"time"
)

// SafetyStatus 表示老人的综合安全状态
type SafetyStatus string

const (
	SafetyStatusSafe    SafetyStatus = "safe"
	SafetyStatusWarning SafetyStatus = "warning" // 由外部协作方设置（如行为分析），本系统只保留不覆盖
	SafetyStatusDanger  SafetyStatus = "danger"  // 存在未解除的紧急事件时必须为danger
)

// Elder 表示被照护的老人
type Elder struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	GuardianID uint   `gorm:"not null;index" json:"guardian_id"` // 监护人（看护者账号）ID
	Name       string `gorm:"type:varchar(50);not null" json:"name"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Address    string     `gorm:"type:varchar(200)" json:"address"`
	Phone      string     `gorm:"type:varchar(20)" json:"phone"`

	// 安全状态：danger当且仅当存在pending紧急事件，不允许缓存过期值
	SafetyStatus   SafetyStatus `gorm:"type:varchar(20);default:'safe'" json:"safety_status"`
	LastActivityAt *time.Time   `json:"last_activity_at,omitempty"`
	LastLocation   string       `gorm:"type:varchar(100)" json:"last_location"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Guardian    *Guardian   `gorm:"foreignKey:GuardianID" json:"guardian,omitempty"`
	Robots      []Robot     `gorm:"foreignKey:ElderID" json:"robots,omitempty"`
	Emergencies []Emergency `gorm:"foreignKey:ElderID" json:"emergencies,omitempty"`
}
