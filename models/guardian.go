package models

import (
	"time"
)

// Guardian 表示老人的监护人（看护者账号）
type Guardian struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(50);unique;not null" json:"username"`
	Password  string    `gorm:"type:varchar(100);not null" json:"-"` // 密码不对外暴露
	Name      string    `gorm:"type:varchar(50)" json:"name"`
	Phone     string    `gorm:"type:varchar(20)" json:"phone"`
	Email     string    `gorm:"type:varchar(100)" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Elders []Elder `gorm:"foreignKey:GuardianID" json:"elders,omitempty"`
}
