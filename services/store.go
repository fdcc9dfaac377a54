package services

import (
	"errors"

	"carebot-http-service/models"

	"gorm.io/gorm"
)

// RobotStore 机器人持久化协作方
type RobotStore interface {
	GetRobotByID(id uint) (*models.Robot, error)
	GetRobotBySerial(serialNumber string) (*models.Robot, error)
	ListRobots() ([]models.Robot, error)
	ListRobotsByGuardian(guardianID uint) ([]models.Robot, error)
	SaveRobot(robot *models.Robot) error
	CreateRobot(robot *models.Robot) error
	DeleteRobot(id uint) error
	CountRobotsBySerial(serialNumber string, excludeID uint) (int64, error)
}

// ElderStore 老人持久化协作方
type ElderStore interface {
	GetElderByID(id uint) (*models.Elder, error)
	ListEldersByGuardian(guardianID uint) ([]models.Elder, error)
	ListElders() ([]models.Elder, error)
	SaveElder(elder *models.Elder) error
	CreateElder(elder *models.Elder) error
	DeleteElder(id uint) error
}

// EmergencyStore 紧急事件持久化协作方
type EmergencyStore interface {
	GetEmergencyByID(id uint) (*models.Emergency, error)
	CreateEmergency(emergency *models.Emergency) error
	SaveEmergency(emergency *models.Emergency) error
	// HasPendingEmergency 查询某老人是否还有未解除的紧急事件
	// 聚合安全状态必须基于该实时查询，不允许使用早先缓存的计数
	HasPendingEmergency(elderID uint) (bool, error)
	ListEmergencies(page, pageSize int) ([]models.Emergency, int64, error)
	ListEmergenciesByGuardian(guardianID uint, page, pageSize int) ([]models.Emergency, int64, error)
}

// GormStore 基于GORM的持久化实现，同时满足上面三个协作方接口
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore 创建一个新的GORM持久化实现
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// GetRobotByID 根据ID获取机器人
func (s *GormStore) GetRobotByID(id uint) (*models.Robot, error) {
	var robot models.Robot
	if err := s.DB.First(&robot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRobotNotFound
		}
		return nil, err
	}
	return &robot, nil
}

// GetRobotBySerial 根据序列号获取机器人
func (s *GormStore) GetRobotBySerial(serialNumber string) (*models.Robot, error) {
	var robot models.Robot
	if err := s.DB.Where("serial_number = ?", serialNumber).First(&robot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRobotNotFound
		}
		return nil, err
	}
	return &robot, nil
}

// ListRobots 获取所有机器人
func (s *GormStore) ListRobots() ([]models.Robot, error) {
	var robots []models.Robot
	if err := s.DB.Find(&robots).Error; err != nil {
		return nil, err
	}
	return robots, nil
}

// ListRobotsByGuardian 获取某监护人名下所有老人的机器人
func (s *GormStore) ListRobotsByGuardian(guardianID uint) ([]models.Robot, error) {
	var robots []models.Robot
	if err := s.DB.
		Joins("JOIN elders ON elders.id = robots.elder_id").
		Where("elders.guardian_id = ?", guardianID).
		Find(&robots).Error; err != nil {
		return nil, err
	}
	return robots, nil
}

// SaveRobot 保存机器人的全部字段
func (s *GormStore) SaveRobot(robot *models.Robot) error {
	return s.DB.Save(robot).Error
}

// CreateRobot 创建新机器人
func (s *GormStore) CreateRobot(robot *models.Robot) error {
	return s.DB.Create(robot).Error
}

// DeleteRobot 删除机器人
func (s *GormStore) DeleteRobot(id uint) error {
	return s.DB.Delete(&models.Robot{}, id).Error
}

// CountRobotsBySerial 统计指定序列号的机器人数量（用于唯一性校验）
func (s *GormStore) CountRobotsBySerial(serialNumber string, excludeID uint) (int64, error) {
	var count int64
	query := s.DB.Model(&models.Robot{}).Where("serial_number = ?", serialNumber)
	if excludeID > 0 {
		query = query.Where("id != ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetElderByID 根据ID获取老人
func (s *GormStore) GetElderByID(id uint) (*models.Elder, error) {
	var elder models.Elder
	if err := s.DB.First(&elder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElderNotFound
		}
		return nil, err
	}
	return &elder, nil
}

// ListEldersByGuardian 获取某监护人名下的所有老人
func (s *GormStore) ListEldersByGuardian(guardianID uint) ([]models.Elder, error) {
	var elders []models.Elder
	if err := s.DB.Where("guardian_id = ?", guardianID).Find(&elders).Error; err != nil {
		return nil, err
	}
	return elders, nil
}

// ListElders 获取所有老人
func (s *GormStore) ListElders() ([]models.Elder, error) {
	var elders []models.Elder
	if err := s.DB.Find(&elders).Error; err != nil {
		return nil, err
	}
	return elders, nil
}

// SaveElder 保存老人的全部字段
func (s *GormStore) SaveElder(elder *models.Elder) error {
	return s.DB.Save(elder).Error
}

// CreateElder 创建新老人档案
func (s *GormStore) CreateElder(elder *models.Elder) error {
	return s.DB.Create(elder).Error
}

// DeleteElder 删除老人档案
func (s *GormStore) DeleteElder(id uint) error {
	return s.DB.Delete(&models.Elder{}, id).Error
}

// GetEmergencyByID 根据ID获取紧急事件
func (s *GormStore) GetEmergencyByID(id uint) (*models.Emergency, error) {
	var emergency models.Emergency
	if err := s.DB.First(&emergency, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmergencyNotFound
		}
		return nil, err
	}
	return &emergency, nil
}

// CreateEmergency 创建紧急事件记录
func (s *GormStore) CreateEmergency(emergency *models.Emergency) error {
	return s.DB.Create(emergency).Error
}

// SaveEmergency 保存紧急事件的全部字段
func (s *GormStore) SaveEmergency(emergency *models.Emergency) error {
	return s.DB.Save(emergency).Error
}

// HasPendingEmergency 查询某老人是否还有未解除的紧急事件
func (s *GormStore) HasPendingEmergency(elderID uint) (bool, error) {
	var count int64
	if err := s.DB.Model(&models.Emergency{}).
		Where("elder_id = ? AND resolution = ?", elderID, models.ResolutionPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListEmergencies 分页获取所有紧急事件，最近的在前
func (s *GormStore) ListEmergencies(page, pageSize int) ([]models.Emergency, int64, error) {
	var emergencies []models.Emergency
	var total int64

	if err := s.DB.Model(&models.Emergency{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := s.DB.Order("detected_at DESC").
		Limit(pageSize).Offset(offset).
		Find(&emergencies).Error; err != nil {
		return nil, 0, err
	}
	return emergencies, total, nil
}

// ListEmergenciesByGuardian 分页获取某监护人名下老人的紧急事件，最近的在前
func (s *GormStore) ListEmergenciesByGuardian(guardianID uint, page, pageSize int) ([]models.Emergency, int64, error) {
	var emergencies []models.Emergency
	var total int64

	base := s.DB.Model(&models.Emergency{}).
		Joins("JOIN elders ON elders.id = emergencies.elder_id").
		Where("elders.guardian_id = ?", guardianID)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := base.Order("emergencies.detected_at DESC").
		Limit(pageSize).Offset(offset).
		Find(&emergencies).Error; err != nil {
		return nil, 0, err
	}
	return emergencies, total, nil
}
