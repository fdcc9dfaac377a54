package services

import (
	"errors"

	"carebot-http-service/models"
	"carebot-http-service/utils"

	"gorm.io/gorm"
)

// InterfaceGuardianService 定义监护人服务接口
type InterfaceGuardianService interface {
	GetAllGuardians(page, pageSize int) ([]models.Guardian, int64, error)
	GetGuardianByID(id uint) (*models.Guardian, error)
	GetGuardianByUsername(username string) (*models.Guardian, error)
	CreateGuardian(guardian *models.Guardian) error
	UpdateGuardian(id uint, updates map[string]interface{}) (*models.Guardian, error)
	DeleteGuardian(id uint) error
}

// GuardianService 提供监护人账号相关的服务
type GuardianService struct {
	DB *gorm.DB
}

// NewGuardianService 创建一个新的监护人服务
func NewGuardianService(db *gorm.DB) InterfaceGuardianService {
	return &GuardianService{DB: db}
}

// 1 GetAllGuardians 获取所有监护人，支持分页
func (s *GuardianService) GetAllGuardians(page, pageSize int) ([]models.Guardian, int64, error) {
	var guardians []models.Guardian
	var total int64

	if err := s.DB.Model(&models.Guardian{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := s.DB.Limit(pageSize).Offset(offset).Find(&guardians).Error; err != nil {
		return nil, 0, err
	}
	return guardians, total, nil
}

// 2 GetGuardianByID 根据ID获取监护人
func (s *GuardianService) GetGuardianByID(id uint) (*models.Guardian, error) {
	var guardian models.Guardian
	if err := s.DB.First(&guardian, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuardianNotFound
		}
		return nil, err
	}
	return &guardian, nil
}

// 3 GetGuardianByUsername 根据用户名获取监护人（登录用）
func (s *GuardianService) GetGuardianByUsername(username string) (*models.Guardian, error) {
	var guardian models.Guardian
	if err := s.DB.Where("username = ?", username).First(&guardian).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuardianNotFound
		}
		return nil, err
	}
	return &guardian, nil
}

// 4 CreateGuardian 创建监护人账号
func (s *GuardianService) CreateGuardian(guardian *models.Guardian) error {
	// 验证用户名唯一性
	var count int64
	if err := s.DB.Model(&models.Guardian{}).Where("username = ?", guardian.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("用户名已存在")
	}

	// 密码入库前哈希
	hashed, err := utils.HashPassword(guardian.Password)
	if err != nil {
		return err
	}
	guardian.Password = hashed

	return s.DB.Create(guardian).Error
}

// 5 UpdateGuardian 更新监护人信息
func (s *GuardianService) UpdateGuardian(id uint, updates map[string]interface{}) (*models.Guardian, error) {
	guardian, err := s.GetGuardianByID(id)
	if err != nil {
		return nil, err
	}

	// 如果更新密码，先做哈希
	if password, ok := updates["password"].(string); ok && password != "" {
		hashed, err := utils.HashPassword(password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}

	if err := s.DB.Model(guardian).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetGuardianByID(id)
}

// 6 DeleteGuardian 删除监护人账号
func (s *GuardianService) DeleteGuardian(id uint) error {
	if _, err := s.GetGuardianByID(id); err != nil {
		return err
	}
	return s.DB.Delete(&models.Guardian{}, id).Error
}
