package services

import (
	"errors"

	"carebot-http-service/models"
	"carebot-http-service/utils"

	"gorm.io/gorm"
)

// InterfaceAdminService 定义管理员服务接口
type InterfaceAdminService interface {
	GetAdminByID(id uint) (*models.Admin, error)
	GetAdminByUsername(username string) (*models.Admin, error)
	CreateAdmin(admin *models.Admin) error
}

// AdminService 提供管理员相关的服务
type AdminService struct {
	DB *gorm.DB
}

// NewAdminService 创建一个新的管理员服务
func NewAdminService(db *gorm.DB) InterfaceAdminService {
	return &AdminService{DB: db}
}

// GetAdminByID 根据ID获取管理员
func (s *AdminService) GetAdminByID(id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := s.DB.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("管理员不存在")
		}
		return nil, err
	}
	return &admin, nil
}

// GetAdminByUsername 根据用户名获取管理员（登录用）
func (s *AdminService) GetAdminByUsername(username string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.DB.Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("管理员不存在")
		}
		return nil, err
	}
	return &admin, nil
}

// CreateAdmin 创建新管理员
func (s *AdminService) CreateAdmin(admin *models.Admin) error {
	// 验证用户名唯一性
	var count int64
	if err := s.DB.Model(&models.Admin{}).Where("username = ?", admin.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("用户名已存在")
	}

	// 密码入库前哈希
	hashed, err := utils.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	admin.Password = hashed

	return s.DB.Create(admin).Error
}
