package services

import (
	"carebot-http-service/models"
)

// InterfaceElderService 定义老人档案服务接口
type InterfaceElderService interface {
	GetAllElders() ([]models.Elder, error)
	GetEldersByGuardian(guardianID uint) ([]models.Elder, error)
	GetElderByID(callerID uint, callerRole string, id uint) (*models.Elder, error)
	CreateElder(elder *models.Elder) error
	UpdateElder(callerID uint, callerRole string, id uint, updates map[string]interface{}) (*models.Elder, error)
	DeleteElder(id uint) error
}

// ElderService 提供老人档案相关的服务
type ElderService struct {
	Elders ElderStore

	// 安全状态由紧急事件路径独占维护，这里共用老人锁避免覆盖
	ElderLocks *KeyedMutex
}

// NewElderService 创建一个新的老人档案服务
func NewElderService(elders ElderStore, elderLocks *KeyedMutex) InterfaceElderService {
	return &ElderService{
		Elders:     elders,
		ElderLocks: elderLocks,
	}
}

// 1 GetAllElders 获取所有老人列表
func (s *ElderService) GetAllElders() ([]models.Elder, error) {
	return s.Elders.ListElders()
}

// 2 GetEldersByGuardian 获取某监护人名下的老人列表
func (s *ElderService) GetEldersByGuardian(guardianID uint) ([]models.Elder, error) {
	return s.Elders.ListEldersByGuardian(guardianID)
}

// 3 GetElderByID 根据ID获取老人，监护人只能查看名下的老人
func (s *ElderService) GetElderByID(callerID uint, callerRole string, id uint) (*models.Elder, error) {
	elder, err := s.Elders.GetElderByID(id)
	if err != nil {
		return nil, err
	}

	if callerRole == RoleAdmin {
		return elder, nil
	}
	if callerRole == RoleGuardian && elder.GuardianID == callerID {
		return elder, nil
	}
	return nil, ErrAccessDenied
}

// 4 CreateElder 创建老人档案
func (s *ElderService) CreateElder(elder *models.Elder) error {
	if elder.SafetyStatus == "" {
		elder.SafetyStatus = models.SafetyStatusSafe
	}
	return s.Elders.CreateElder(elder)
}

// 5 UpdateElder 更新老人基础信息
// 安全状态不在此处修改，它是紧急事件集合的派生值
func (s *ElderService) UpdateElder(callerID uint, callerRole string, id uint, updates map[string]interface{}) (*models.Elder, error) {
	if _, err := s.GetElderByID(callerID, callerRole, id); err != nil {
		return nil, err
	}

	unlock := s.ElderLocks.Lock(id)
	defer unlock()

	elder, err := s.Elders.GetElderByID(id)
	if err != nil {
		return nil, err
	}

	if name, ok := updates["name"].(string); ok {
		elder.Name = name
	}
	if address, ok := updates["address"].(string); ok {
		elder.Address = address
	}
	if phone, ok := updates["phone"].(string); ok {
		elder.Phone = phone
	}

	if err := s.Elders.SaveElder(elder); err != nil {
		return nil, err
	}
	return elder, nil
}

// 6 DeleteElder 删除老人档案
func (s *ElderService) DeleteElder(id uint) error {
	if _, err := s.Elders.GetElderByID(id); err != nil {
		return err
	}
	return s.Elders.DeleteElder(id)
}
