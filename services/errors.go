package services

import "errors"

// 服务层公共错误，控制器据此映射HTTP状态码
var (
	ErrRobotNotFound     = errors.New("机器人不存在")
	ErrElderNotFound     = errors.New("老人不存在")
	ErrGuardianNotFound  = errors.New("监护人不存在")
	ErrEmergencyNotFound = errors.New("紧急事件不存在")

	// ErrAccessDenied 调用者无权访问目标资源（映射403）
	ErrAccessDenied = errors.New("无权访问该资源")

	// ErrEmergencyAlreadyResolved 紧急事件已处于终态，拒绝重复处理（映射409）
	ErrEmergencyAlreadyResolved = errors.New("紧急事件已处理，不能重复处理")

	// ErrInvalidResolution 处理结果必须是 resolved 或 false_alarm
	ErrInvalidResolution = errors.New("无效的处理结果")
)
