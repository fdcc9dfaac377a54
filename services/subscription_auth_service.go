package services

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"carebot-http-service/config"
)

// SubscriberIdentity 订阅方身份，在CONNECT成功后绑定到会话，随会话消亡
type SubscriberIdentity struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// ErrInvalidToken CONNECT携带的令牌无效或缺失
var ErrInvalidToken = errors.New("无效的访问令牌")

// InterfaceSubscriptionAuthService 定义订阅授权服务接口
// 连接级状态机: 未认证 → 已认证(CONNECT成功)；每个SUBSCRIBE独立判定allow/deny，
// 拒绝单个订阅不影响连接本身
type InterfaceSubscriptionAuthService interface {
	// Authenticate 校验CONNECT令牌，成功则登记会话身份
	Authenticate(clientID, token string) (*SubscriberIdentity, error)
	// CanSubscribe 判定某身份能否订阅目标主题，每个SUBSCRIBE帧独立评估，从不缓存
	CanSubscribe(identity *SubscriberIdentity, destination string) bool
	// SessionIdentity 查询已登记的会话身份
	SessionIdentity(clientID string) (*SubscriberIdentity, bool)
	// EndSession 会话断开时清理身份
	EndSession(clientID string)
}

// SubscriptionAuthService 订阅授权实现
// 令牌校验委托给JWT服务，实体归属校验委托给持久化协作方；未知主题一律拒绝
type SubscriptionAuthService struct {
	Tokens InterfaceJWTService
	Robots RobotStore
	Elders ElderStore

	sessions sync.Map // clientID -> *SubscriberIdentity
}

// NewSubscriptionAuthService 创建一个新的订阅授权服务
func NewSubscriptionAuthService(tokens InterfaceJWTService, robots RobotStore, elders ElderStore) InterfaceSubscriptionAuthService {
	return &SubscriptionAuthService{
		Tokens: tokens,
		Robots: robots,
		Elders: elders,
	}
}

// extractToken 从授权头中提取token
func extractToken(authHeader string) string {
	// 检查并移除 "Bearer " 前缀
	if len(authHeader) > 7 && strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return authHeader
}

// Authenticate 校验CONNECT令牌
// 失败时不登记任何会话，该连接停留在未认证状态
func (s *SubscriptionAuthService) Authenticate(clientID, token string) (*SubscriberIdentity, error) {
	token = extractToken(strings.TrimSpace(token))
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.Tokens.ExtractClaims(token)
	if err != nil {
		config.Warning("[订阅授权] CONNECT令牌校验失败 client=%s: %v", clientID, err)
		return nil, ErrInvalidToken
	}

	identity := &SubscriberIdentity{
		UserID: claims.UserID,
		Role:   claims.Role,
	}
	s.sessions.Store(clientID, identity)
	config.Info("[订阅授权] 会话已认证 client=%s user=%d role=%s", clientID, identity.UserID, identity.Role)
	return identity, nil
}

// SessionIdentity 查询会话身份
func (s *SubscriptionAuthService) SessionIdentity(clientID string) (*SubscriberIdentity, bool) {
	v, ok := s.sessions.Load(clientID)
	if !ok {
		return nil, false
	}
	return v.(*SubscriberIdentity), true
}

// EndSession 清理会话身份
func (s *SubscriptionAuthService) EndSession(clientID string) {
	s.sessions.Delete(clientID)
}

// CanSubscribe 判定订阅权限，未知主题形态默认拒绝
func (s *SubscriptionAuthService) CanSubscribe(identity *SubscriberIdentity, destination string) bool {
	if identity == nil {
		return false
	}

	parts := strings.Split(strings.TrimPrefix(destination, "/"), "/")

	// /topic/emergency — 任何已认证的看护类角色，机器人不可订阅
	if destination == TopicEmergency {
		return identity.Role == RoleAdmin || identity.Role == RoleGuardian
	}

	// /topic/user/{id}/notifications — 只能订阅自己的通知
	if len(parts) == 4 && parts[0] == "topic" && parts[1] == "user" && parts[3] == "notifications" {
		id, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return false
		}
		if identity.Role != RoleAdmin && identity.Role != RoleGuardian {
			return false
		}
		return uint(id) == identity.UserID
	}

	// /topic/robot/{id}/status | /topic/robot/{id}/lcd
	if len(parts) == 4 && parts[0] == "topic" && parts[1] == "robot" && (parts[3] == "status" || parts[3] == "lcd") {
		id, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return false
		}
		return s.canAccessRobot(identity, uint(id))
	}

	// /topic/elder/{id}/status
	if len(parts) == 4 && parts[0] == "topic" && parts[1] == "elder" && parts[3] == "status" {
		id, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return false
		}
		return s.canAccessElder(identity, uint(id))
	}

	// 其他主题形态一律拒绝
	return false
}

// canAccessRobot 机器人主题：管理员、机器人自己、所属老人的监护人
func (s *SubscriptionAuthService) canAccessRobot(identity *SubscriberIdentity, robotID uint) bool {
	switch identity.Role {
	case RoleAdmin:
		return true
	case RoleRobot:
		return identity.UserID == robotID
	case RoleGuardian:
		robot, err := s.Robots.GetRobotByID(robotID)
		if err != nil {
			// 查询失败按拒绝处理
			config.Warning("[订阅授权] 查询机器人 %d 失败: %v", robotID, err)
			return false
		}
		return s.canAccessElder(identity, robot.ElderID)
	}
	return false
}

// canAccessElder 老人主题：管理员或该老人的监护人
func (s *SubscriptionAuthService) canAccessElder(identity *SubscriberIdentity, elderID uint) bool {
	if identity.Role == RoleAdmin {
		return true
	}
	if identity.Role != RoleGuardian {
		return false
	}

	elder, err := s.Elders.GetElderByID(elderID)
	if err != nil {
		config.Warning("[订阅授权] 查询老人 %d 失败: %v", elderID, err)
		return false
	}
	return elder.GuardianID == identity.UserID
}
