package controllers

import (
	"crypto/subtle"
	"net/http"

	"carebot-http-service/services/container"

	"github.com/gin-gonic/gin"
)

// BrokerAuthController 处理消息代理回调的认证与ACL请求
// 代理在CONNECT/SUBSCRIBE/断开时回调本服务，由本服务判定allow/deny
type BrokerAuthController struct {
	BaseControllerImpl
}

// NewBrokerAuthController 创建一个新的代理回调控制器
func (f *ControllerFactory) NewBrokerAuthController(ctx *gin.Context) *BrokerAuthController {
	return &BrokerAuthController{
		BaseControllerImpl: BaseControllerImpl{
			Container: f.Container,
			Context:   ctx,
		},
	}
}

// BrokerAuthRequest 代理CONNECT回调请求
type BrokerAuthRequest struct {
	ClientID string `json:"clientid" binding:"required" example:"guardian-7-web"`
	Username string `json:"username" example:"7"`
	Password string `json:"password" example:"Bearer eyJhbGciOi..."`
}

// BrokerACLRequest 代理SUBSCRIBE回调请求
type BrokerACLRequest struct {
	ClientID string `json:"clientid" binding:"required" example:"guardian-7-web"`
	Topic    string `json:"topic" binding:"required" example:"/topic/user/7/notifications"`
	Action   string `json:"action" example:"subscribe"`
}

// BrokerDisconnectedRequest 代理连接断开回调请求
type BrokerDisconnectedRequest struct {
	ClientID string `json:"clientid" binding:"required" example:"guardian-7-web"`
	Reason   string `json:"reason" example:"normal"`
}

// HandleBrokerAuthFunc 返回一个处理代理回调的Gin处理函数
func HandleBrokerAuthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	factory := NewControllerFactory(container)
	return func(ctx *gin.Context) {
		controller := factory.NewBrokerAuthController(ctx)

		if !controller.checkSecret() {
			return
		}

		switch method {
		case "auth":
			controller.Authenticate()
		case "acl":
			controller.Authorize()
		case "disconnected":
			controller.Disconnected()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// checkSecret 校验代理回调的共享密钥，防止外部伪造回调
func (c *BrokerAuthController) checkSecret() bool {
	secret := c.Container.GetConfig().BrokerWebhookSecret
	if secret == "" {
		return true
	}
	provided := c.Context.GetHeader("X-Broker-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		c.Context.JSON(http.StatusForbidden, gin.H{
			"code":    403,
			"message": "回调密钥无效",
			"data":    nil,
		})
		return false
	}
	return true
}

// Authenticate 处理CONNECT回调：密码字段携带JWT，校验失败则整个连接被拒绝
// @Summary      代理连接认证回调
// @Tags         Broker
// @Accept       json
// @Produce      json
// @Param        request body BrokerAuthRequest true "回调参数"
// @Success      200  {object}  map[string]interface{}
// @Router       /broker/auth [post]
func (c *BrokerAuthController) Authenticate() {
	var req BrokerAuthRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.deny("无效的请求参数: " + err.Error())
		return
	}

	identity, err := c.Container.GetSubscriptionAuthService().Authenticate(req.ClientID, req.Password)
	if err != nil {
		c.deny("认证失败")
		return
	}

	c.allow(gin.H{
		"user_id": identity.UserID,
		"role":    identity.Role,
	})
}

// Authorize 处理SUBSCRIBE回调：每个订阅独立判定，拒绝不影响连接
// @Summary      代理订阅授权回调
// @Tags         Broker
// @Accept       json
// @Produce      json
// @Param        request body BrokerACLRequest true "回调参数"
// @Success      200  {object}  map[string]interface{}
// @Router       /broker/acl [post]
func (c *BrokerAuthController) Authorize() {
	var req BrokerACLRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.deny("无效的请求参数: " + err.Error())
		return
	}

	authSvc := c.Container.GetSubscriptionAuthService()

	// 未认证的连接不能订阅任何主题
	identity, ok := authSvc.SessionIdentity(req.ClientID)
	if !ok {
		c.deny("会话未认证")
		return
	}

	if !authSvc.CanSubscribe(identity, req.Topic) {
		c.deny("无权订阅该主题")
		return
	}

	c.allow(nil)
}

// Disconnected 处理连接断开回调，清理会话身份
// @Summary      代理连接断开回调
// @Tags         Broker
// @Accept       json
// @Produce      json
// @Param        request body BrokerDisconnectedRequest true "回调参数"
// @Success      200  {object}  map[string]interface{}
// @Router       /broker/disconnected [post]
func (c *BrokerAuthController) Disconnected() {
	var req BrokerDisconnectedRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.deny("无效的请求参数: " + err.Error())
		return
	}

	c.Container.GetSubscriptionAuthService().EndSession(req.ClientID)
	c.allow(nil)
}

// allow 以代理期望的格式返回allow结果
func (c *BrokerAuthController) allow(data interface{}) {
	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"result":  "allow",
		"data":    data,
	})
}

// deny 以代理期望的格式返回deny结果，HTTP状态保持200由result字段表达判定
func (c *BrokerAuthController) deny(reason string) {
	c.Context.JSON(http.StatusOK, gin.H{
		"code":    403,
		"message": reason,
		"result":  "deny",
		"data":    nil,
	})
}
