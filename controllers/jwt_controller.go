package controllers

import (
	"net/http"

	"carebot-http-service/services"
	"carebot-http-service/services/container"
	"carebot-http-service/utils"

	"github.com/gin-gonic/gin"
)

// InterfaceJWTController 定义认证控制器接口
type InterfaceJWTController interface {
	Login()
	IssueRobotToken()
}

// JWTController 处理身份验证请求
type JWTController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewJWTController 创建一个新的认证控制器
func NewJWTController(ctx *gin.Context, container *container.ServiceContainer) *JWTController {
	return &JWTController{
		Ctx:       ctx,
		Container: container,
	}
}

// LoginRequest 表示登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"admin"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

// LoginData 表示登录成功后返回的数据
type LoginData struct {
	Token    string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	UserID   uint   `json:"user_id" example:"1"`
	Role     string `json:"role" example:"guardian"`
	Username string `json:"username" example:"zhangsan"`
}

// RobotTokenRequest 表示签发机器人令牌的请求
type RobotTokenRequest struct {
	RobotID uint `json:"robot_id" binding:"required" example:"1"`
}

// HandleJWTFunc 返回一个处理JWT认证请求的Gin处理函数
func HandleJWTFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewJWTController(ctx, container)

		switch method {
		case "login":
			controller.Login()
		case "robotToken":
			controller.IssueRobotToken()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// Login 处理用户登录
// @Summary      User Login
// @Description  管理员或监护人登录，返回JWT令牌
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "登录请求参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /auth/login [post]
func (c *JWTController) Login() {
	var req LoginRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	// 先查管理员，再查监护人
	if admin, err := c.Container.GetAdminService().GetAdminByUsername(req.Username); err == nil {
		if utils.CheckPasswordHash(req.Password, admin.Password) {
			c.issueToken(admin.ID, services.RoleAdmin, admin.Username)
			return
		}
		c.unauthorized()
		return
	}

	guardian, err := c.Container.GetGuardianService().GetGuardianByUsername(req.Username)
	if err != nil || !utils.CheckPasswordHash(req.Password, guardian.Password) {
		c.unauthorized()
		return
	}
	c.issueToken(guardian.ID, services.RoleGuardian, guardian.Username)
}

// IssueRobotToken 为机器人签发设备令牌（仅管理员）
// @Summary      Issue Robot Token
// @Description  为指定机器人签发长期设备令牌
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RobotTokenRequest true "机器人ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /auth/robot-token [post]
func (c *JWTController) IssueRobotToken() {
	var req RobotTokenRequest
	if err := c.Ctx.ShouldBindJSON(&req); err != nil {
		c.Ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	robot, err := c.Container.GetRobotService().GetRobotByID(c.Ctx.GetUint("userID"), services.RoleAdmin, req.RobotID)
	if err != nil {
		c.Ctx.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
			"data":    nil,
		})
		return
	}

	token, err := c.Container.GetJWTService().GenerateToken(robot.ID, services.RoleRobot)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "生成令牌失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"token":    token,
			"robot_id": robot.ID,
		},
	})
}

// issueToken 生成令牌并返回登录数据
func (c *JWTController) issueToken(userID uint, role, username string) {
	token, err := c.Container.GetJWTService().GenerateToken(userID, role)
	if err != nil {
		c.Ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "生成令牌失败: " + err.Error(),
			"data":    nil,
		})
		return
	}

	c.Ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "Login successful",
		"data": LoginData{
			Token:    token,
			UserID:   userID,
			Role:     role,
			Username: username,
		},
	})
}

func (c *JWTController) unauthorized() {
	c.Ctx.JSON(http.StatusUnauthorized, gin.H{
		"code":    401,
		"message": "Invalid username or password",
		"data":    nil,
	})
}
