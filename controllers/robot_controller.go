package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"carebot-http-service/models"
	"carebot-http-service/services"
	"carebot-http-service/services/container"

	"github.com/gin-gonic/gin"
)

// RobotController 处理机器人相关的请求
type RobotController struct {
	BaseControllerImpl
}

// NewRobotController 创建一个新的机器人控制器
func (f *ControllerFactory) NewRobotController(ctx *gin.Context) *RobotController {
	return &RobotController{
		BaseControllerImpl: BaseControllerImpl{
			Container: f.Container,
			Context:   ctx,
		},
	}
}

// RobotCreateRequest 表示创建机器人请求
type RobotCreateRequest struct {
	SerialNumber string `json:"serial_number" example:"CB-4f2a9c1d"` // 不提供时自动生成
	Name         string `json:"name" example:"小护"`
	Model        string `json:"model" example:"CareBot-S2"`
	ElderID      uint   `json:"elder_id" binding:"required" example:"1"`
}

// RobotLCDRequest 表示下发屏幕显示请求
type RobotLCDRequest struct {
	Mode       string `json:"mode" binding:"required" example:"talking"`
	Emotion    string `json:"emotion" example:"happy"`
	Message    string `json:"message" example:"该吃药了"`
	SubMessage string `json:"sub_message" example:"降压药 1片"`
}

// HandleRobotFunc 返回一个处理机器人请求的Gin处理函数
func HandleRobotFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	factory := NewControllerFactory(container)
	return func(ctx *gin.Context) {
		controller := factory.NewRobotController(ctx)

		switch method {
		case "list":
			controller.List()
		case "get":
			controller.Get()
		case "create":
			controller.Create()
		case "update":
			controller.Update()
		case "delete":
			controller.Delete()
		case "heartbeat":
			controller.Heartbeat()
		case "lcd":
			controller.UpdateLCD()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// List 获取机器人列表
// @Summary      机器人列表
// @Description  管理员可见全部，监护人仅可见名下老人的机器人
// @Tags         Robot
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /robots [get]
func (c *RobotController) List() {
	var robots []models.Robot
	var err error

	if c.CallerRole() == services.RoleAdmin {
		robots, err = c.Container.GetRobotService().GetAllRobots()
	} else {
		robots, err = c.Container.GetRobotService().GetRobotsByGuardian(c.CallerID())
	}
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    robots,
	})
}

// Get 获取单个机器人
// @Summary      获取机器人
// @Tags         Robot
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "机器人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /robots/{id} [get]
func (c *RobotController) Get() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	robot, err := c.Container.GetRobotService().GetRobotByID(c.CallerID(), c.CallerRole(), id)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    robot,
	})
}

// Create 创建机器人（仅管理员）
// @Summary      创建机器人
// @Tags         Robot
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RobotCreateRequest true "机器人参数"
// @Success      200  {object}  map[string]interface{}
// @Router       /robots [post]
func (c *RobotController) Create() {
	var req RobotCreateRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	robot := &models.Robot{
		SerialNumber: req.SerialNumber,
		Name:         req.Name,
		Model:        req.Model,
		ElderID:      req.ElderID,
	}
	if err := c.Container.GetRobotService().CreateRobot(robot); err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    robot,
	})
}

// Update 更新机器人信息（仅管理员）
// @Summary      更新机器人
// @Tags         Robot
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "机器人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /robots/{id} [put]
func (c *RobotController) Update() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := c.Context.ShouldBindJSON(&updates); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	robot, err := c.Container.GetRobotService().UpdateRobot(id, updates)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    robot,
	})
}

// Delete 删除机器人（仅管理员）
// @Summary      删除机器人
// @Tags         Robot
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "机器人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /robots/{id} [delete]
func (c *RobotController) Delete() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	if err := c.Container.GetRobotService().DeleteRobot(id); err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    nil,
	})
}

// Heartbeat 机器人心跳上报（机器人令牌）
// @Summary      心跳上报
// @Description  机器人定期上报心跳与运行信息；离线状态下收到心跳立即恢复connected
// @Tags         Robot
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /robots/heartbeat [post]
func (c *RobotController) Heartbeat() {
	var req services.HeartbeatRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	// 机器人令牌的user_id即机器人ID，只能为自己上报
	robot, err := c.Container.GetRobotService().Heartbeat(c.CallerID(), req)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"robot_id":           robot.ID,
			"connectivity_state": robot.ConnectivityState,
		},
	})
}

// UpdateLCD 下发机器人屏幕显示内容
// @Summary      下发屏幕显示
// @Tags         Robot
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "机器人ID"
// @Param        request body RobotLCDRequest true "显示内容"
// @Success      200  {object}  map[string]interface{}
// @Router       /robots/{id}/lcd [post]
func (c *RobotController) UpdateLCD() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	var req RobotLCDRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	err := c.Container.GetRobotService().UpdateLCD(c.CallerID(), c.CallerRole(), id, services.RobotLCDPayload{
		Mode:       req.Mode,
		Emotion:    req.Emotion,
		Message:    req.Message,
		SubMessage: req.SubMessage,
	})
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    nil,
	})
}

// paramID 解析路径中的ID参数
func (c *RobotController) paramID() (uint, bool) {
	id, err := strconv.ParseUint(c.Context.Param("id"), 10, 32)
	if err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的机器人ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

// respondError 将服务层错误映射为HTTP状态码
func (c *RobotController) respondError(err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrRobotNotFound), errors.Is(err, services.ErrElderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAccessDenied):
		status = http.StatusForbidden
	}

	c.Context.JSON(status, gin.H{
		"code":    status,
		"message": err.Error(),
		"data":    nil,
	})
}
