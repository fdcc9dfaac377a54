package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"carebot-http-service/models"
	"carebot-http-service/services"
	"carebot-http-service/services/container"

	"github.com/gin-gonic/gin"
)

// EmergencyController 处理紧急事件相关的请求
type EmergencyController struct {
	BaseControllerImpl
}

// NewEmergencyController 创建一个新的紧急事件控制器
func (f *ControllerFactory) NewEmergencyController(ctx *gin.Context) *EmergencyController {
	return &EmergencyController{
		BaseControllerImpl: BaseControllerImpl{
			Container: f.Container,
			Context:   ctx,
		},
	}
}

// EmergencyReportRequest 表示紧急事件上报请求
type EmergencyReportRequest struct {
	RobotID    uint            `json:"robot_id" binding:"required" example:"1"`
	Type       string          `json:"type" binding:"required" example:"fall"` // 如：fall(跌倒)、sos(呼救)、no_motion(无活动)、abnormal(体征异常)
	Location   string          `json:"location" example:"卧室"`
	DetectedAt *time.Time      `json:"detected_at,omitempty" example:"2024-07-01T15:00:00Z"` // 可选，不提供则取当前时间
	Confidence float64         `json:"confidence,omitempty" example:"0.93"`
	SensorData json.RawMessage `json:"sensor_data,omitempty"`
}

// EmergencyResolveRequest 表示紧急事件处理请求
type EmergencyResolveRequest struct {
	Resolution string `json:"resolution" binding:"required" example:"resolved"` // resolved 或 false_alarm
	Note       string `json:"note" example:"已联系老人确认安全"`
}

// HandleEmergencyFunc 返回一个处理紧急事件请求的Gin处理函数
func HandleEmergencyFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	factory := NewControllerFactory(container)
	return func(ctx *gin.Context) {
		controller := factory.NewEmergencyController(ctx)

		switch method {
		case "report":
			controller.Report()
		case "resolve":
			controller.Resolve()
		case "get":
			controller.Get()
		case "list":
			controller.List()
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// Report 上报紧急事件
// @Summary      上报紧急事件
// @Description  机器人或监护人上报紧急事件，老人状态提升为danger并触发紧急广播
// @Tags         Emergency
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body EmergencyReportRequest true "上报参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /emergencies [post]
func (c *EmergencyController) Report() {
	var req EmergencyReportRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	emergency, err := c.Container.GetEmergencyService().ReportEmergency(
		c.CallerID(), c.CallerRole(),
		services.ReportEmergencyRequest{
			RobotID:    req.RobotID,
			Type:       models.EmergencyType(req.Type),
			Location:   req.Location,
			DetectedAt: req.DetectedAt,
			Confidence: req.Confidence,
			SensorData: req.SensorData,
		})
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    emergency,
	})
}

// Resolve 处理紧急事件
// @Summary      处理紧急事件
// @Description  将pending事件迁移到resolved或false_alarm；已处理的事件返回409
// @Tags         Emergency
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "事件ID"
// @Param        request body EmergencyResolveRequest true "处理参数"
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Router       /emergencies/{id}/resolve [put]
func (c *EmergencyController) Resolve() {
	id, err := strconv.ParseUint(c.Context.Param("id"), 10, 32)
	if err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的事件ID",
			"data":    nil,
		})
		return
	}

	var req EmergencyResolveRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	emergency, err := c.Container.GetEmergencyService().ResolveEmergency(
		c.CallerID(), c.CallerRole(), uint(id),
		models.EmergencyResolution(req.Resolution), req.Note)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    emergency,
	})
}

// Get 获取单个紧急事件
// @Summary      获取紧急事件
// @Tags         Emergency
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "事件ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /emergencies/{id} [get]
func (c *EmergencyController) Get() {
	id, err := strconv.ParseUint(c.Context.Param("id"), 10, 32)
	if err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的事件ID",
			"data":    nil,
		})
		return
	}

	emergency, err := c.Container.GetEmergencyService().GetEmergency(c.CallerID(), c.CallerRole(), uint(id))
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    emergency,
	})
}

// List 分页获取紧急事件列表
// @Summary      紧急事件列表
// @Description  最近的事件在前；监护人仅可见名下老人的事件
// @Tags         Emergency
// @Produce      json
// @Security     BearerAuth
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页数量"
// @Success      200  {object}  map[string]interface{}
// @Router       /emergencies [get]
func (c *EmergencyController) List() {
	var query models.PaginationQuery
	if err := c.Context.ShouldBindQuery(&query); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的分页参数: " + err.Error(),
			"data":    nil,
		})
		return
	}
	if query.PageNum < 1 {
		query.PageNum = 1
	}
	if query.PageSize < 1 {
		query.PageSize = 20
	}

	emergencies, total, err := c.Container.GetEmergencyService().ListEmergencies(
		c.CallerID(), c.CallerRole(), query.PageNum, query.PageSize)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"list":       emergencies,
			"pagination": models.NewPaginationResult(int(total), query.PageNum, query.PageSize),
		},
	})
}

// respondError 将服务层错误映射为HTTP状态码
func (c *EmergencyController) respondError(err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrRobotNotFound),
		errors.Is(err, services.ErrElderNotFound),
		errors.Is(err, services.ErrEmergencyNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrEmergencyAlreadyResolved):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidResolution):
		status = http.StatusBadRequest
	}

	c.Context.JSON(status, gin.H{
		"code":    status,
		"message": err.Error(),
		"data":    nil,
	})
}
