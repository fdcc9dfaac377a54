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

// ElderController 处理老人档案相关的请求
type ElderController struct {
	BaseControllerImpl
}

// NewElderController 创建一个新的老人档案控制器
func (f *ControllerFactory) NewElderController(ctx *gin.Context) *ElderController {
	return &ElderController{
		BaseControllerImpl: BaseControllerImpl{
			Container: f.Container,
			Context:   ctx,
		},
	}
}

// ElderCreateRequest 表示创建老人档案请求
type ElderCreateRequest struct {
	GuardianID uint   `json:"guardian_id" binding:"required" example:"1"`
	Name       string `json:"name" binding:"required" example:"王奶奶"`
	Address    string `json:"address" example:"幸福小区3栋201"`
	Phone      string `json:"phone" example:"13800000000"`
}

// HandleElderFunc 返回一个处理老人档案请求的Gin处理函数
func HandleElderFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	factory := NewControllerFactory(container)
	return func(ctx *gin.Context) {
		controller := factory.NewElderController(ctx)

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
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "无效的方法",
				"data":    nil,
			})
		}
	}
}

// List 获取老人列表
// @Summary      老人列表
// @Description  管理员可见全部，监护人仅可见名下老人
// @Tags         Elder
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /elders [get]
func (c *ElderController) List() {
	var elders []models.Elder
	var err error

	if c.CallerRole() == services.RoleAdmin {
		elders, err = c.Container.GetElderService().GetAllElders()
	} else {
		elders, err = c.Container.GetElderService().GetEldersByGuardian(c.CallerID())
	}
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    elders,
	})
}

// Get 获取单个老人档案（含实时安全状态）
// @Summary      获取老人档案
// @Tags         Elder
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "老人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /elders/{id} [get]
func (c *ElderController) Get() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	elder, err := c.Container.GetElderService().GetElderByID(c.CallerID(), c.CallerRole(), id)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    elder,
	})
}

// Create 创建老人档案（仅管理员）
// @Summary      创建老人档案
// @Tags         Elder
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ElderCreateRequest true "老人档案参数"
// @Success      200  {object}  map[string]interface{}
// @Router       /elders [post]
func (c *ElderController) Create() {
	var req ElderCreateRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	elder := &models.Elder{
		GuardianID: req.GuardianID,
		Name:       req.Name,
		Address:    req.Address,
		Phone:      req.Phone,
	}
	if err := c.Container.GetElderService().CreateElder(elder); err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    elder,
	})
}

// Update 更新老人基础信息
// @Summary      更新老人档案
// @Tags         Elder
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "老人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /elders/{id} [put]
func (c *ElderController) Update() {
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

	elder, err := c.Container.GetElderService().UpdateElder(c.CallerID(), c.CallerRole(), id, updates)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    elder,
	})
}

// Delete 删除老人档案（仅管理员）
// @Summary      删除老人档案
// @Tags         Elder
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "老人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /elders/{id} [delete]
func (c *ElderController) Delete() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	if err := c.Container.GetElderService().DeleteElder(id); err != nil {
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
func (c *ElderController) paramID() (uint, bool) {
	id, err := strconv.ParseUint(c.Context.Param("id"), 10, 32)
	if err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的老人ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

// respondError 将服务层错误映射为HTTP状态码
func (c *ElderController) respondError(err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrElderNotFound):
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
