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

// GuardianController 处理监护人账号相关的请求
type GuardianController struct {
	BaseControllerImpl
}

// NewGuardianController 创建一个新的监护人控制器
func (f *ControllerFactory) NewGuardianController(ctx *gin.Context) *GuardianController {
	return &GuardianController{
		BaseControllerImpl: BaseControllerImpl{
			Container: f.Container,
			Context:   ctx,
		},
	}
}

// GuardianCreateRequest 表示创建监护人请求
type GuardianCreateRequest struct {
	Username string `json:"username" binding:"required" example:"zhangsan"`
	Password string `json:"password" binding:"required" example:"s3cret"`
	Name     string `json:"name" example:"张三"`
	Phone    string `json:"phone" example:"13900000000"`
	Email    string `json:"email" example:"zhangsan@example.com"`
}

// HandleGuardianFunc 返回一个处理监护人请求的Gin处理函数
func HandleGuardianFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	factory := NewControllerFactory(container)
	return func(ctx *gin.Context) {
		controller := factory.NewGuardianController(ctx)

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

// List 分页获取监护人列表（仅管理员）
// @Summary      监护人列表
// @Tags         Guardian
// @Produce      json
// @Security     BearerAuth
// @Param        pageNum query int false "页码"
// @Param        pageSize query int false "每页数量"
// @Success      200  {object}  map[string]interface{}
// @Router       /guardians [get]
func (c *GuardianController) List() {
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

	guardians, total, err := c.Container.GetGuardianService().GetAllGuardians(query.PageNum, query.PageSize)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"list":       guardians,
			"pagination": models.NewPaginationResult(int(total), query.PageNum, query.PageSize),
		},
	})
}

// Get 获取单个监护人
// @Summary      获取监护人
// @Tags         Guardian
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "监护人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /guardians/{id} [get]
func (c *GuardianController) Get() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	// 监护人只能查看自己的资料
	if c.CallerRole() != services.RoleAdmin && c.CallerID() != id {
		c.respondError(services.ErrAccessDenied)
		return
	}

	guardian, err := c.Container.GetGuardianService().GetGuardianByID(id)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    guardian,
	})
}

// Create 创建监护人账号（仅管理员）
// @Summary      创建监护人
// @Tags         Guardian
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body GuardianCreateRequest true "监护人参数"
// @Success      200  {object}  map[string]interface{}
// @Router       /guardians [post]
func (c *GuardianController) Create() {
	var req GuardianCreateRequest
	if err := c.Context.ShouldBindJSON(&req); err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的请求参数: " + err.Error(),
			"data":    nil,
		})
		return
	}

	guardian := &models.Guardian{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
	}
	if err := c.Container.GetGuardianService().CreateGuardian(guardian); err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    guardian,
	})
}

// Update 更新监护人信息
// @Summary      更新监护人
// @Tags         Guardian
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "监护人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /guardians/{id} [put]
func (c *GuardianController) Update() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	// 监护人只能修改自己的资料
	if c.CallerRole() != services.RoleAdmin && c.CallerID() != id {
		c.respondError(services.ErrAccessDenied)
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

	guardian, err := c.Container.GetGuardianService().UpdateGuardian(id, updates)
	if err != nil {
		c.respondError(err)
		return
	}

	c.Context.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    guardian,
	})
}

// Delete 删除监护人账号（仅管理员）
// @Summary      删除监护人
// @Tags         Guardian
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "监护人ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /guardians/{id} [delete]
func (c *GuardianController) Delete() {
	id, ok := c.paramID()
	if !ok {
		return
	}

	if err := c.Container.GetGuardianService().DeleteGuardian(id); err != nil {
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
func (c *GuardianController) paramID() (uint, bool) {
	id, err := strconv.ParseUint(c.Context.Param("id"), 10, 32)
	if err != nil {
		c.Context.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的监护人ID",
			"data":    nil,
		})
		return 0, false
	}
	return uint(id), true
}

// respondError 将服务层错误映射为HTTP状态码
func (c *GuardianController) respondError(err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrGuardianNotFound):
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
