package api

import (
	"budget/service"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 类别处理器
type CategoryHandler struct {
	categories *service.CategoryService
}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler(svc *service.Services) *CategoryHandler {
	return &CategoryHandler{categories: svc.Categories}
}

// SaveCategoryRequest 保存类别请求
type SaveCategoryRequest struct {
	AccountID uint   `json:"accountId" example:"1"`
	Name      string `json:"name" binding:"required" example:"Food"`
}

// SaveCategory 保存类别
// @Summary 保存类别
// @Description 按名称（忽略大小写）幂等保存，已存在时返回原记录
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SaveCategoryRequest true "类别"
// @Success 200 {object} Response{data=models.Category} "保存成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "无权访问"
// @Router /api/v1/category/saveCategory [post]
func (h *CategoryHandler) SaveCategory(c *gin.Context) {
	var req SaveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	caller := currentCaller(c)
	if req.AccountID == 0 {
		req.AccountID = caller.AccountID
	}

	cat, created, err := h.categories.Save(c.Request.Context(), caller, req.AccountID, req.Name)
	if err != nil {
		respondError(c, err, "保存类别失败")
		return
	}
	message := "类别已存在"
	if created {
		message = "创建成功"
	}
	SuccessWithMessage(c, message, cat)
}

// GetCategories 类别列表
// @Summary 类别列表
// @Description 返回账户下全部类别名称，按名称排序
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param accountId query int false "账户ID，缺省为当前账户"
// @Success 200 {object} Response "获取成功，data.categories 为名称数组"
// @Failure 403 {object} Response "无权访问"
// @Router /api/v1/category/getCategories [get]
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	accountID, ok := accountParam(c, c.Query("accountId"))
	if !ok {
		return
	}
	names, err := h.categories.List(c.Request.Context(), currentCaller(c), accountID)
	if err != nil {
		respondError(c, err, "获取类别失败")
		return
	}
	Success(c, gin.H{"categories": names})
}

// DeleteCategory 删除类别
// @Summary 删除类别
// @Description 仍被任一月度预算引用的类别不能删除
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "类别不存在"
// @Failure 409 {object} Response "类别正在使用"
// @Router /api/v1/category/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), currentCaller(c), id); err != nil {
		respondError(c, err, "删除类别失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
