package api

import (
	"errors"
	"strconv"

	"budget/models"
	"budget/service"

	"github.com/gin-gonic/gin"
)

// BudgetHandler 月度预算处理器
type BudgetHandler struct {
	accounts    *service.AccountService
	allocations *service.AllocationService
	summaries   *service.SummaryService
}

// NewBudgetHandler 创建月度预算处理器
func NewBudgetHandler(svc *service.Services) *BudgetHandler {
	return &BudgetHandler{
		accounts:    svc.Accounts,
		allocations: svc.Allocations,
		summaries:   svc.Summaries,
	}
}

// SaveAllocationRequest 保存月度预算请求
// income 与 totalAllocated 至少提供一个；提供 income 时可分配资金 = 期初余额 + income
type SaveAllocationRequest struct {
	AccountID      uint                     `json:"accountId" example:"1"`
	Month          int                      `json:"month" binding:"required" example:"3"`
	Year           int                      `json:"year" binding:"required" example:"2025"`
	Income         *models.Money            `json:"income" swaggertype:"number" example:"10000"`
	TotalAllocated *models.Money            `json:"totalAllocated" swaggertype:"number" example:"15000"`
	Categories     []service.CategoryBudget `json:"categories" binding:"required"`
}

// SaveAllocationResponse 保存结果
type SaveAllocationResponse struct {
	*models.AllocationView
	Created bool `json:"created"`
}

// ViewMonthlyAllocations 查看月度预算
// @Summary 查看月度预算
// @Description 返回某月的预算、各类别支出状态与汇总；尚未制定预算时返回 404
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param accountId query int false "账户ID，缺省为当前账户"
// @Param month query int true "月份 1-12"
// @Param year query int true "年份"
// @Success 200 {object} Response{data=models.AllocationView} "获取成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "无权访问"
// @Failure 404 {object} Response "该月尚未制定预算"
// @Router /api/v1/budget/view-monthly-allocations [get]
func (h *BudgetHandler) ViewMonthlyAllocations(c *gin.Context) {
	accountID, ok := accountParam(c, c.Query("accountId"))
	if !ok {
		return
	}
	period, ok := periodQuery(c)
	if !ok {
		return
	}

	view, err := h.allocations.Get(c.Request.Context(), currentCaller(c), accountID, period)
	if errors.Is(err, service.ErrNotFound) {
		NotFound(c, "该月份尚未制定预算")
		return
	}
	if err != nil {
		respondError(c, err, "查询预算失败")
		return
	}
	Success(c, view)
}

// SaveMonthlyAllocations 创建或更新月度预算
// @Summary 创建或更新月度预算
// @Description 整体替换某月的类别预算。预算合计不能超过可分配资金；已有交易的类别不能被移除。
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SaveAllocationRequest true "月度预算"
// @Success 200 {object} Response{data=SaveAllocationResponse} "保存成功"
// @Failure 400 {object} Response "校验失败"
// @Failure 403 {object} Response "无权访问"
// @Router /api/v1/budget/monthly-allocations [post]
func (h *BudgetHandler) SaveMonthlyAllocations(c *gin.Context) {
	var req SaveAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if req.Income == nil && req.TotalAllocated == nil {
		BadRequest(c, "请提供 income 或 totalAllocated")
		return
	}
	if req.AccountID == 0 {
		req.AccountID = currentCaller(c).AccountID
	}
	period, err := models.NewPeriod(req.Month, req.Year)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	caller := currentCaller(c)
	account, err := h.accounts.Account(c.Request.Context(), caller, req.AccountID)
	if err != nil {
		respondError(c, err, "查询账户失败")
		return
	}

	var income, total models.Money
	switch {
	case req.Income != nil:
		income = *req.Income
		total = service.Pool(account.OpeningBalance, income)
		if req.TotalAllocated != nil && *req.TotalAllocated != total {
			BadRequest(c, "totalAllocated 必须等于期初余额 + income ("+total.String()+")")
			return
		}
	default:
		total = *req.TotalAllocated
	}

	view, created, err := h.allocations.Save(c.Request.Context(), caller, service.SaveAllocationInput{
		AccountID:      req.AccountID,
		Period:         period,
		Income:         income,
		TotalAllocated: total,
		Categories:     req.Categories,
	})
	if err != nil {
		respondError(c, err, "保存预算失败")
		return
	}

	message := "更新成功"
	if created {
		message = "创建成功"
	}
	SuccessWithMessage(c, message, SaveAllocationResponse{AllocationView: view, Created: created})
}

// Summary 年度预算概况
// @Summary 年度预算概况
// @Description 按月汇总全年的可分配资金、预算合计、已支出与超支类别数
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param accountId query int false "账户ID，缺省为当前账户"
// @Param year query int true "年份"
// @Success 200 {object} Response{data=service.YearSummary} "获取成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/budget/summary [get]
func (h *BudgetHandler) Summary(c *gin.Context) {
	accountID, ok := accountParam(c, c.Query("accountId"))
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		BadRequest(c, "year 格式错误")
		return
	}

	summary, err := h.summaries.Year(c.Request.Context(), currentCaller(c), accountID, year)
	if err != nil {
		respondError(c, err, "统计失败")
		return
	}
	Success(c, summary)
}

// periodQuery 读取 month、year 查询参数
func periodQuery(c *gin.Context) (models.Period, bool) {
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		BadRequest(c, "month 格式错误")
		return models.Period{}, false
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		BadRequest(c, "year 格式错误")
		return models.Period{}, false
	}
	period, err := models.NewPeriod(month, year)
	if err != nil {
		BadRequest(c, err.Error())
		return models.Period{}, false
	}
	return period, true
}
