package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budget/logger"
	"budget/models"
	"budget/service"
	"budget/storage"

	"github.com/gin-gonic/gin"
)

// TransactionHandler 交易处理器
type TransactionHandler struct {
	transactions *service.TransactionService
	receipts     *storage.ReceiptStore
}

// NewTransactionHandler 创建交易处理器，receipts 为 nil 时不接受票据上传
func NewTransactionHandler(svc *service.Services, receipts *storage.ReceiptStore) *TransactionHandler {
	return &TransactionHandler{transactions: svc.Transactions, receipts: receipts}
}

// AddExpenseRequest JSON 方式记账请求
type AddExpenseRequest struct {
	AllocationCategoryID uint         `json:"allocationCategoryId" binding:"required" example:"1"`
	Amount               models.Money `json:"amount" swaggertype:"number" example:"45.50"`
	PaymentMethod        string       `json:"paymentMethod" binding:"required" example:"CASH"`
	Description          string       `json:"description" example:"午餐"`
	Date                 string       `json:"date" example:"2025-03-15"`
}

// dateLayouts 可接受的日期格式
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("日期格式错误，应为 2006-01-02")
}

// AddExpense 记一笔支出
// @Summary 记一笔支出
// @Description 支持 JSON 或 multipart/form-data（字段同 JSON，票据文件字段为 billImage）。返回交易及刷新后的类别状态。
// @Tags 交易
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body AddExpenseRequest false "交易信息（JSON）"
// @Param billImage formData file false "票据（jpg/png/webp/pdf）"
// @Success 200 {object} Response{data=service.TransactionResult} "记录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "无权访问"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/transaction/add-expense [post]
func (h *TransactionHandler) AddExpense(c *gin.Context) {
	var (
		in  service.AddTransactionInput
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in, err = h.bindMultipart(c)
	} else {
		in, err = bindExpenseJSON(c)
	}
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	if h.receipts != nil {
		if file, ferr := c.FormFile("billImage"); ferr == nil {
			f, err := file.Open()
			if err != nil {
				BadRequest(c, "读取票据失败")
				return
			}
			url, err := h.receipts.Save(f)
			f.Close()
			if err != nil {
				respondError(c, err, "保存票据失败")
				return
			}
			in.BillImage = url
		}
	}

	result, err := h.transactions.Add(c.Request.Context(), currentCaller(c), in)
	if err != nil {
		if in.BillImage != "" {
			if rmErr := h.receipts.Remove(in.BillImage); rmErr != nil {
				logger.Log.WithError(rmErr).WithField("bill_image", in.BillImage).Warn("清理票据失败")
			}
		}
		respondError(c, err, "记录交易失败")
		return
	}
	SuccessWithMessage(c, "记录成功", result)
}

func bindExpenseJSON(c *gin.Context) (service.AddTransactionInput, error) {
	var req AddExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return service.AddTransactionInput{}, errors.New("参数错误: " + err.Error())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return service.AddTransactionInput{}, err
	}
	return service.AddTransactionInput{
		AllocationCategoryID: req.AllocationCategoryID,
		Amount:               req.Amount,
		PaymentMethod:        req.PaymentMethod,
		Description:          req.Description,
		Date:                 date,
	}, nil
}

func (h *TransactionHandler) bindMultipart(c *gin.Context) (service.AddTransactionInput, error) {
	if h.receipts != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.receiptLimit())
	}
	id, err := strconv.ParseUint(c.PostForm("allocationCategoryId"), 10, 64)
	if err != nil || id == 0 {
		return service.AddTransactionInput{}, errors.New("allocationCategoryId 格式错误")
	}
	amount, err := models.ParseMoney(c.PostForm("amount"))
	if err != nil {
		return service.AddTransactionInput{}, errors.New("金额格式错误")
	}
	date, err := parseDate(c.PostForm("date"))
	if err != nil {
		return service.AddTransactionInput{}, err
	}
	return service.AddTransactionInput{
		AllocationCategoryID: uint(id),
		Amount:               amount,
		PaymentMethod:        c.PostForm("paymentMethod"),
		Description:          c.PostForm("description"),
		Date:                 date,
	}, nil
}

// receiptLimit multipart 请求体上限：票据大小加上表单字段余量
func (h *TransactionHandler) receiptLimit() int64 {
	return h.receipts.MaxBytes() + 1<<20
}

// History 类别交易明细
// @Summary 类别交易明细
// @Description 返回某月某类别下未删除的交易，按日期倒序
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param allocationCategoryId path int true "预算类别ID"
// @Success 200 {object} Response "获取成功，data.transactions 为交易数组"
// @Failure 403 {object} Response "无权访问"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/transaction/history/{allocationCategoryId} [get]
func (h *TransactionHandler) History(c *gin.Context) {
	id, ok := idParam(c, "allocationCategoryId")
	if !ok {
		return
	}
	txns, err := h.transactions.History(c.Request.Context(), currentCaller(c), id)
	if err != nil {
		respondError(c, err, "获取交易失败")
		return
	}
	Success(c, gin.H{"transactions": txns})
}

// DeleteExpense 删除交易
// @Summary 删除交易
// @Description 删除交易并将金额退回所属类别
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易ID"
// @Success 200 {object} Response{data=models.CategoryView} "删除成功，返回刷新后的类别"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/v1/transaction/delete/{id} [delete]
func (h *TransactionHandler) DeleteExpense(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := h.transactions.Delete(c.Request.Context(), currentCaller(c), id)
	if err != nil {
		respondError(c, err, "删除交易失败")
		return
	}
	SuccessWithMessage(c, "删除成功", view)
}

// Reconcile 重新核对类别已支出
// @Summary 重新核对类别已支出
// @Description 以未删除交易之和重算类别已支出
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param allocationCategoryId path int true "预算类别ID"
// @Success 200 {object} Response{data=models.CategoryView} "核对完成"
// @Router /api/v1/transaction/reconcile/{allocationCategoryId} [post]
func (h *TransactionHandler) Reconcile(c *gin.Context) {
	id, ok := idParam(c, "allocationCategoryId")
	if !ok {
		return
	}
	view, err := h.transactions.Reconcile(c.Request.Context(), currentCaller(c), id)
	if err != nil {
		respondError(c, err, "核对失败")
		return
	}
	SuccessWithMessage(c, "核对完成", view)
}
