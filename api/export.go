package api

import (
	"bytes"
	"fmt"
	"net/http"

	"budget/service"

	"github.com/gin-gonic/gin"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	reports *service.ReportService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(svc *service.Services) *ExportHandler {
	return &ExportHandler{reports: svc.Reports}
}

// ExportCSV 导出月度预算为 CSV
// @Summary 导出月度预算为 CSV
// @Description 导出当前账户某月的类别预算汇总与交易明细
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param month query int true "月份"
// @Param year query int true "年份"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "该月尚未制定预算"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	period, ok := periodQuery(c)
	if !ok {
		return
	}
	report, err := h.reports.Monthly(c.Request.Context(), currentCaller(c), period)
	if err != nil {
		respondError(c, err, "导出失败")
		return
	}

	buf := new(bytes.Buffer)
	if err := report.WriteCSV(buf); err != nil {
		respondError(c, err, "生成 CSV 失败")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", report.Filename()))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出月度预算为 Excel
// @Summary 导出月度预算为 Excel
// @Description 生成包含“预算”“交易明细”两张工作表的 xlsx 文件
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param month query int true "月份"
// @Param year query int true "年份"
// @Success 200 {file} file "Excel 文件"
// @Failure 404 {object} Response "该月尚未制定预算"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	period, ok := periodQuery(c)
	if !ok {
		return
	}
	report, err := h.reports.Monthly(c.Request.Context(), currentCaller(c), period)
	if err != nil {
		respondError(c, err, "导出失败")
		return
	}

	f, err := report.Workbook()
	if err != nil {
		respondError(c, err, "生成 Excel 失败")
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		respondError(c, err, "生成 Excel 失败")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", report.Filename()))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
