package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"expeapp/middleware"
	"expeapp/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	db *gorm.DB
}

// NewExportHandler 创建导出处理器
func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{db: db}
}

// queryRange 解析导出时间范围并查询当前用户在范围内的消费记录
func (h *ExportHandler) queryRange(c *gin.Context) ([]models.Expense, bool) {
	userID := middleware.GetCurrentUserID(c)

	startTimeStr := c.Query("start_time")
	endTimeStr := c.Query("end_time")
	if startTimeStr == "" || endTimeStr == "" {
		BadRequest(c, "请提供开始时间和结束时间")
		return nil, false
	}

	startTime, err := time.ParseInLocation("2006-01-02", startTimeStr, time.Local)
	if err != nil {
		BadRequest(c, "开始时间格式错误，应为: 2006-01-02")
		return nil, false
	}
	endTime, err := time.ParseInLocation("2006-01-02", endTimeStr, time.Local)
	if err != nil {
		BadRequest(c, "结束时间格式错误，应为: 2006-01-02")
		return nil, false
	}
	// 包含结束日期当天
	endTime = endTime.Add(24*time.Hour - time.Second)

	var expenses []models.Expense
	if err := h.db.Where("user_id = ? AND spent_at >= ? AND spent_at <= ?", userID, startTime, endTime).
		Order("spent_at DESC").
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return nil, false
	}

	return expenses, true
}

// ExportCSV 导出消费记录为 CSV
// @Summary 导出消费记录（CSV）
// @Description 按时间范围导出当前用户的消费记录为 CSV 文件
// @Tags 导出
// @Produce text/csv
// @Security BearerAuth
// @Param start_time query string true "开始时间 (2024-01-01)"
// @Param end_time query string true "结束时间 (2024-12-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} ErrorResponse "请求参数错误"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	expenses, ok := h.queryRange(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	// UTF-8 BOM，避免 Excel 打开中文乱码
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"ID", "金额", "币种", "类别", "描述", "消费时间", "创建时间"})
	for _, e := range expenses {
		_ = writer.Write([]string{
			fmt.Sprintf("%d", e.ID),
			fmt.Sprintf("%.2f", e.Amount),
			e.Currency,
			e.Category,
			e.Description,
			e.SpentAt.Format("2006-01-02 15:04:05"),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, SafeErrorMessage(err, "导出失败"))
		return
	}

	filename := fmt.Sprintf("expenses_%s.csv", time.Now().Format("20060102150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出消费记录为 Excel
// @Summary 导出消费记录（Excel）
// @Description 按时间范围导出当前用户的消费记录为 xlsx 文件
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_time query string true "开始时间 (2024-01-01)"
// @Param end_time query string true "结束时间 (2024-12-31)"
// @Success 200 {file} file "xlsx 文件"
// @Failure 400 {object} ErrorResponse "请求参数错误"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	expenses, ok := h.queryRange(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "消费记录"
	f.SetSheetName("Sheet1", sheetName)

	// 表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 10)
	f.SetColWidth(sheetName, "D", "D", 15)
	f.SetColWidth(sheetName, "E", "E", 30)
	f.SetColWidth(sheetName, "F", "G", 20)

	headers := []string{"ID", "金额", "币种", "类别", "描述", "消费时间", "创建时间"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for row, e := range expenses {
		values := []interface{}{
			e.ID,
			e.Amount,
			e.Currency,
			e.Category,
			e.Description,
			e.SpentAt.Format("2006-01-02 15:04:05"),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		InternalError(c, SafeErrorMessage(err, "导出失败"))
		return
	}

	filename := fmt.Sprintf("expenses_%s.xlsx", time.Now().Format("20060102150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
