package api

import (
	"net/http"
	"strconv"

	"expeapp/middleware"
	"expeapp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReportHandler 报销单处理器
type ReportHandler struct {
	db *gorm.DB
}

// NewReportHandler 创建报销单处理器
func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{db: db}
}

// CreateReportRequest 创建报销单请求
type CreateReportRequest struct {
	ReportName string `json:"report_name" binding:"required,max=255" example:"三月出差报销"`
	Purpose    string `json:"purpose" example:"客户拜访"`
	FromDate   string `json:"from_date" example:"2024-03-01T00:00:00"`
	ToDate     string `json:"to_date" example:"2024-03-05T00:00:00"`
	Status     string `json:"status" binding:"omitempty,max=50" example:"draft"`
	TripID     *uint  `json:"trip_id" example:"1"`
}

// Create 创建报销单
// @Summary 创建报销单
// @Description trip_id 可选；提交时必须指向当前用户自己的行程，否则返回 400
// @Tags 报销单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateReportRequest true "报销单信息"
// @Success 200 {object} models.Report "创建成功"
// @Failure 400 {object} ErrorResponse "参数错误或无效的 trip_id"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /reports/ [post]
func (h *ReportHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 行程引用仅在创建时校验一次，必须经过属主过滤的查询解析
	if req.TripID != nil {
		var trip models.Trip
		if err := h.db.Where("id = ? AND user_id = ?", *req.TripID, userID).First(&trip).Error; err != nil {
			BadRequest(c, "无效的 trip_id")
			return
		}
	}

	fromDate, err := parseOptionalTime(req.FromDate)
	if err != nil {
		BadRequest(c, "from_date 时间格式错误")
		return
	}
	toDate, err := parseOptionalTime(req.ToDate)
	if err != nil {
		BadRequest(c, "to_date 时间格式错误")
		return
	}

	report := models.Report{
		UserID:     userID,
		TripID:     req.TripID,
		ReportName: req.ReportName,
		Purpose:    req.Purpose,
		FromDate:   fromDate,
		ToDate:     toDate,
		Status:     req.Status,
	}

	if err := h.db.Create(&report).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建报销单失败"))
		return
	}

	c.JSON(http.StatusOK, report)
}

// List 获取报销单列表
// @Summary 获取报销单列表
// @Description 当前用户全部报销单，按创建时间倒序；行程被删除的报销单 trip_id 为空
// @Tags 报销单
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Report "获取成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /reports/ [get]
func (h *ReportHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var reports []models.Report
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	c.JSON(http.StatusOK, reports)
}

// Delete 删除报销单
// @Summary 删除报销单
// @Description 仅删除报销单本身，引用的行程不受影响
// @Tags 报销单
// @Security BearerAuth
// @Param id path int true "报销单ID"
// @Success 204 "删除成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Failure 404 {object} ErrorResponse "报销单不存在"
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var report models.Report
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&report).Error; err != nil {
		NotFound(c, "报销单不存在")
		return
	}

	if err := h.db.Delete(&report).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	NoContent(c)
}

// UpdateStatus 更新报销单状态
// @Summary 更新报销单状态
// @Description 无条件覆盖 status 字段，不校验状态流转，任意非空字符串均可
// @Tags 报销单
// @Produce json
// @Security BearerAuth
// @Param id path int true "报销单ID"
// @Param status query string true "新状态"
// @Success 200 {object} models.Report "更新成功"
// @Failure 400 {object} ErrorResponse "status 不能为空"
// @Failure 401 {object} ErrorResponse "未授权"
// @Failure 404 {object} ErrorResponse "报销单不存在"
// @Router /reports/{id}/status [patch]
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	status := c.Query("status")
	if status == "" {
		BadRequest(c, "status 不能为空")
		return
	}

	var report models.Report
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&report).Error; err != nil {
		NotFound(c, "报销单不存在")
		return
	}

	if err := h.db.Model(&report).Update("status", status).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	c.JSON(http.StatusOK, report)
}
