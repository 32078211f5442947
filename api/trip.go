package api

import (
	"net/http"
	"strconv"

	"expeapp/middleware"
	"expeapp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TripHandler 行程处理器
type TripHandler struct {
	db *gorm.DB
}

// NewTripHandler 创建行程处理器
func NewTripHandler(db *gorm.DB) *TripHandler {
	return &TripHandler{db: db}
}

// CreateTripRequest 创建行程请求
type CreateTripRequest struct {
	Name       string `json:"name" binding:"required,max=255" example:"班加罗尔出差"`
	Purpose    string `json:"purpose" example:"客户拜访"`
	TravelType string `json:"travel_type" binding:"omitempty,max=50" example:"business"`
	FromDate   string `json:"from_date" example:"2024-03-01T00:00:00"`
	ToDate     string `json:"to_date" example:"2024-03-05T00:00:00"`
	Status     string `json:"status" binding:"omitempty,max=50" example:"draft"`
}

// Create 创建行程
// @Summary 创建行程
// @Description from_date/to_date 均可选且相互独立，不校验先后顺序
// @Tags 行程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTripRequest true "行程信息"
// @Success 200 {object} models.Trip "创建成功"
// @Failure 400 {object} ErrorResponse "请求参数错误"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /trips/ [post]
func (h *TripHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
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

	trip := models.Trip{
		UserID:     userID,
		Name:       req.Name,
		Purpose:    req.Purpose,
		TravelType: req.TravelType,
		FromDate:   fromDate,
		ToDate:     toDate,
		Status:     req.Status,
	}

	if err := h.db.Create(&trip).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建行程失败"))
		return
	}

	c.JSON(http.StatusOK, trip)
}

// List 获取行程列表
// @Summary 获取行程列表
// @Description 当前用户全部行程，按创建时间倒序
// @Tags 行程
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Trip "获取成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /trips/ [get]
func (h *TripHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var trips []models.Trip
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&trips).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	c.JSON(http.StatusOK, trips)
}

// Delete 删除行程
// @Summary 删除行程
// @Description 关联报销单的 trip_id 置空，报销单本身保留
// @Tags 行程
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Success 204 "删除成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Failure 404 {object} ErrorResponse "行程不存在"
// @Router /trips/{id} [delete]
func (h *TripHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var trip models.Trip
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&trip).Error; err != nil {
		NotFound(c, "行程不存在")
		return
	}

	if err := h.db.Delete(&trip).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	NoContent(c)
}

// UpdateStatus 更新行程状态
// @Summary 更新行程状态
// @Description 无条件覆盖 status 字段，不校验状态流转，任意非空字符串均可
// @Tags 行程
// @Produce json
// @Security BearerAuth
// @Param id path int true "行程ID"
// @Param status query string true "新状态"
// @Success 200 {object} models.Trip "更新成功"
// @Failure 400 {object} ErrorResponse "status 不能为空"
// @Failure 401 {object} ErrorResponse "未授权"
// @Failure 404 {object} ErrorResponse "行程不存在"
// @Router /trips/{id}/status [patch]
func (h *TripHandler) UpdateStatus(c *gin.Context) {
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

	var trip models.Trip
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&trip).Error; err != nil {
		NotFound(c, "行程不存在")
		return
	}

	if err := h.db.Model(&trip).Update("status", status).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	c.JSON(http.StatusOK, trip)
}
