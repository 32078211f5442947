package api

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"expeapp/middleware"
	"expeapp/models"
	"expeapp/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ExpenseHandler 消费记录处理器
type ExpenseHandler struct {
	db       *gorm.DB
	receipts *service.ReceiptStore
}

// NewExpenseHandler 创建消费记录处理器
func NewExpenseHandler(db *gorm.DB, receipts *service.ReceiptStore) *ExpenseHandler {
	return &ExpenseHandler{db: db, receipts: receipts}
}

// expenseForm 从 multipart 表单解析出的消费字段
type expenseForm struct {
	amount      float64
	currency    string
	category    string
	description string
	ocrText     string
	spentAt     *time.Time
	image       *multipart.FileHeader
	imageData   []byte
}

// bindExpenseForm 解析 multipart 表单
// amount 必填且大于 0，currency 缺省为 INR，spent_at 可选
func (h *ExpenseHandler) bindExpenseForm(c *gin.Context) (*expenseForm, bool) {
	amountStr := c.PostForm("amount")
	if amountStr == "" {
		BadRequest(c, "amount 不能为空")
		return nil, false
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount <= 0 {
		BadRequest(c, "amount 必须为大于 0 的数字")
		return nil, false
	}

	form := &expenseForm{
		amount:      amount,
		currency:    c.PostForm("currency"),
		category:    c.PostForm("category"),
		description: c.PostForm("description"),
		ocrText:     c.PostForm("ocr_text"),
	}
	if form.currency == "" {
		form.currency = models.DefaultCurrency
	}

	form.spentAt, err = parseOptionalTime(c.PostForm("spent_at"))
	if err != nil {
		BadRequest(c, "spent_at 时间格式错误")
		return nil, false
	}

	// 票据图片可选
	if fileHeader, err := c.FormFile("image"); err == nil {
		f, err := fileHeader.Open()
		if err != nil {
			BadRequest(c, "读取上传文件失败")
			return nil, false
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			BadRequest(c, "读取上传文件失败")
			return nil, false
		}
		form.image = fileHeader
		form.imageData = data
	}

	return form, true
}

// saveReceipt 落盘票据文件并在同一事务内记录票据行
// 先写文件后写记录：崩溃最多留下孤儿文件，不会留下指向缺失文件的记录
func (h *ExpenseHandler) saveReceipt(tx *gorm.DB, userID uint, expense *models.Expense, form *expenseForm) error {
	relPath, err := h.receipts.Save(userID, expense.ID, form.image.Filename, form.imageData)
	if err != nil {
		return err
	}

	receipt := models.ReceiptImage{
		ExpenseID: expense.ID,
		FilePath:  relPath,
	}
	if err := tx.Create(&receipt).Error; err != nil {
		return err
	}

	expense.ReceiptImages = append(expense.ReceiptImages, receipt)
	return nil
}

// Create 创建消费记录
// @Summary 创建消费记录
// @Description multipart 表单创建消费记录，可附带一张票据图片；spent_at 未指定时取当前时间
// @Tags 消费记录
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param amount formData number true "金额（大于0）"
// @Param currency formData string false "币种，默认 INR"
// @Param category formData string false "类别"
// @Param description formData string false "描述"
// @Param ocr_text formData string false "OCR 识别文本"
// @Param spent_at formData string false "消费时间（ISO 8601）"
// @Param image formData file false "票据图片"
// @Success 200 {object} models.Expense "创建成功"
// @Failure 400 {object} ErrorResponse "请求参数错误"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /expenses/ [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	form, ok := h.bindExpenseForm(c)
	if !ok {
		return
	}

	spentAt := time.Now()
	if form.spentAt != nil {
		spentAt = *form.spentAt
	}

	expense := models.Expense{
		UserID:      userID,
		Amount:      form.amount,
		Currency:    form.currency,
		Category:    form.category,
		Description: form.description,
		OcrText:     form.ocrText,
		SpentAt:     spentAt,
	}

	// 记录与票据在同一事务内提交
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}
		if form.image != nil {
			return h.saveReceipt(tx, userID, &expense, form)
		}
		return nil
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "创建消费记录失败"))
		return
	}

	if expense.ReceiptImages == nil {
		expense.ReceiptImages = []models.ReceiptImage{}
	}
	c.JSON(http.StatusOK, expense)
}

// List 获取消费记录列表
// @Summary 获取消费记录列表
// @Description 当前用户全部消费记录，按消费时间倒序
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Expense "获取成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /expenses/ [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var expenses []models.Expense
	if err := h.db.Where("user_id = ?", userID).
		Preload("ReceiptImages").
		Order("spent_at DESC").
		Find(&expenses).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}

	for i := range expenses {
		if expenses[i].ReceiptImages == nil {
			expenses[i].ReceiptImages = []models.ReceiptImage{}
		}
	}
	c.JSON(http.StatusOK, expenses)
}

// Get 获取单条消费记录
// @Summary 获取单条消费记录
// @Tags 消费记录
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 200 {object} models.Expense "获取成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Failure 404 {object} ErrorResponse "记录不存在"
// @Router /expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("ReceiptImages").
		First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	if expense.ReceiptImages == nil {
		expense.ReceiptImages = []models.ReceiptImage{}
	}
	c.JSON(http.StatusOK, expense)
}

// Update 更新消费记录
// @Summary 更新消费记录
// @Description 与创建相同的 multipart 表单；amount/currency/category/description/ocr_text 整体覆盖，spent_at 仅在提交时覆盖，新图片追加为一张票据
// @Tags 消费记录
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Param amount formData number true "金额（大于0）"
// @Param currency formData string false "币种，默认 INR"
// @Param category formData string false "类别"
// @Param description formData string false "描述"
// @Param ocr_text formData string false "OCR 识别文本"
// @Param spent_at formData string false "消费时间（ISO 8601）"
// @Param image formData file false "追加的票据图片"
// @Success 200 {object} models.Expense "更新成功"
// @Failure 400 {object} ErrorResponse "请求参数错误"
// @Failure 401 {object} ErrorResponse "未授权"
// @Failure 404 {object} ErrorResponse "记录不存在"
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	form, ok := h.bindExpenseForm(c)
	if !ok {
		return
	}

	// 整体覆盖语义：未提交的文本字段写入空值而不是保留旧值
	updates := map[string]interface{}{
		"amount":      form.amount,
		"currency":    form.currency,
		"category":    form.category,
		"description": form.description,
		"ocr_text":    form.ocrText,
	}
	if form.spentAt != nil {
		updates["spent_at"] = *form.spentAt
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&expense).Updates(updates).Error; err != nil {
			return err
		}
		if form.image != nil {
			return h.saveReceipt(tx, userID, &expense, form)
		}
		return nil
	})
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "更新失败"))
		return
	}

	// 重新获取更新后的记录
	if err := h.db.Preload("ReceiptImages").First(&expense, expense.ID).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return
	}
	if expense.ReceiptImages == nil {
		expense.ReceiptImages = []models.ReceiptImage{}
	}
	c.JSON(http.StatusOK, expense)
}

// Delete 删除消费记录
// @Summary 删除消费记录
// @Description 删除消费记录及其票据行（磁盘文件保留）
// @Tags 消费记录
// @Security BearerAuth
// @Param id path int true "消费记录ID"
// @Success 204 "删除成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Failure 404 {object} ErrorResponse "记录不存在"
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	var expense models.Expense
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&expense).Error; err != nil {
		NotFound(c, "记录不存在")
		return
	}

	if err := h.db.Delete(&expense).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "删除失败"))
		return
	}

	NoContent(c)
}

// GetReceipt 下载票据图片
// @Summary 下载票据图片
// @Description 票据不存在、归属他人或磁盘文件缺失均返回 404
// @Tags 消费记录
// @Produce octet-stream
// @Security BearerAuth
// @Param imageId path int true "票据图片ID"
// @Success 200 {file} file "图片内容"
// @Failure 401 {object} ErrorResponse "未授权"
// @Failure 404 {object} ErrorResponse "图片不存在"
// @Router /expenses/receipt/{imageId} [get]
func (h *ExpenseHandler) GetReceipt(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	imageID, err := strconv.ParseUint(c.Param("imageId"), 10, 32)
	if err != nil {
		BadRequest(c, "无效的ID")
		return
	}

	// 经由所属消费记录校验归属
	var img models.ReceiptImage
	if err := h.db.Table("receipt_images").
		Joins("JOIN expenses ON expenses.id = receipt_images.expense_id").
		Where("receipt_images.id = ? AND expenses.user_id = ?", imageID, userID).
		First(&img).Error; err != nil {
		NotFound(c, "图片不存在")
		return
	}

	absPath, err := h.receipts.Resolve(img.FilePath)
	if err != nil {
		if errors.Is(err, service.ErrFileMissing) {
			// 存储不一致：有记录但文件缺失，对外仍然是 404
			log.Printf("存储不一致: 票据 %d 对应的文件 %s 缺失", img.ID, img.FilePath)
		}
		NotFound(c, "图片不存在")
		return
	}

	c.File(absPath)
}
