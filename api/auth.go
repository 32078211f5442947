package api

import (
	"net/http"

	"expeapp/config"
	"expeapp/middleware"
	"expeapp/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// SignupRequest 注册请求
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email" example:"a@x.com"`
	Password string `json:"password" binding:"required,min=6,max=72" example:"password123"`
	FullName string `json:"full_name" binding:"omitempty,max=255" example:"Asha Rao"`
}

// LoginRequest 登录请求（OAuth2 表单格式，username 字段填邮箱）
type LoginRequest struct {
	Username string `form:"username" binding:"required" example:"a@x.com"`
	Password string `form:"password" binding:"required" example:"password123"`
}

// TokenResponse 登录响应
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type" example:"bearer"`
}

// Signup 用户注册
// @Summary 用户注册
// @Description 创建新用户账号，邮箱唯一（区分大小写的精确匹配）
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body SignupRequest true "注册信息"
// @Success 201 {object} models.User "注册成功"
// @Failure 400 {object} ErrorResponse "参数错误或邮箱已被注册"
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 检查邮箱是否已注册
	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		BadRequest(c, "该邮箱已被注册")
		return
	}

	// 加密密码，明文不落库也不打日志
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		InternalError(c, "密码加密失败")
		return
	}

	user := models.User{
		Email:          req.Email,
		FullName:       req.FullName,
		HashedPassword: string(hashedPassword),
	}

	if err := h.db.Create(&user).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "创建用户失败"))
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login 用户登录
// @Summary 用户登录
// @Description 表单提交邮箱与密码，成功后返回 bearer token。邮箱不存在与密码错误返回完全相同的错误
// @Tags 认证
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "邮箱"
// @Param password formData string true "密码"
// @Success 200 {object} TokenResponse "登录成功"
// @Failure 400 {object} ErrorResponse "邮箱或密码错误"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "参数错误"))
		return
	}

	// 查找用户并验证密码；两种失败路径返回同一错误，避免探测已注册邮箱
	var user models.User
	if err := h.db.Where("email = ?", req.Username).First(&user).Error; err != nil {
		BadRequest(c, "邮箱或密码错误")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		BadRequest(c, "邮箱或密码错误")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// Me 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User "获取成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		NotFound(c, "用户不存在")
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteAccount 注销账号
// @Summary 注销账号
// @Description 删除当前用户及其全部消费记录、票据、行程与报销单
// @Tags 认证
// @Security BearerAuth
// @Success 204 "注销成功"
// @Failure 401 {object} ErrorResponse "未授权"
// @Router /auth/me [delete]
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	// 子表由外键级联删除；票据磁盘文件保留
	if err := h.db.Delete(&models.User{}, userID).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "注销失败"))
		return
	}

	NoContent(c)
}
