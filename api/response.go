package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应结构
// 成功响应直接返回实体 JSON，错误响应统一使用该结构
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400 错误响应（参数错误 / 邮箱重复 / 凭证错误 / 无效引用）
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized 401 错误响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// NotFound 404 错误响应
// 资源不存在与归属他人返回完全相同的内容，不暴露他人资源是否存在
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError 500 错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// NoContent 204 响应
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
