package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expeapp/config"
	"expeapp/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

var jwtSecret []byte

// Claims JWT 载荷
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// InitJWT 初始化 JWT 签名密钥
// 密钥来自启动时加载的配置，代码中不内置任何密钥
func InitJWT(cfg *config.Config) {
	jwtSecret = []byte(cfg.JWT.Secret)
}

// GenerateToken 生成 JWT token
// 自包含凭证：载荷携带用户身份与过期时间，服务端不保存会话，
// 自然过期前无法吊销，登出由客户端丢弃 token 实现
func GenerateToken(userID uint, email string, expireTime time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expireTime)),
			Issuer:    "expeapp",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken 解析并校验 JWT token
// 签名错误、篡改、过期、格式错误一律返回错误，不区分原因
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// JWTAuth JWT 认证中间件
// 除解析 token 外还要求载荷中的用户仍然存在，用户已注销则同样返回 401
func JWTAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			abortUnauthorized(c)
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    401,
		"message": "无法验证凭证，请重新登录",
	})
	c.Abort()
}

// GetCurrentUserID 获取当前登录用户ID
func GetCurrentUserID(c *gin.Context) uint {
	if userID, exists := c.Get("userID"); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}
