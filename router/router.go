package router

import (
	"time"

	"expeapp/api"
	"expeapp/config"
	_ "expeapp/docs"
	"expeapp/middleware"
	"expeapp/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// SetupRouter 设置路由
// 所有依赖（配置、数据库句柄、票据存储）在此注入各处理器
func SetupRouter(cfg *config.Config, db *gorm.DB, receipts *service.ReceiptStore) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件（移动端跨域）
	r.Use(CORSMiddleware())

	// 认证相关路由（无需 token，带限流）
	authHandler := api.NewAuthHandler(db, cfg)
	auth := r.Group("/auth")
	auth.Use(middleware.AuthRateLimit(10, time.Minute))
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
	}

	// 需要 JWT 认证的路由
	authorized := r.Group("")
	authorized.Use(middleware.JWTAuth(db))
	{
		authorized.GET("/auth/me", authHandler.Me)
		authorized.DELETE("/auth/me", authHandler.DeleteAccount)

		// 消费记录相关
		expenseHandler := api.NewExpenseHandler(db, receipts)
		expenses := authorized.Group("/expenses")
		{
			expenses.POST("", expenseHandler.Create)
			expenses.GET("", expenseHandler.List)
			// 票据下载走鉴权接口，不做静态目录挂载
			expenses.GET("/receipt/:imageId", expenseHandler.GetReceipt)
			expenses.GET("/:id", expenseHandler.Get)
			expenses.PUT("/:id", expenseHandler.Update)
			expenses.DELETE("/:id", expenseHandler.Delete)
		}

		// 行程相关
		tripHandler := api.NewTripHandler(db)
		trips := authorized.Group("/trips")
		{
			trips.POST("", tripHandler.Create)
			trips.GET("", tripHandler.List)
			trips.DELETE("/:id", tripHandler.Delete)
			trips.PATCH("/:id/status", tripHandler.UpdateStatus)
		}

		// 报销单相关
		reportHandler := api.NewReportHandler(db)
		reports := authorized.Group("/reports")
		{
			reports.POST("", reportHandler.Create)
			reports.GET("", reportHandler.List)
			reports.DELETE("/:id", reportHandler.Delete)
			reports.PATCH("/:id/status", reportHandler.UpdateStatus)
		}

		// 导出相关
		exportHandler := api.NewExportHandler(db)
		export := authorized.Group("/export")
		{
			export.GET("/csv", exportHandler.ExportCSV)
			export.GET("/excel", exportHandler.ExportExcel)
		}
	}

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
