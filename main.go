package main

import (
	"flag"
	"log"
	"strings"

	"expeapp/config"
	"expeapp/database"
	"expeapp/middleware"
	"expeapp/router"
	"expeapp/service"
)

// @title ExpeApp API
// @version 1.0
// @description 个人消费与差旅报销后端，支持用户注册登录、消费记录与票据上传、行程和报销单管理
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		log.Println("ExpeApp 后端 v1.0.0")
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖 + 环境变量）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}

	cfg.Print()

	// 初始化数据库
	db, err := database.Init(cfg)
	if err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}

	// 初始化 JWT 签名密钥
	middleware.InitJWT(cfg)

	// 初始化票据存储
	receipts, err := service.NewReceiptStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("初始化票据存储失败: %v", err)
	}

	// 设置路由
	r := router.SetupRouter(cfg, db, receipts)

	log.Printf("==========================================")
	log.Printf("  🧾 ExpeApp 后端已启动")
	log.Printf("  API:     http://localhost%s/", cfg.Server.Port)
	log.Printf("  Swagger: http://localhost%s/swagger/index.html", cfg.Server.Port)
	log.Printf("==========================================")

	if err := r.Run(cfg.Server.Port); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
}
