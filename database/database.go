package database

import (
	"fmt"
	"log"

	"expeapp/config"
	"expeapp/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init 初始化数据库连接并自动迁移
// 返回连接句柄，由调用方注入到各处理器，不保存包级全局变量
func Init(cfg *config.Config) (*gorm.DB, error) {
	// 构建 MySQL DSN 连接字符串
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 获取底层 *sql.DB 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	// 自动迁移数据库表
	// 外键级联在此声明：删除用户连带删除其消费/行程/报销单，
	// 删除消费连带删除票据行，删除行程时报销单的 trip_id 置空
	if err := db.AutoMigrate(
		&models.User{},
		&models.Expense{},
		&models.ReceiptImage{},
		&models.Trip{},
		&models.Report{},
	); err != nil {
		return nil, err
	}

	log.Println("数据库初始化成功")
	return db, nil
}
