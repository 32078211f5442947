package models

import (
	"time"
)

// DefaultCurrency 默认币种
const DefaultCurrency = "INR"

// Expense 消费记录模型
// 每条记录归属唯一用户；spent_at 未指定时取创建时间
type Expense struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	Amount      float64   `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency    string    `json:"currency" gorm:"size:10;default:INR"`
	Category    string    `json:"category" gorm:"size:100"`
	Description string    `json:"description" gorm:"type:text"`
	OcrText     string    `json:"ocr_text" gorm:"type:text"`
	SpentAt     time.Time `json:"spent_at" gorm:"index;not null"`
	CreatedAt   time.Time `json:"created_at"`

	// 删除消费记录时连带删除票据行（磁盘文件保留）
	ReceiptImages []ReceiptImage `json:"receipt_images" gorm:"foreignKey:ExpenseID;constraint:OnDelete:CASCADE"`
}

// TableName 设置表名
func (Expense) TableName() string {
	return "expenses"
}

// ReceiptImage 票据图片模型
// 只保存相对存储路径，二进制内容在存储目录中
type ReceiptImage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ExpenseID uint      `json:"expense_id" gorm:"index;not null"`
	FilePath  string    `json:"file_path" gorm:"size:512;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 设置表名
func (ReceiptImage) TableName() string {
	return "receipt_images"
}
