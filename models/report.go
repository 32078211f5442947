package models

import (
	"time"
)

// Report 报销单模型
// trip_id 可空；行程被删除时置空，报销单本身保留
type Report struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"user_id" gorm:"index;not null"`
	TripID     *uint      `json:"trip_id" gorm:"index"`
	ReportName string     `json:"report_name" gorm:"size:255;not null"`
	Purpose    string     `json:"purpose" gorm:"type:text"`
	FromDate   *time.Time `json:"from_date"`
	ToDate     *time.Time `json:"to_date"`
	Status     string     `json:"status" gorm:"size:50"`
	CreatedAt  time.Time  `json:"created_at"`

	Trip *Trip `json:"-" gorm:"foreignKey:TripID;constraint:OnDelete:SET NULL"`
}

// TableName 设置表名
func (Report) TableName() string {
	return "reports"
}
