package models

import (
	"time"
)

// 状态约定值：仅供客户端与测试参考，服务端不校验流转，任意非空字符串均可写入
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Trip 行程模型
// from_date / to_date 相互独立，不强制先后顺序
type Trip struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"user_id" gorm:"index;not null"`
	Name       string     `json:"name" gorm:"size:255;not null"`
	Purpose    string     `json:"purpose" gorm:"type:text"`
	TravelType string     `json:"travel_type" gorm:"size:50"`
	FromDate   *time.Time `json:"from_date"`
	ToDate     *time.Time `json:"to_date"`
	Status     string     `json:"status" gorm:"size:50"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName 设置表名
func (Trip) TableName() string {
	return "trips"
}
