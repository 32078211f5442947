package models

import (
	"time"
)

// User 用户模型
// 邮箱为登录凭证，大小写敏感的唯一索引；密码只保存 bcrypt 哈希
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FullName       string    `json:"full_name" gorm:"size:255"`
	HashedPassword string    `json:"-" gorm:"column:hashed_password;size:255;not null"`
	CreatedAt      time.Time `json:"created_at"`

	// 级联关系：删除用户时连带删除其全部消费、行程和报销单
	Expenses []Expense `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Trips    []Trip    `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Reports  []Report  `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}
