package model

import "time"

// UserQuery 记录一次问答交互，创建后不再修改，应用也不会回读。
type UserQuery struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	QueryType string    `gorm:"column:query_type;type:varchar(32)" json:"queryType"`
	Sources   *string   `gorm:"type:text" json:"sources"` // JSON 数组，无来源时为 NULL
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (UserQuery) TableName() string {
	return "user_queries"
}
