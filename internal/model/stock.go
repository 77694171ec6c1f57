// Package model 包含了应用的数据模型定义。
package model

import "time"

// StockPrice 代表某个交易日的股价记录，date 为唯一键。
// 日期以 ISO 字符串存储而非 SQL date 类型：检索规则的月末上界
// 统一使用 31 号（例如 2024-02-31），依赖字符串的字典序比较。
type StockPrice struct {
	Date      string    `gorm:"primaryKey;column:date;type:varchar(10)" json:"date"`
	Open      float64   `gorm:"not null" json:"open"`
	High      float64   `gorm:"not null" json:"high"`
	Low       float64   `gorm:"not null" json:"low"`
	Close     float64   `gorm:"not null" json:"close"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (StockPrice) TableName() string {
	return "stock_prices"
}
