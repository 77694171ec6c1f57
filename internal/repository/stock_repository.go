// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"

	"finsight-go/internal/model"
	"finsight-go/internal/retrieval"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository 定义了股价记录的操作接口。
type StockRepository interface {
	// UpsertAll 按 date 键写入记录，已存在的日期覆盖旧价格（幂等）。
	UpsertAll(ctx context.Context, records []model.StockPrice) error
	// Query 按 FilterSpec 读取记录。错误原样返回，吞错策略由调用方执行。
	Query(ctx context.Context, spec retrieval.FilterSpec) ([]model.StockPrice, error)
	Count(ctx context.Context) (int64, error)
	LatestCreatedAt(ctx context.Context) (string, error)
}

type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建一个新的 StockRepository 实例。
func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

// UpsertAll 以 date 为冲突键批量写入，冲突时更新四个价格列。
func (r *stockRepository) UpsertAll(ctx context.Context, records []model.StockPrice) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close"}),
	}).Create(&records).Error
}

// Query 将 FilterSpec 翻译为对 stock_prices 的一次只读查询。
func (r *stockRepository) Query(ctx context.Context, spec retrieval.FilterSpec) ([]model.StockPrice, error) {
	q := r.db.WithContext(ctx).Model(&model.StockPrice{})
	if spec.StartDate != "" {
		q = q.Where("date >= ?", spec.StartDate)
	}
	if spec.EndDate != "" {
		q = q.Where("date <= ?", spec.EndDate)
	}
	if spec.OrderBy != "" {
		order := spec.OrderBy
		if spec.Desc {
			order += " DESC"
		} else {
			order += " ASC"
		}
		q = q.Order(order)
	}
	if spec.Limit > 0 {
		q = q.Limit(spec.Limit)
	}

	var rows []model.StockPrice
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *stockRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.StockPrice{}).Count(&count).Error
	return count, err
}

// LatestCreatedAt 返回最近一次写入的时间戳（RFC3339），无数据时返回空串。
func (r *stockRepository) LatestCreatedAt(ctx context.Context) (string, error) {
	var latest model.StockPrice
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(1).Find(&latest).Error
	if err != nil {
		return "", err
	}
	if latest.Date == "" {
		return "", nil
	}
	return latest.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), nil
}
