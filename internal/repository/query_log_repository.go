package repository

import (
	"context"

	"finsight-go/internal/model"

	"gorm.io/gorm"
)

// QueryLogRepository 定义了问答日志的操作接口。
// 日志只写不读，Insert 失败由调用方按尽力而为处理。
type QueryLogRepository interface {
	Insert(ctx context.Context, entry *model.UserQuery) error
	Count(ctx context.Context) (int64, error)
}

type queryLogRepository struct {
	db *gorm.DB
}

// NewQueryLogRepository 创建一个新的 QueryLogRepository 实例。
func NewQueryLogRepository(db *gorm.DB) QueryLogRepository {
	return &queryLogRepository{db: db}
}

func (r *queryLogRepository) Insert(ctx context.Context, entry *model.UserQuery) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *queryLogRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserQuery{}).Count(&count).Error
	return count, err
}
