package repository

import (
	"context"

	"finsight-go/internal/model"

	"gorm.io/gorm"
)

// TranscriptRepository 只对 transcript_chunks 做存在性探测与计数，
// 核心流程不读取其内容。
type TranscriptRepository interface {
	// Ping 以 LIMIT 1 读取探测表是否可达。
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	LatestCreatedAt(ctx context.Context) (string, error)
}

type transcriptRepository struct {
	db *gorm.DB
}

// NewTranscriptRepository 创建一个新的 TranscriptRepository 实例。
func NewTranscriptRepository(db *gorm.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

func (r *transcriptRepository) Ping(ctx context.Context) error {
	var chunks []model.TranscriptChunk
	return r.db.WithContext(ctx).Select("id").Limit(1).Find(&chunks).Error
}

func (r *transcriptRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TranscriptChunk{}).Count(&count).Error
	return count, err
}

// LatestCreatedAt 返回最近一条 chunk 的创建时间（RFC3339），无数据时返回空串。
func (r *transcriptRepository) LatestCreatedAt(ctx context.Context) (string, error) {
	var latest model.TranscriptChunk
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(1).Find(&latest).Error
	if err != nil {
		return "", err
	}
	if latest.ID == 0 {
		return "", nil
	}
	return latest.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), nil
}
