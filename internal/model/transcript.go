package model

import "time"

// TranscriptChunk 对应外部存储中的 transcript_chunks 表。
// 核心流程只做存在性探测与计数，不读取其内容。
type TranscriptChunk struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (TranscriptChunk) TableName() string {
	return "transcript_chunks"
}
