package service

import (
	"context"
	"encoding/json"
	"time"

	"finsight-go/internal/repository"
	"finsight-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

const (
	statsCacheKey = "finsight:stats"
	statsCacheTTL = 30 * time.Second
)

// Stats 汇总仪表盘展示所需的数据规模信息。
type Stats struct {
	StockRecords     int64  `json:"stockRecords"`
	TranscriptChunks int64  `json:"transcriptChunks"`
	TotalQueries     int64  `json:"totalQueries"`
	LastUpdated      string `json:"lastUpdated,omitempty"`
}

// StatsService 定义了仪表盘统计的接口。
type StatsService interface {
	GetStats(ctx context.Context) (*Stats, error)
}

type statsService struct {
	stockRepo      repository.StockRepository
	transcriptRepo repository.TranscriptRepository
	queryLogRepo   repository.QueryLogRepository
	redisClient    *redis.Client
}

// NewStatsService 创建一个新的 StatsService 实例。
// redisClient 为 nil 时关闭缓存，直接回源计数。
func NewStatsService(stockRepo repository.StockRepository, transcriptRepo repository.TranscriptRepository, queryLogRepo repository.QueryLogRepository, redisClient *redis.Client) StatsService {
	return &statsService{
		stockRepo:      stockRepo,
		transcriptRepo: transcriptRepo,
		queryLogRepo:   queryLogRepo,
		redisClient:    redisClient,
	}
}

// GetStats 返回各表的计数与最近更新时间，结果在 Redis 中缓存 30 秒。
// 缓存读写失败只记录不影响结果；单项计数失败时该项保持为 0。
func (s *statsService) GetStats(ctx context.Context) (*Stats, error) {
	if cached := s.readCache(ctx); cached != nil {
		return cached, nil
	}

	stats := &Stats{}

	if count, err := s.stockRepo.Count(ctx); err != nil {
		log.Warnf("统计股价记录数失败: %v", err)
	} else {
		stats.StockRecords = count
	}
	if count, err := s.transcriptRepo.Count(ctx); err != nil {
		log.Warnf("统计 transcript chunks 失败: %v", err)
	} else {
		stats.TranscriptChunks = count
	}
	if count, err := s.queryLogRepo.Count(ctx); err != nil {
		log.Warnf("统计问答日志失败: %v", err)
	} else {
		stats.TotalQueries = count
	}

	// RFC3339 可按字典序比较，直接取两者的较大值
	stockLatest, err := s.stockRepo.LatestCreatedAt(ctx)
	if err != nil {
		log.Warnf("读取股价最近更新时间失败: %v", err)
	}
	transcriptLatest, err := s.transcriptRepo.LatestCreatedAt(ctx)
	if err != nil {
		log.Warnf("读取 transcript 最近更新时间失败: %v", err)
	}
	stats.LastUpdated = stockLatest
	if transcriptLatest > stats.LastUpdated {
		stats.LastUpdated = transcriptLatest
	}

	s.writeCache(ctx, stats)
	return stats, nil
}

func (s *statsService) readCache(ctx context.Context) *Stats {
	if s.redisClient == nil {
		return nil
	}
	jsonData, err := s.redisClient.Get(ctx, statsCacheKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Warnf("读取统计缓存失败: %v", err)
		return nil
	}
	var stats Stats
	if err := json.Unmarshal([]byte(jsonData), &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *statsService) writeCache(ctx context.Context, stats *Stats) {
	if s.redisClient == nil {
		return
	}
	jsonData, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, statsCacheKey, jsonData, statsCacheTTL).Err(); err != nil {
		log.Warnf("写入统计缓存失败: %v", err)
	}
}
