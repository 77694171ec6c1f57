package handler

import (
	"net/http"

	"finsight-go/internal/service"
	"finsight-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// StatsHandler 负责处理仪表盘统计相关的 API 请求。
type StatsHandler struct {
	statsService service.StatsService
}

// NewStatsHandler 创建一个新的 StatsHandler 实例。
func NewStatsHandler(statsService service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetStats 返回各数据表的规模与最近更新时间。
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.statsService.GetStats(c.Request.Context())
	if err != nil {
		log.Error("GetStats: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "获取统计信息失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    stats,
	})
}
