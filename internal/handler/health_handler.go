package handler

import (
	"net/http"

	"finsight-go/internal/repository"

	"github.com/gin-gonic/gin"
)

// HealthHandler 负责报告与外部存储的连接状态。
type HealthHandler struct {
	transcriptRepo repository.TranscriptRepository
}

// NewHealthHandler 创建一个新的 HealthHandler 实例。
func NewHealthHandler(transcriptRepo repository.TranscriptRepository) *HealthHandler {
	return &HealthHandler{transcriptRepo: transcriptRepo}
}

// Check 以一次 LIMIT 1 读取探测 transcript_chunks 表的可达性。
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.transcriptRepo.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}
