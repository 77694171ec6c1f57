// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"

	"finsight-go/internal/service"
	"finsight-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UploadHandler 负责处理股价 CSV 上传相关的 API 请求。
type UploadHandler struct {
	ingestService service.IngestService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(ingestService service.IngestService) *UploadHandler {
	return &UploadHandler{ingestService: ingestService}
}

// UploadStockCSV 处理股价 CSV 文件上传。
// 解析失败返回 400 并列出可接受的表头；入库失败返回 500 并透出底层错误。
func (h *UploadHandler) UploadStockCSV(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "未能获取上传的文件"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "读取上传文件失败"})
		return
	}

	count, err := h.ingestService.IngestCSV(c.Request.Context(), header.Filename, string(content))
	if err != nil {
		var parseErr *service.ParseError
		if errors.As(err, &parseErr) {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": parseErr.Error()})
			return
		}
		log.Error("UploadStockCSV: failed to ingest csv", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "股价数据上传失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "股价数据上传成功",
		"data":    gin.H{"records": count},
	})
}
