// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"finsight-go/internal/config"
	"finsight-go/internal/model"
	"finsight-go/internal/repository"
	"finsight-go/pkg/log"
	"finsight-go/pkg/storage"
)

// ParseError 表示整份 CSV 过滤后没有任何可用行。
// 单行损坏只会丢弃该行，不会触发 ParseError。
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

// 整体解析失败时的提示必须同时列出两种可接受的表头。
const noValidRowsMessage = "No valid stock data found in CSV. Expected columns: Date, Close Price or date, open, high, low, close"

// IngestService 定义了股价数据导入的接口。
type IngestService interface {
	// IngestCSV 解析 CSV 文本并按 date 键幂等写入，返回写入的记录数。
	IngestCSV(ctx context.Context, fileName, csvText string) (int, error)
}

type ingestService struct {
	stockRepo repository.StockRepository
	minioCfg  config.MinIOConfig
}

// NewIngestService 创建一个新的 IngestService 实例。
func NewIngestService(stockRepo repository.StockRepository, minioCfg config.MinIOConfig) IngestService {
	return &ingestService{
		stockRepo: stockRepo,
		minioCfg:  minioCfg,
	}
}

// IngestCSV 执行完整的上传流程：解析、入库、归档。
// 解析与入库失败都会中止本次上传并透出给调用方；归档按尽力而为处理。
func (s *ingestService) IngestCSV(ctx context.Context, fileName, csvText string) (int, error) {
	records, err := ParseStockCSV(csvText)
	if err != nil {
		return 0, err
	}

	if err := s.stockRepo.UpsertAll(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to store stock records: %w", err)
	}

	// 原始文件归档失败不影响上传结果
	if objectName, err := storage.ArchiveCSV(ctx, s.minioCfg.BucketName, fileName, []byte(csvText)); err != nil {
		log.Warnf("归档原始 CSV 失败: file=%s, err=%v", fileName, err)
	} else {
		log.Infof("原始 CSV 已归档: %s", objectName)
	}

	log.Infof("股价数据导入完成: file=%s, records=%d", fileName, len(records))
	return len(records), nil
}

// ParseStockCSV 将 CSV 文本解析为统一的股价记录。
//
// 接受两种表头：
//
//	(a) Date, Close Price            只有收盘价，open/high/low 取收盘价近似
//	(b) date, open, high, low, close 四个价格齐全
//
// 逐行独立处理：schema (a) 下收盘价不可解析的行被丢弃；
// schema (b) 下不可解析的数字按 0 处理。两种策略的不对称是
// 对上游行为的保留，详见 DESIGN.md。
func ParseStockCSV(csvText string) ([]model.StockPrice, error) {
	reader := csv.NewReader(strings.NewReader(csvText))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &ParseError{Reason: noValidRowsMessage}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	dateIdx, hasDate := cols["Date"]
	closeOnlyIdx, hasCloseOnly := cols["Close Price"]
	isCloseOnly := hasDate && hasCloseOnly

	var ohlcIdx [5]int
	isOHLC := true
	for i, name := range []string{"date", "open", "high", "low", "close"} {
		idx, ok := cols[name]
		if !ok {
			isOHLC = false
			break
		}
		ohlcIdx[i] = idx
	}

	if !isCloseOnly && !isOHLC {
		return nil, &ParseError{Reason: noValidRowsMessage}
	}

	var records []model.StockPrice
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 行级格式错误只丢弃该行，不影响整批
			continue
		}

		if isCloseOnly {
			if rec, ok := parseCloseOnlyRow(row, dateIdx, closeOnlyIdx); ok {
				records = append(records, rec)
			}
			continue
		}
		if rec, ok := parseOHLCRow(row, ohlcIdx); ok {
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, &ParseError{Reason: noValidRowsMessage}
	}
	return records, nil
}

// parseCloseOnlyRow 处理 schema (a) 的单行：收盘价不可解析则整行丢弃。
func parseCloseOnlyRow(row []string, dateIdx, closeIdx int) (model.StockPrice, bool) {
	if dateIdx >= len(row) || closeIdx >= len(row) {
		return model.StockPrice{}, false
	}
	date := strings.TrimSpace(row[dateIdx])
	if date == "" {
		return model.StockPrice{}, false
	}
	closePrice, err := strconv.ParseFloat(strings.TrimSpace(row[closeIdx]), 64)
	if err != nil {
		return model.StockPrice{}, false
	}
	// 缺少 open/high/low 数据，统一取收盘价近似
	return model.StockPrice{
		Date:  date,
		Open:  closePrice,
		High:  closePrice,
		Low:   closePrice,
		Close: closePrice,
	}, true
}

// parseOHLCRow 处理 schema (b) 的单行：不可解析的数字退化为 0。
func parseOHLCRow(row []string, idx [5]int) (model.StockPrice, bool) {
	for _, i := range idx {
		if i >= len(row) {
			return model.StockPrice{}, false
		}
	}
	date := strings.TrimSpace(row[idx[0]])
	if date == "" {
		return model.StockPrice{}, false
	}
	return model.StockPrice{
		Date:  date,
		Open:  floatOrZero(row[idx[1]]),
		High:  floatOrZero(row[idx[2]]),
		Low:   floatOrZero(row[idx[3]]),
		Close: floatOrZero(row[idx[4]]),
	}, true
}

func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
