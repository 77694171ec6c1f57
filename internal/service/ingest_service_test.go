package service

import (
	"context"
	"errors"
	"os"
	"testing"

	"finsight-go/internal/config"
	"finsight-go/internal/model"
	"finsight-go/internal/retrieval"
	"finsight-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

func TestParseStockCSVCloseOnlySchema(t *testing.T) {
	csvText := "Date,Close Price\n2024-01-02,1520.5\n2024-01-03,1536.25\n"

	records, err := ParseStockCSV(csvText)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// 只有收盘价的 schema 下，四个价格字段全部取收盘价
	for _, rec := range records {
		assert.Equal(t, rec.Close, rec.Open)
		assert.Equal(t, rec.Close, rec.High)
		assert.Equal(t, rec.Close, rec.Low)
	}
	assert.Equal(t, "2024-01-02", records[0].Date)
	assert.Equal(t, 1520.5, records[0].Close)
}

func TestParseStockCSVOHLCSchema(t *testing.T) {
	csvText := "date,open,high,low,close\n2024-01-02,1500,1540,1490,1520.5\n"

	records, err := ParseStockCSV(csvText)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, model.StockPrice{
		Date: "2024-01-02", Open: 1500, High: 1540, Low: 1490, Close: 1520.5,
	}, records[0])
}

// schema (a) 下收盘价不可解析的行被整行丢弃，不产生部分记录。
func TestParseStockCSVSkipsBadCloseRow(t *testing.T) {
	csvText := "Date,Close Price\n2024-01-02,not-a-number\n2024-01-03,1536.25\n"

	records, err := ParseStockCSV(csvText)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2024-01-03", records[0].Date)
}

// schema (b) 下不可解析的数字退化为 0，行本身保留。
func TestParseStockCSVOHLCBadNumberDefaultsToZero(t *testing.T) {
	csvText := "date,open,high,low,close\n2024-01-02,oops,1540,1490,1520.5\n"

	records, err := ParseStockCSV(csvText)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.0, records[0].Open)
	assert.Equal(t, 1520.5, records[0].Close)
}

func TestParseStockCSVSkipsEmptyDateRow(t *testing.T) {
	csvText := "Date,Close Price\n,1520.5\n2024-01-03,1536.25\n"

	records, err := ParseStockCSV(csvText)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

// 过滤后没有任何可用行时整体失败，错误信息必须列出两种表头。
func TestParseStockCSVNoValidRows(t *testing.T) {
	tests := []struct {
		name    string
		csvText string
	}{
		{name: "未知表头", csvText: "symbol,price\nBAJAJ,1520\n"},
		{name: "只有表头", csvText: "Date,Close Price\n"},
		{name: "全部行损坏", csvText: "Date,Close Price\n2024-01-02,abc\n2024-01-03,def\n"},
		{name: "空输入", csvText: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStockCSV(tt.csvText)
			require.Error(t, err)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Contains(t, parseErr.Error(), "Date, Close Price")
			assert.Contains(t, parseErr.Error(), "date, open, high, low, close")
		})
	}
}

// 单行损坏只丢弃该行，剩余行照常入库。
func TestParseStockCSVMalformedRowDoesNotAbortBatch(t *testing.T) {
	csvText := "date,open,high,low,close\n2024-01-02,1500,1540,1490,1520\nshort-row\n2024-01-03,1510,1550,1500,1530\n"

	records, err := ParseStockCSV(csvText)
	require.NoError(t, err)
	// 缺列的 short-row 被丢弃，前后两行照常保留
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01-02", records[0].Date)
	assert.Equal(t, "2024-01-03", records[1].Date)
}

type fakeStockRepo struct {
	upserted  []model.StockPrice
	upsertErr error
	queryRows []model.StockPrice
	queryErr  error
}

func (f *fakeStockRepo) UpsertAll(ctx context.Context, records []model.StockPrice) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeStockRepo) Query(ctx context.Context, spec retrieval.FilterSpec) ([]model.StockPrice, error) {
	return f.queryRows, f.queryErr
}

func (f *fakeStockRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.upserted)), nil
}

func (f *fakeStockRepo) LatestCreatedAt(ctx context.Context) (string, error) {
	return "", nil
}

func TestIngestCSVUpsertsParsedRecords(t *testing.T) {
	repo := &fakeStockRepo{}
	svc := NewIngestService(repo, config.MinIOConfig{BucketName: "archive"})

	count, err := svc.IngestCSV(context.Background(), "prices.csv", "Date,Close Price\n2024-01-02,1520.5\n")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "2024-01-02", repo.upserted[0].Date)
}

// 入库失败中止上传并透出底层错误。
func TestIngestCSVSurfacesWriteError(t *testing.T) {
	repo := &fakeStockRepo{upsertErr: errors.New("connection refused")}
	svc := NewIngestService(repo, config.MinIOConfig{})

	_, err := svc.IngestCSV(context.Background(), "prices.csv", "Date,Close Price\n2024-01-02,1520.5\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	var parseErr *ParseError
	assert.False(t, errors.As(err, &parseErr))
}

func TestIngestCSVParseErrorSkipsUpsert(t *testing.T) {
	repo := &fakeStockRepo{}
	svc := NewIngestService(repo, config.MinIOConfig{})

	_, err := svc.IngestCSV(context.Background(), "bad.csv", "foo,bar\n1,2\n")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Empty(t, repo.upserted)
}
