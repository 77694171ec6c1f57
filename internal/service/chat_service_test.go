package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finsight-go/internal/model"
	"finsight-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueryLogRepo struct {
	entries   []*model.UserQuery
	insertErr error
}

func (f *fakeQueryLogRepo) Insert(ctx context.Context, entry *model.UserQuery) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeQueryLogRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.entries)), nil
}

type fakeLLMClient struct {
	answer   string
	err      error
	messages []llm.Message
	gen      *llm.GenerationParams
}

func (f *fakeLLMClient) ChatCompletion(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.messages = messages
	f.gen = gen
	return f.answer, f.err
}

func (f *fakeLLMClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not used")
}

func sampleRows() []model.StockPrice {
	return []model.StockPrice{
		{Date: "2024-01-02", Open: 1500, High: 1540, Low: 1490, Close: 1520.5},
		{Date: "2024-01-03", Open: 1520, High: 1560, Low: 1510, Close: 1536},
	}
}

func TestAnswerBuildsContextFromRows(t *testing.T) {
	stockRepo := &fakeStockRepo{queryRows: sampleRows()}
	logRepo := &fakeQueryLogRepo{}
	llmClient := &fakeLLMClient{answer: "The close was 1520.5."}
	svc := NewChatService(stockRepo, logRepo, llmClient)

	answer, sources, err := svc.Answer(context.Background(), "What happened in Jan-24?")
	require.NoError(t, err)
	assert.Equal(t, "The close was 1520.5.", answer)
	assert.Equal(t, []string{sourceStockDatabase}, sources)

	// system 消息中带有按过滤顺序展开的行数据
	require.Len(t, llmClient.messages, 2)
	sys := llmClient.messages[0]
	assert.Equal(t, "system", sys.Role)
	assert.Contains(t, sys.Content, "Stock Price Data:")
	assert.Contains(t, sys.Content, "Date: 2024-01-02, Open: 1500, High: 1540, Low: 1490, Close: 1520.5")
	assert.Less(t,
		strings.Index(sys.Content, "2024-01-02"),
		strings.Index(sys.Content, "2024-01-03"))

	user := llmClient.messages[1]
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, "What happened in Jan-24?", user.Content)

	// 生成参数为固定常量
	require.NotNil(t, llmClient.gen)
	assert.Equal(t, 0.7, *llmClient.gen.Temperature)
	assert.Equal(t, 1500, *llmClient.gen.MaxTokens)
}

// 读失败降级为空结果：回答照常生成，上下文使用兜底句子。
func TestAnswerSwallowsReadError(t *testing.T) {
	stockRepo := &fakeStockRepo{queryErr: errors.New("backend unavailable")}
	logRepo := &fakeQueryLogRepo{}
	llmClient := &fakeLLMClient{answer: "General answer."}
	svc := NewChatService(stockRepo, logRepo, llmClient)

	answer, sources, err := svc.Answer(context.Background(), "recent prices")
	require.NoError(t, err)
	assert.Equal(t, "General answer.", answer)
	assert.Nil(t, sources)
	assert.Contains(t, llmClient.messages[0].Content, fallbackContext)
}

func TestAnswerUsesFallbackContextWhenNoRows(t *testing.T) {
	stockRepo := &fakeStockRepo{}
	logRepo := &fakeQueryLogRepo{}
	llmClient := &fakeLLMClient{answer: "ok"}
	svc := NewChatService(stockRepo, logRepo, llmClient)

	_, sources, err := svc.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, sources)
	assert.Contains(t, llmClient.messages[0].Content, fallbackContext)
	assert.NotContains(t, llmClient.messages[0].Content, "Stock Price Data:")
}

func TestAnswerReturnsModelError(t *testing.T) {
	stockRepo := &fakeStockRepo{queryRows: sampleRows()}
	logRepo := &fakeQueryLogRepo{}
	llmClient := &fakeLLMClient{err: errors.New("rate limit exceeded")}
	svc := NewChatService(stockRepo, logRepo, llmClient)

	_, _, err := svc.Answer(context.Background(), "recent prices")
	require.Error(t, err)
	// 模型失败时不落问答日志
	assert.Empty(t, logRepo.entries)
}

func TestAnswerLogsQueryOnSuccess(t *testing.T) {
	stockRepo := &fakeStockRepo{queryRows: sampleRows()}
	logRepo := &fakeQueryLogRepo{}
	llmClient := &fakeLLMClient{answer: "fine"}
	svc := NewChatService(stockRepo, logRepo, llmClient)

	_, _, err := svc.Answer(context.Background(), "recent prices")
	require.NoError(t, err)

	require.Len(t, logRepo.entries, 1)
	entry := logRepo.entries[0]
	assert.Equal(t, "recent prices", entry.Query)
	assert.Equal(t, "fine", entry.Answer)
	assert.Equal(t, queryTypeStock, entry.QueryType)
	require.NotNil(t, entry.Sources)
	assert.JSONEq(t, `["Stock Price Database"]`, *entry.Sources)
}

// 日志写入失败按尽力而为吞掉，不影响回答。
func TestAnswerSwallowsLogWriteError(t *testing.T) {
	stockRepo := &fakeStockRepo{queryRows: sampleRows()}
	logRepo := &fakeQueryLogRepo{insertErr: errors.New("insert failed")}
	llmClient := &fakeLLMClient{answer: "still fine"}
	svc := NewChatService(stockRepo, logRepo, llmClient)

	answer, _, err := svc.Answer(context.Background(), "recent prices")
	require.NoError(t, err)
	assert.Equal(t, "still fine", answer)
}

func TestAnswerEmptyCompletionFallback(t *testing.T) {
	stockRepo := &fakeStockRepo{}
	logRepo := &fakeQueryLogRepo{}
	llmClient := &fakeLLMClient{answer: ""}
	svc := NewChatService(stockRepo, logRepo, llmClient)

	answer, _, err := svc.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, emptyAnswerFallback, answer)
}

func TestSelectSystemPrompt(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "cfo", query: "Draft CFO commentary", want: investorPrompt},
		{name: "investor call", query: "summary of the investor call", want: investorPrompt},
		{name: "table", query: "show me a table of prices", want: tabularPrompt},
		{name: "allianz", query: "what about bajaj allianz", want: tabularPrompt},
		{name: "default", query: "how is the stock doing", want: analystPrompt},
		// cfo 分支先于 table 分支检查，同时命中时取投资者人设
		{name: "cfo 优先于 table", query: "cfo table with dates", want: investorPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectSystemPrompt(tt.query))
		})
	}
}

func TestClassifyModelError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "缺少密钥", err: errors.New("llm API key is not configured"), want: errMsgMissingKey},
		{name: "网络错误", err: errors.New("network error calling chat api: dial tcp: refused"), want: errMsgNetwork},
		{name: "限流", err: errors.New("chat api rate limit exceeded: too many requests"), want: errMsgRateLimit},
		{name: "其他错误", err: errors.New("something odd"), want: "Error: something odd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyModelError(tt.err))
		})
	}
}

func TestBuildContextTextEmpty(t *testing.T) {
	assert.Equal(t, "", buildContextText(nil))
}
