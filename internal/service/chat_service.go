package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"finsight-go/internal/model"
	"finsight-go/internal/repository"
	"finsight-go/internal/retrieval"
	"finsight-go/pkg/kafka"
	"finsight-go/pkg/llm"
	"finsight-go/pkg/log"
)

// 生成参数与来源标签按协作方契约取固定值。
const (
	chatTemperature = 0.7
	chatMaxTokens   = 1500

	queryTypeStock      = "stock"
	sourceStockDatabase = "Stock Price Database"
)

// 检索无结果时注入的兜底上下文，指示模型给出通识性回答。
const fallbackContext = "No specific data found for this query. Please provide a general response based on financial analysis principles."

// 模型返回空补全时的兜底回答。
const emptyAnswerFallback = "I apologize, but I could not generate a response."

// 三种固定的 system prompt 人设，按关键词优先级选择。
const (
	analystPrompt = `You are a financial analyst AI assistant specializing in Bajaj Finserv. Use the provided context to answer questions about the company's performance, strategy, and financial data. Be precise, professional, and cite specific information from the context when available.`

	investorPrompt = `You are the CFO of Bajaj Allianz General Insurance Company (BAGIC). Draft professional investor commentary based on the provided context. Focus on:
- Financial performance and key metrics
- Business strategy and growth drivers
- Risk management and regulatory compliance
- Strategic partnerships and initiatives
- Future outlook and guidance
Be professional, confident, and provide actionable insights for investors.`

	tabularPrompt = `You are a financial analyst creating structured data tables. When asked about specific topics with dates, create a clear table format with columns like Date, Topic, Key Points, etc. Use the provided context to extract relevant information and present it in an organized, easy-to-read table format.`
)

// 模型错误分类后的固定话术。
const (
	errMsgMissingKey = "DeepSeek API key is not configured. Please set up your API key in the configuration file."
	errMsgNetwork    = "Network error. Please check your internet connection and try again."
	errMsgRateLimit  = "Rate limit exceeded. Please wait a moment and try again."
)

// ChatService 定义了问答流程的接口。
type ChatService interface {
	// Answer 执行一次完整的问答：分类检索、上下文组装、模型调用、日志落库。
	// 返回回答文本与来源标签；模型调用失败时返回错误，由调用方分类展示。
	Answer(ctx context.Context, query string) (string, []string, error)
}

type chatService struct {
	stockRepo    repository.StockRepository
	queryLogRepo repository.QueryLogRepository
	llmClient    llm.Client
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(stockRepo repository.StockRepository, queryLogRepo repository.QueryLogRepository, llmClient llm.Client) ChatService {
	return &chatService{
		stockRepo:    stockRepo,
		queryLogRepo: queryLogRepo,
		llmClient:    llmClient,
	}
}

// Answer 协调完整的问答流程。任何阶段的首个失败都终止本次请求，不做重试。
func (s *chatService) Answer(ctx context.Context, query string) (string, []string, error) {
	// 1. 由问题文本推导检索描述
	spec := retrieval.Classify(query)

	// 2. 读取股价数据。读失败降级为空结果：在此边界记录错误，
	//    使"无数据"与"读失败"在日志中可区分，但对后续流程等价。
	rows, err := s.stockRepo.Query(ctx, spec)
	if err != nil {
		log.Errorf("股价检索失败，降级为空上下文: rule=%s, err=%v", spec.Rule, err)
		rows = nil
	}

	// 3. 组装上下文与来源标签
	contextText := buildContextText(rows)
	var sources []string
	if len(rows) > 0 {
		sources = []string{sourceStockDatabase}
	}
	if contextText == "" {
		contextText = fallbackContext
	}

	// 4. 调用模型
	systemMsg := selectSystemPrompt(query) + "\n\nContext: " + contextText
	messages := []llm.Message{
		{Role: "system", Content: systemMsg},
		{Role: "user", Content: query},
	}
	temperature := float64(chatTemperature)
	maxTokens := chatMaxTokens
	answer, err := s.llmClient.ChatCompletion(ctx, messages, &llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", nil, err
	}
	if answer == "" {
		answer = emptyAnswerFallback
	}

	// 5. 问答日志与分析事件都按尽力而为处理，失败不影响回答
	s.logQuery(ctx, query, answer, spec, sources)

	return answer, sources, nil
}

// buildContextText 将检索结果按过滤顺序逐行展开为文本块。
func buildContextText(rows []model.StockPrice) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Stock Price Data:\n")
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Date: " + row.Date)
		b.WriteString(", Open: " + fmtPrice(row.Open))
		b.WriteString(", High: " + fmtPrice(row.High))
		b.WriteString(", Low: " + fmtPrice(row.Low))
		b.WriteString(", Close: " + fmtPrice(row.Close))
	}
	return b.String()
}

func fmtPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// selectSystemPrompt 按关键词优先级选择人设：先检查投资者评论类关键词，
// 再检查表格输出类关键词，两者都未命中时使用通用分析师人设。
// 首个命中的分支生效，同时含 "cfo" 与 "table" 的问题取投资者人设。
func selectSystemPrompt(query string) string {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "cfo") || strings.Contains(lower, "commentary") || strings.Contains(lower, "investor call"):
		return investorPrompt
	case strings.Contains(lower, "table") || strings.Contains(lower, "dates") || strings.Contains(lower, "allianz"):
		return tabularPrompt
	default:
		return analystPrompt
	}
}

// logQuery 落库问答日志并发出分析事件，两者失败都只记录不上抛。
func (s *chatService) logQuery(ctx context.Context, query, answer string, spec retrieval.FilterSpec, sources []string) {
	var sourcesJSON *string
	if len(sources) > 0 {
		if b, err := json.Marshal(sources); err == nil {
			v := string(b)
			sourcesJSON = &v
		}
	}

	entry := &model.UserQuery{
		Query:     query,
		Answer:    answer,
		QueryType: queryTypeStock,
		Sources:   sourcesJSON,
	}
	if err := s.queryLogRepo.Insert(ctx, entry); err != nil {
		log.Errorf("保存问答日志失败: %v", err)
	}

	if err := kafka.ProduceQueryEvent(ctx, kafka.QueryAnsweredEvent{
		Query:      query,
		QueryType:  queryTypeStock,
		Rule:       spec.Rule,
		Sources:    sources,
		AnsweredAt: time.Now(),
	}); err != nil {
		log.Warnf("发送问答事件失败: %v", err)
	}
}

// ClassifyModelError 按错误文本的子串将模型错误映射为固定的用户话术。
func ClassifyModelError(err error) string {
	if err == nil {
		return ""
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "api key"):
		return errMsgMissingKey
	case strings.Contains(lower, "network"):
		return errMsgNetwork
	case strings.Contains(lower, "rate limit"):
		return errMsgRateLimit
	default:
		return "Error: " + err.Error()
	}
}
