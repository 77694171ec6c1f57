package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDateRules(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  FilterSpec
	}{
		{
			name:  "月份范围",
			query: "Compare Bajaj Finserv performance from Jan-24 to Mar-24",
			want:  FilterSpec{Rule: "range", StartDate: "2024-01-01", EndDate: "2024-03-31", OrderBy: "date"},
		},
		{
			name:  "范围使用 to 连接",
			query: "jan-24 to mar-24",
			want:  FilterSpec{Rule: "range", StartDate: "2024-01-01", EndDate: "2024-03-31", OrderBy: "date"},
		},
		{
			name:  "单个月份",
			query: "What happened in Jan-24?",
			want:  FilterSpec{Rule: "month", StartDate: "2024-01-01", EndDate: "2024-01-31", OrderBy: "date"},
		},
		{
			name:  "大小写不敏感",
			query: "show me DEC-23",
			want:  FilterSpec{Rule: "month", StartDate: "2023-12-01", EndDate: "2023-12-31", OrderBy: "date"},
		},
		{
			// 不校验起止顺序，倒置范围原样下发，由查询自然得到空结果
			name:  "倒置范围",
			query: "mar-24 to jan-24",
			want:  FilterSpec{Rule: "range", StartDate: "2024-03-01", EndDate: "2024-01-31", OrderBy: "date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestClassifyKeywordRules(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  FilterSpec
	}{
		{
			name:  "highest",
			query: "What was the highest stock price?",
			want:  FilterSpec{Rule: "highest", OrderBy: "high", Desc: true, Limit: 10},
		},
		{
			name:  "maximum",
			query: "maximum close please",
			want:  FilterSpec{Rule: "highest", OrderBy: "high", Desc: true, Limit: 10},
		},
		{
			name:  "lowest",
			query: "show the lowest price",
			want:  FilterSpec{Rule: "lowest", OrderBy: "low", Desc: false, Limit: 10},
		},
		{
			name:  "average",
			query: "what is the average price",
			want:  FilterSpec{Rule: "average", OrderBy: "date", Desc: true, Limit: 30},
		},
		{
			name:  "recent",
			query: "show recent prices",
			want:  FilterSpec{Rule: "recent", OrderBy: "date", Desc: true, Limit: 10},
		},
		{
			name:  "compare",
			query: "compare the stock",
			want:  FilterSpec{Rule: "compare", OrderBy: "date", Desc: true, Limit: 60},
		},
		{
			name:  "performance",
			query: "how is the performance",
			want:  FilterSpec{Rule: "compare", OrderBy: "date", Desc: true, Limit: 60},
		},
		{
			name:  "默认规则",
			query: "tell me about the company",
			want:  FilterSpec{Rule: "default", OrderBy: "date", Desc: true, Limit: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

// 日期规则排在关键词规则之前：带月份的 highest 问题按月份解析。
func TestClassifyPrecedence(t *testing.T) {
	spec := Classify("What was the highest price in Jan-24?")
	assert.Equal(t, "month", spec.Rule)
	assert.Equal(t, "2024-01-01", spec.StartDate)
	assert.Equal(t, "2024-01-31", spec.EndDate)
	assert.Equal(t, "date", spec.OrderBy)
	assert.False(t, spec.Desc)
	assert.Zero(t, spec.Limit)

	// highest 在 lowest 之前检查，同时命中时取前者
	spec = Classify("highest and lowest prices")
	assert.Equal(t, "highest", spec.Rule)
}

// 未知的三字母缩写不在固定月份表中，落入关键词规则。
func TestClassifyUnknownMonthAbbreviation(t *testing.T) {
	spec := Classify("what about xyz-24, show highest")
	assert.Equal(t, "highest", spec.Rule)

	spec = Classify("what about xyz-24")
	assert.Equal(t, "default", spec.Rule)
}

func TestClassifyYearExpansion(t *testing.T) {
	// 两位年份固定展开到 2000 年代，没有世纪回退逻辑
	spec := Classify("feb-99")
	assert.Equal(t, "2099-02-01", spec.StartDate)
	assert.Equal(t, "2099-02-31", spec.EndDate)
}
