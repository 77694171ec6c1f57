// Package retrieval 将自由文本问题映射为对股价表的确定性检索描述。
package retrieval

import (
	"regexp"
	"strings"
)

// FilterSpec 描述一次检索：日期范围或排序加上限，与具体存储无关。
// 每次提问重新推导，不做持久化。
type FilterSpec struct {
	Rule      string // 命中的规则名，用于日志与事件
	StartDate string // ISO 日期下界（含），为空表示无范围过滤
	EndDate   string // ISO 日期上界（含）
	OrderBy   string // 排序列: date / high / low
	Desc      bool
	Limit     int // 0 表示不限制
}

// 固定的 12 项月份缩写表。正则中的候选项即为该表的键集合，
// 未知缩写不会命中日期规则，而是落入后续的关键词规则。
var monthTable = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04", "may": "05", "jun": "06",
	"jul": "07", "aug": "08", "sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

const monthAlt = `(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`

var (
	rangeRe = regexp.MustCompile(monthAlt + `-(\d{2})\s*(?:to|from)\s*` + monthAlt + `-(\d{2})`)
	monthRe = regexp.MustCompile(monthAlt + `-(\d{2})`)
)

// rule 是一条 (谓词, 构造器) 规则：match 返回 nil 表示未命中。
type rule struct {
	name  string
	match func(lowerQuery string) *FilterSpec
}

// rules 的顺序即优先级的权威定义：自上而下求值，首个命中的规则生效，
// 后续规则不再检查。
var rules = []rule{
	{
		// 形如 "jan-24 to mar-24" 的月份范围。不校验起止顺序，
		// 倒置的范围自然得到空结果而非报错。
		name: "range",
		match: func(q string) *FilterSpec {
			m := rangeRe.FindStringSubmatch(q)
			if m == nil {
				return nil
			}
			return &FilterSpec{
				StartDate: monthStart(m[1], m[2]),
				EndDate:   monthEnd(m[3], m[4]),
				OrderBy:   "date",
			}
		},
	},
	{
		// 单个 "jan-24" 出现在问题中的任意位置。
		name: "month",
		match: func(q string) *FilterSpec {
			m := monthRe.FindStringSubmatch(q)
			if m == nil {
				return nil
			}
			return &FilterSpec{
				StartDate: monthStart(m[1], m[2]),
				EndDate:   monthEnd(m[1], m[2]),
				OrderBy:   "date",
			}
		},
	},
	{
		name:  "highest",
		match: keyword(&FilterSpec{OrderBy: "high", Desc: true, Limit: 10}, "highest", "maximum"),
	},
	{
		name:  "lowest",
		match: keyword(&FilterSpec{OrderBy: "low", Limit: 10}, "lowest", "minimum"),
	},
	{
		// 只负责圈定样本，均值由模型侧计算。
		name:  "average",
		match: keyword(&FilterSpec{OrderBy: "date", Desc: true, Limit: 30}, "average", "avg"),
	},
	{
		name:  "recent",
		match: keyword(&FilterSpec{OrderBy: "date", Desc: true, Limit: 10}, "recent", "latest"),
	},
	{
		name:  "compare",
		match: keyword(&FilterSpec{OrderBy: "date", Desc: true, Limit: 60}, "compare", "performance"),
	},
	{
		name: "default",
		match: func(q string) *FilterSpec {
			return &FilterSpec{OrderBy: "date", Desc: true, Limit: 20}
		},
	},
}

// Classify 按固定优先级将问题文本解析为 FilterSpec。
func Classify(query string) FilterSpec {
	lower := strings.ToLower(query)
	for _, r := range rules {
		if spec := r.match(lower); spec != nil {
			spec.Rule = r.name
			return *spec
		}
	}
	// default 规则恒命中，不会走到这里
	return FilterSpec{Rule: "default", OrderBy: "date", Desc: true, Limit: 20}
}

// keyword 构造一条按子串命中的规则，命中时返回固定 spec 的副本。
func keyword(spec *FilterSpec, words ...string) func(string) *FilterSpec {
	return func(q string) *FilterSpec {
		for _, w := range words {
			if strings.Contains(q, w) {
				s := *spec
				return &s
			}
		}
		return nil
	}
}

// monthStart 将 "jan","24" 解析为 "2024-01-01"。两位年份固定展开到 2000 年代。
func monthStart(mon, yy string) string {
	return "20" + yy + "-" + monthTable[mon] + "-01"
}

// monthEnd 将 "mar","24" 解析为 "2024-03-31"。
// 月末统一取 31 号，依赖日期字符串的字典序比较取整月。
func monthEnd(mon, yy string) string {
	return "20" + yy + "-" + monthTable[mon] + "-31"
}
