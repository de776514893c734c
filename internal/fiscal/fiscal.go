package fiscal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Unknown 是无法解析的月份所对应的季度标签
const Unknown = "Unknown"

// MonthLayout 是月份字符串的格式，例如 2025-08
const MonthLayout = "2006-01"

// 财年从八月开始，八月所在的财年编号为公历年份 + 1（2025-08 属于 FY2026）
const yearStart = time.August

// Quarter 表示一个财季，零值表示未知季度
type Quarter struct {
	Year   int // 财年，例如 2026
	Number int // 1~4
}

func (q Quarter) Valid() bool {
	return q.Year > 0 && q.Number >= 1 && q.Number <= 4
}

func (q Quarter) String() string {
	if !q.Valid() {
		return Unknown
	}
	return fmt.Sprintf("Q%d FY%d", q.Number, q.Year)
}

// Before 按 (财年, 季度) 比较先后
func (q Quarter) Before(o Quarter) bool {
	if q.Year != o.Year {
		return q.Year < o.Year
	}
	return q.Number < o.Number
}

func (q Quarter) Next() Quarter {
	if q.Number == 4 {
		return Quarter{Year: q.Year + 1, Number: 1}
	}
	return Quarter{Year: q.Year, Number: q.Number + 1}
}

// Months 返回组成该季度的三个月份，按时间顺序排列
func (q Quarter) Months() []string {
	if !q.Valid() {
		return nil
	}

	first := q.FirstMonth()
	months := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		months = append(months, first.AddDate(0, i, 0).Format(MonthLayout))
	}
	return months
}

// FirstMonth 返回季度第一个月的第一天（UTC）
func (q Quarter) FirstMonth() time.Time {
	offset := (q.Number - 1) * 3
	month := time.Month((int(yearStart)-1+offset)%12 + 1)
	year := q.Year
	if month >= yearStart {
		year--
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// Of 计算某个时间所在的财季
func Of(t time.Time) Quarter {
	m := int(t.Month())
	offset := (m - int(yearStart) + 12) % 12

	year := t.Year()
	if t.Month() >= yearStart {
		year++
	}

	return Quarter{Year: year, Number: offset/3 + 1}
}

// ParseMonth 解析 YYYY-MM 格式的月份
func ParseMonth(month string) (time.Time, error) {
	return time.Parse(MonthLayout, strings.TrimSpace(month))
}

// QuarterOf 返回月份对应的季度标签，格式错误时返回 Unknown 而不是报错
func QuarterOf(month string) string {
	t, err := ParseMonth(month)
	if err != nil {
		return Unknown
	}
	return Of(t).String()
}

// ParseQuarter 解析 "Q1 FY2026" 格式的季度标签
func ParseQuarter(label string) (Quarter, error) {
	var q Quarter
	if _, err := fmt.Sscanf(strings.TrimSpace(label), "Q%d FY%d", &q.Number, &q.Year); err != nil {
		return Quarter{}, fmt.Errorf("无法解析季度 %q: %w", label, err)
	}
	if !q.Valid() {
		return Quarter{}, fmt.Errorf("无效的季度 %q", label)
	}
	return q, nil
}

// MonthsOf 是 QuarterOf 的逆映射
func MonthsOf(label string) ([]string, error) {
	q, err := ParseQuarter(label)
	if err != nil {
		return nil, err
	}
	return q.Months(), nil
}

// ChronologicalOrder 按 (财年, 季度) 对季度标签排序，无法解析的标签（包括 Unknown）排在最后并保持原有顺序
func ChronologicalOrder(labels []string) []string {
	type entry struct {
		label   string
		quarter Quarter
		ok      bool
	}

	entries := make([]entry, 0, len(labels))
	for _, label := range labels {
		q, err := ParseQuarter(label)
		entries = append(entries, entry{label: label, quarter: q, ok: err == nil})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		switch {
		case entries[i].ok && entries[j].ok:
			return entries[i].quarter.Before(entries[j].quarter)
		case entries[i].ok:
			return true
		default:
			return false
		}
	})

	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.label)
	}
	return result
}

// Window 返回从 today 所在季度开始、覆盖 months 个月（向上取整到整季度）的连续季度
func Window(today time.Time, months int) []Quarter {
	if months <= 0 {
		return []Quarter{}
	}

	n := (months + 2) / 3
	quarters := make([]Quarter, 0, n)
	q := Of(today)
	for i := 0; i < n; i++ {
		quarters = append(quarters, q)
		q = q.Next()
	}
	return quarters
}
