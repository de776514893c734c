package tabular

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
)

// 表格的列名，和导出的电子表格保持一致
const (
	ColEngineerName  = "Engineer Name"
	ColTeam          = "Team"
	ColRole          = "Role"
	ColWeeklyHours   = "Weekly Hours"
	ColAnnualPTODays = "Annual PTO Days"
	ColProgram       = "Program"
	ColFeature       = "Feature"
	ColPriority      = "Priority"
	ColMonth         = "Month"
	ColAllocation    = "Allocation %"
	ColNotes         = "Notes"

	ptoColumnPrefix = "PTO_"
)

// ErrMissingColumn 表示表格结构本身有问题（缺少必需列），和"没有数据"区分开
var ErrMissingColumn = errors.New("缺少必需的列")

// Table 是一张带表头的二维表，所有单元格都是字符串
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// index 记录每个列名第一次出现的位置
type index map[string]int

func newIndex(header []string) index {
	idx := make(index, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, exists := idx[h]; !exists {
			idx[h] = i
		}
	}
	return idx
}

func (idx index) has(col string) bool {
	_, ok := idx[col]
	return ok
}

func (idx index) require(cols ...string) error {
	for _, col := range cols {
		if !idx.has(col) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return nil
}

// get 返回某行某列的值，列不存在或该行长度不足时返回空字符串
func (idx index) get(row []string, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseNumber(value string) (decimal.Decimal, bool) {
	value = strings.TrimSpace(value)
	value = strings.TrimSpace(strings.TrimSuffix(value, "%"))
	if value == "" || strings.EqualFold(value, "nan") {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseAllocation 解析百分比，允许带 % 后缀；空值或非数字返回 false，由调用方决定默认值
func ParseAllocation(value string) (float64, bool) {
	d, ok := parseNumber(value)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// ParseAssignmentAllocation 解析单条排期记录的百分比，限制在 0~100 之间
func ParseAssignmentAllocation(value string) (float64, bool) {
	d, ok := parseNumber(value)
	if !ok {
		return 0, false
	}

	switch {
	case d.IsNegative():
		d = decimal.Zero
	case d.GreaterThan(decimal.NewFromInt(100)):
		d = decimal.NewFromInt(100)
	}

	return d.InexactFloat64(), true
}

// ParsePTO 解析休假天数，限制在 0~22 天并按半天取整
func ParsePTO(value string) (float64, bool) {
	d, ok := parseNumber(value)
	if !ok {
		return 0, false
	}

	two := decimal.NewFromInt(2)
	d = d.Mul(two).Round(0).Div(two)

	switch {
	case d.IsNegative():
		d = decimal.Zero
	case d.GreaterThan(decimal.NewFromInt(22)):
		d = decimal.NewFromInt(22)
	}

	return d.InexactFloat64(), true
}

// PTOColumn 返回某个月份对应的休假列名，例如 2025-08 -> PTO_2025_08
func PTOColumn(month string) string {
	return ptoColumnPrefix + strings.ReplaceAll(month, "-", "_")
}

// MonthFromPTOColumn 是 PTOColumn 的逆操作
func MonthFromPTOColumn(col string) (string, bool) {
	col = strings.TrimSpace(col)
	if !strings.HasPrefix(col, ptoColumnPrefix) {
		return "", false
	}

	month := strings.ReplaceAll(strings.TrimPrefix(col, ptoColumnPrefix), "_", "-")
	t, err := fiscal.ParseMonth(month)
	if err != nil {
		return "", false
	}
	return t.Format(fiscal.MonthLayout), true
}

func formatNumber(v float64) string {
	return decimal.NewFromFloat(v).String()
}
