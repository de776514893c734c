package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
)

type QuarterSummary struct {
	Quarter                    string  `json:"quarter"`
	TeamSize                   int     `json:"teamSize"`
	AverageUtilization         float64 `json:"averageUtilization"`
	AverageEffectiveAllocation float64 `json:"averageEffectiveAllocation"`
	AverageAvailable           float64 `json:"averageAvailable"`
	OverAllocated              int     `json:"overAllocated"`
	FullyOccupied              int     `json:"fullyOccupied"`
	Available                  int     `json:"available"`
}

// TeamSummary 按季度汇总团队利用率，平均值直接基于每个人的季度数值
func TeamSummary(rows []UtilizationRow) []QuarterSummary {
	byQuarter := make(map[string]*QuarterSummary)
	order := make([]string, 0)

	for _, row := range rows {
		s, exists := byQuarter[row.Quarter]
		if !exists {
			s = &QuarterSummary{Quarter: row.Quarter}
			byQuarter[row.Quarter] = s
			order = append(order, row.Quarter)
		}

		s.TeamSize++
		s.AverageUtilization += row.TotalAllocation
		s.AverageEffectiveAllocation += row.EffectiveAllocation
		s.AverageAvailable += row.Available

		switch row.Status {
		case StatusOverAllocated:
			s.OverAllocated++
		case StatusFullyOccupied:
			s.FullyOccupied++
		default:
			s.Available++
		}
	}

	summaries := make([]QuarterSummary, 0, len(order))
	for _, quarter := range fiscal.ChronologicalOrder(order) {
		s := byQuarter[quarter]
		n := float64(s.TeamSize)
		s.AverageUtilization = round2(s.AverageUtilization / n)
		s.AverageEffectiveAllocation = round2(s.AverageEffectiveAllocation / n)
		s.AverageAvailable = round2(s.AverageAvailable / n)
		summaries = append(summaries, *s)
	}

	return summaries
}

type TrendPoint struct {
	Quarter    string  `json:"quarter"`
	Value      string  `json:"value"`
	Allocation float64 `json:"allocation"` // 季度内平均每月的百分比
}

// Trend 直接按 (季度, 维度取值) 对排期记录分组，分母固定为 3 个月
// 这里衡量的是团队整体负载，和 Utilization 中按有排期月份取平均的个人口径不同
func Trend(ledger *Ledger, dim Dimension) ([]TrendPoint, error) {
	if !ledger.Has(dim) {
		return nil, fmt.Errorf("%w: %s", ErrDimensionUnavailable, dim)
	}

	type key struct {
		quarter string
		value   string
	}

	sums := make(map[key]float64)
	quarterSet := make(map[string]bool)
	for _, a := range ledger.assignments() {
		if a == nil {
			continue
		}

		var value string
		switch dim {
		case DimensionProgram:
			value = a.Program
		case DimensionFeature:
			value = a.Feature
		case DimensionPriority:
			value = string(a.Priority)
		default:
			return nil, fmt.Errorf("%w: %s", ErrDimensionUnavailable, dim)
		}

		quarter := fiscal.QuarterOf(a.Month)
		sums[key{quarter: quarter, value: strings.TrimSpace(value)}] += a.Allocation
		quarterSet[quarter] = true
	}

	quarters := make([]string, 0, len(quarterSet))
	for q := range quarterSet {
		quarters = append(quarters, q)
	}
	sort.Strings(quarters)
	quarters = fiscal.ChronologicalOrder(quarters)
	rank := make(map[string]int, len(quarters))
	for i, q := range quarters {
		rank[q] = i
	}

	points := make([]TrendPoint, 0, len(sums))
	for k, sum := range sums {
		points = append(points, TrendPoint{
			Quarter:    k.quarter,
			Value:      k.value,
			Allocation: round2(sum / MonthsPerQuarter),
		})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Quarter != points[j].Quarter {
			return rank[points[i].Quarter] < rank[points[j].Quarter]
		}
		return points[i].Value < points[j].Value
	})

	return points, nil
}

type Metric string

const (
	MetricAvailable Metric = "available"
	MetricAllocated Metric = "allocated"
)

type ChartKind string

const (
	ChartGroupedBar ChartKind = "grouped-bar"
	ChartHeatmap    ChartKind = "heatmap"
)

// MatrixReport 是工程师 × 季度的透视表，Values[i][j] 对应 Engineers[i] 在 Quarters[j] 的数值
type MatrixReport struct {
	Metric    Metric      `json:"metric"`
	ChartKind ChartKind   `json:"chartKind"`
	Quarters  []string    `json:"quarters"`
	Engineers []string    `json:"engineers"`
	Values    [][]float64 `json:"values"`
}

// Matrix 生成可用/已分配百分比的透视表，人数超过 heatmapThreshold 时建议使用热力图
func Matrix(rows []UtilizationRow, metric Metric, heatmapThreshold int) MatrixReport {
	report := MatrixReport{
		Metric:    metric,
		ChartKind: ChartGroupedBar,
		Quarters:  []string{},
		Engineers: []string{},
		Values:    [][]float64{},
	}

	engineerIndex := make(map[string]int)
	quarterSet := make(map[string]bool)
	for _, row := range rows {
		if _, exists := engineerIndex[row.Engineer]; !exists {
			engineerIndex[row.Engineer] = len(report.Engineers)
			report.Engineers = append(report.Engineers, row.Engineer)
		}
		if !quarterSet[row.Quarter] {
			quarterSet[row.Quarter] = true
			report.Quarters = append(report.Quarters, row.Quarter)
		}
	}
	report.Quarters = fiscal.ChronologicalOrder(report.Quarters)

	quarterIndex := make(map[string]int, len(report.Quarters))
	for i, q := range report.Quarters {
		quarterIndex[q] = i
	}

	for range report.Engineers {
		report.Values = append(report.Values, make([]float64, len(report.Quarters)))
	}
	for _, row := range rows {
		value := row.Available
		if metric == MetricAllocated {
			value = row.TotalAllocation
		}
		report.Values[engineerIndex[row.Engineer]][quarterIndex[row.Quarter]] = value
	}

	if len(report.Engineers) > heatmapThreshold {
		report.ChartKind = ChartHeatmap
	}

	return report
}
