package planner

import (
	"math"
	"sort"
	"strings"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
)

type Status string

const (
	StatusOverAllocated Status = "Over-allocated"
	StatusFullyOccupied Status = "Fully Occupied"
	StatusAvailable     Status = "Available"
)

func Classify(effectiveAllocation float64) Status {
	switch {
	case effectiveAllocation > OverAllocatedThreshold:
		return StatusOverAllocated
	case effectiveAllocation >= FullyOccupiedThreshold:
		return StatusFullyOccupied
	default:
		return StatusAvailable
	}
}

type FeatureAllocation struct {
	Feature    string  `json:"feature"`
	Allocation float64 `json:"allocation"`
}

// UtilizationRow 是某名工程师在某个季度的利用率，每次都重新计算，不做持久化
type UtilizationRow struct {
	Engineer            string              `json:"engineer"`
	Team                string              `json:"team"`
	Quarter             string              `json:"quarter"`
	TotalAllocation     float64             `json:"totalAllocation"`
	EffectiveAllocation float64             `json:"effectiveAllocation"`
	Available           float64             `json:"available"`
	PTOImpact           float64             `json:"ptoImpact"`
	PTODays             float64             `json:"ptoDays"`
	WorkingDays         float64             `json:"workingDays"`
	MonthsWithData      int                 `json:"monthsWithData"`
	Features            []FeatureAllocation `json:"features"`
	Status              Status              `json:"status"`
}

// PTODaysFor 返回工程师某个月的休假天数，没有记录时按年度总数平摊到每个月
func PTODaysFor(e *domain.Engineer, month string) float64 {
	if days, ok := e.PTO[month]; ok {
		return days
	}
	return e.AnnualPTODays() / 12
}

// WorkingRatio 为扣除休假后实际在岗的工作日占标准工作日的比例
func WorkingRatio(ptoDays float64) float64 {
	return workingDays(ptoDays) / StandardWorkingDays
}

func workingDays(ptoDays float64) float64 {
	return math.Max(0, StandardWorkingDays-ptoDays)
}

// Utilization 计算花名册中每名工程师在窗口内每个季度的利用率
// 输出顺序为花名册顺序 × 季度顺序，同一快照多次计算的结果完全一致
func (p *Planner) Utilization() []UtilizationRow {
	rows := make([]UtilizationRow, 0, len(p.roster)*len(p.quarters))

	for _, e := range p.roster {
		for _, q := range p.quarters {
			rows = append(rows, p.quarterRow(e, q))
		}
	}

	return rows
}

func (p *Planner) quarterRow(e *domain.Engineer, q fiscal.Quarter) UtilizationRow {
	name := strings.TrimSpace(e.Name)
	months := q.Months()

	row := UtilizationRow{
		Engineer: name,
		Team:     e.Team,
		Quarter:  q.String(),
		Features: []FeatureAllocation{},
	}

	/**
	 * 只对有排期的月份取平均：
	 * 一个季度中只有一个月排了 30%，季度利用率仍然是 30% 而不是 10%
	 */
	assigned := 0
	allocationSum := 0.0
	ratioSum := 0.0
	allRatioSum := 0.0
	featureSums := make(map[string]float64)

	for _, month := range months {
		pto := PTODaysFor(e, month)
		ratio := WorkingRatio(pto)

		row.PTODays += pto
		row.WorkingDays += workingDays(pto)
		allRatioSum += ratio

		allocation := p.allocations[name][month]
		if allocation <= 0 {
			continue
		}

		assigned++
		allocationSum += allocation
		ratioSum += ratio
		for feature, v := range p.features[name][month] {
			featureSums[feature] += v
		}
	}

	row.MonthsWithData = assigned
	row.PTODays = round2(row.PTODays)
	row.WorkingDays = round2(row.WorkingDays)

	if assigned == 0 {
		// 整个季度没有排期，视为完全空闲
		row.Available = 100
		row.PTOImpact = round2(100 * (1 - allRatioSum/float64(len(months))))
		row.Status = StatusAvailable
		return row
	}

	k := float64(assigned)
	avgAllocation := allocationSum / k
	avgRatio := ratioSum / k

	// 休假只压缩可用容量的上限，不放大已分配的百分比
	row.TotalAllocation = round2(avgAllocation)
	row.EffectiveAllocation = round2(avgAllocation)
	row.Available = round2(math.Max(0, 100*avgRatio-avgAllocation))
	row.PTOImpact = round2(100 * (1 - avgRatio))
	row.Status = Classify(avgAllocation) // 用未取整的值判断，100.004 仍然算超额

	features := make([]string, 0, len(featureSums))
	for feature := range featureSums {
		features = append(features, feature)
	}
	sort.Strings(features)
	for _, feature := range features {
		row.Features = append(row.Features, FeatureAllocation{
			Feature:    feature,
			Allocation: round2(featureSums[feature] / k),
		})
	}

	return row
}

// OverAllocated 筛选出超额分配的行
func OverAllocated(rows []UtilizationRow) []UtilizationRow {
	result := make([]UtilizationRow, 0)
	for _, row := range rows {
		if row.Status == StatusOverAllocated {
			result = append(result, row)
		}
	}
	return result
}
