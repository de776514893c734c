package planner

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
)

const (
	StandardWorkingDays    = 22.0  // 每月标准工作日
	MonthsPerQuarter       = 3.0   // 趋势视图的固定分母
	OverAllocatedThreshold = 100.0 // 大于该值为超额分配
	FullyOccupiedThreshold = 85.0  // 大于等于该值为满负荷
	HeatmapThreshold       = 15    // 工程师人数超过该值时矩阵改用热力图展示
)

var ErrDimensionUnavailable = errors.New("排期数据中缺少该维度")

type Dimension string

const (
	DimensionProgram  Dimension = "Program"
	DimensionFeature  Dimension = "Feature"
	DimensionPriority Dimension = "Priority"
)

// Ledger 是排期记录的一次只读快照
type Ledger struct {
	Assignments []*domain.Assignment
	Missing     []Dimension // 来源表格中不存在的维度列，导入时随排期一起保存
}

func (l *Ledger) Has(dim Dimension) bool {
	if l == nil {
		return false
	}
	for _, d := range l.Missing {
		if d == dim {
			return false
		}
	}
	return true
}

func (l *Ledger) assignments() []*domain.Assignment {
	if l == nil {
		return nil
	}
	return l.Assignments
}

type Planner struct {
	quarters    []fiscal.Quarter
	roster      []*domain.Engineer                       // 已按名字去重，保持原有顺序
	ledger      *Ledger                                  // 仅趋势视图会直接使用
	allocations map[string]map[string]float64            // {engineer: {month: allocation}}
	features    map[string]map[string]map[string]float64 // {engineer: {month: {feature: allocation}}}
}

// New 基于花名册和排期记录的快照创建 Planner，两者在计算过程中都不会被修改
func New(quarters []fiscal.Quarter, roster []*domain.Engineer, ledger *Ledger) *Planner {
	p := &Planner{
		quarters:    quarters,
		roster:      make([]*domain.Engineer, 0, len(roster)),
		ledger:      ledger,
		allocations: make(map[string]map[string]float64),
		features:    make(map[string]map[string]map[string]float64),
	}

	seen := make(map[string]bool)
	for _, e := range roster {
		if e == nil {
			continue
		}
		name := strings.TrimSpace(e.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		p.roster = append(p.roster, e)
	}

	for _, a := range ledger.assignments() {
		if a == nil {
			continue
		}
		name := strings.TrimSpace(a.EngineerName)
		if !seen[name] {
			// 不在花名册中的工程师不参与统计
			continue
		}
		month := strings.TrimSpace(a.Month)

		if _, exists := p.allocations[name]; !exists {
			p.allocations[name] = make(map[string]float64)
			p.features[name] = make(map[string]map[string]float64)
		}
		if _, exists := p.features[name][month]; !exists {
			p.features[name][month] = make(map[string]float64)
		}

		p.allocations[name][month] += a.Allocation
		p.features[name][month][a.Feature] += a.Allocation
	}

	return p
}

func (p *Planner) Quarters() []string {
	labels := make([]string, 0, len(p.quarters))
	for _, q := range p.quarters {
		labels = append(labels, q.String())
	}
	return labels
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
