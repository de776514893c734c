package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
)

// TimelineBar 是甘特图中的一根条：某名工程师在某个项目上从第一个有排期的月份到最后一个月份
type TimelineBar struct {
	Engineer   string    `json:"engineer"`
	Team       string    `json:"team"`
	Program    string    `json:"program"`
	Start      time.Time `json:"start"`
	Finish     time.Time `json:"finish"`
	Allocation float64   `json:"allocation"` // 有排期月份的平均百分比
	Months     int       `json:"months"`
}

func Timeline(roster []*domain.Engineer, ledger *Ledger) ([]TimelineBar, error) {
	if !ledger.Has(DimensionProgram) {
		return nil, fmt.Errorf("%w: %s", ErrDimensionUnavailable, DimensionProgram)
	}

	teams := make(map[string]string)
	order := make(map[string]int)
	for _, e := range roster {
		if e == nil {
			continue
		}
		name := strings.TrimSpace(e.Name)
		if _, exists := order[name]; exists || name == "" {
			continue
		}
		teams[name] = e.Team
		order[name] = len(order)
	}

	type key struct {
		engineer string
		program  string
	}
	type span struct {
		first, last time.Time
		monthly     map[string]float64
	}

	spans := make(map[key]*span)
	for _, a := range ledger.assignments() {
		if a == nil || a.Allocation <= 0 {
			continue
		}
		name := strings.TrimSpace(a.EngineerName)
		if _, exists := order[name]; !exists {
			continue
		}
		month, err := fiscal.ParseMonth(a.Month)
		if err != nil {
			continue
		}

		k := key{engineer: name, program: strings.TrimSpace(a.Program)}
		s, exists := spans[k]
		if !exists {
			s = &span{first: month, last: month, monthly: make(map[string]float64)}
			spans[k] = s
		}
		if month.Before(s.first) {
			s.first = month
		}
		if month.After(s.last) {
			s.last = month
		}
		s.monthly[month.Format(fiscal.MonthLayout)] += a.Allocation
	}

	bars := make([]TimelineBar, 0, len(spans))
	for k, s := range spans {
		total := 0.0
		for _, v := range s.monthly {
			total += v
		}
		bars = append(bars, TimelineBar{
			Engineer:   k.engineer,
			Team:       teams[k.engineer],
			Program:    k.program,
			Start:      s.first,
			Finish:     s.last.AddDate(0, 1, 0).Add(-time.Nanosecond),
			Allocation: round2(total / float64(len(s.monthly))),
			Months:     len(s.monthly),
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Engineer != bars[j].Engineer {
			return order[bars[i].Engineer] < order[bars[j].Engineer]
		}
		if !bars[i].Start.Equal(bars[j].Start) {
			return bars[i].Start.Before(bars[j].Start)
		}
		return bars[i].Program < bars[j].Program
	})

	return bars, nil
}

// ProjectBar 是项目储备甘特图中的一根条，从预计开始日期到预计结束日期
type ProjectBar struct {
	Project   string               `json:"project"`
	Start     time.Time            `json:"start"`
	Finish    time.Time            `json:"finish"`
	Priority  domain.Priority      `json:"priority"`
	Status    domain.ProjectStatus `json:"status"`
	Engineers int32                `json:"engineers"`
	Color     string               `json:"color"`
}

// 未列出的优先级使用 defaultProjectColor
var projectColors = map[domain.Priority]string{
	domain.PriorityHigh:   "#FF6B6B",
	domain.PriorityMedium: "#4ECDC4",
	domain.PriorityLow:    "#45B7D1",
}

const defaultProjectColor = "#95A5A6"

// ProjectTimeline 按预计开始日期排列项目，缺少日期或结束早于开始的项目不出现在图中
func ProjectTimeline(projects []*domain.FutureProject) []ProjectBar {
	bars := make([]ProjectBar, 0, len(projects))
	for _, p := range projects {
		if p == nil || p.ExpectedStartDate.IsZero() || p.ExpectedEndDate.IsZero() || p.ExpectedEndDate.Before(p.ExpectedStartDate) {
			continue
		}

		color, ok := projectColors[p.Priority]
		if !ok {
			color = defaultProjectColor
		}

		bars = append(bars, ProjectBar{
			Project:   p.Name,
			Start:     p.ExpectedStartDate,
			Finish:    p.ExpectedEndDate,
			Priority:  p.Priority,
			Status:    p.Status,
			Engineers: p.EstimatedEngineers,
			Color:     color,
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if !bars[i].Start.Equal(bars[j].Start) {
			return bars[i].Start.Before(bars[j].Start)
		}
		return bars[i].Project < bars[j].Project
	})

	return bars
}

type PipelineSummary struct {
	TotalProjects            int   `json:"totalProjects"`
	TotalEngineersNeeded     int64 `json:"totalEngineersNeeded"`
	HighPriorityProjects     int   `json:"highPriorityProjects"`
	CriticalPriorityProjects int   `json:"criticalPriorityProjects"`
}

// SummarizePipeline 汇总项目储备，High 和 Critical 分开计数
func SummarizePipeline(projects []*domain.FutureProject) PipelineSummary {
	summary := PipelineSummary{}
	for _, p := range projects {
		if p == nil {
			continue
		}
		summary.TotalProjects++
		summary.TotalEngineersNeeded += int64(p.EstimatedEngineers)
		switch p.Priority {
		case domain.PriorityHigh:
			summary.HighPriorityProjects++
		case domain.PriorityCritical:
			summary.CriticalPriorityProjects++
		}
	}
	return summary
}
